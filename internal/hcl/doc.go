// Package hcl implements the config.Loader and config.Converter interfaces
// on top of HashiCorp's HCL toolkit. It discovers .hcl files under the
// configured workflow and module paths, decodes any top-level block kind from
// any file, and translates the result into the format-agnostic config model.
package hcl
