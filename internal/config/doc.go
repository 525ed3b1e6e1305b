// Package config defines the format-agnostic configuration model for a CI
// workflow run, along with the Loader and Converter interfaces that
// format-specific implementations (currently HCL) must satisfy.
//
// The model separates two layers of configuration:
//
//   - Task and asset definitions ("manifests") declare what a task type can
//     do: its lifecycle handler names, input/output contracts, and the shared
//     assets it uses.
//   - The pipeline declares what this run actually does: concrete job blocks
//     wired together by `requires` edges and output references, forming the
//     dependency DAG the executor walks.
package config
