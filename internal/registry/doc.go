// Package registry holds the compiled Go side of the module system: task and
// asset lifecycle handlers keyed by name, plus the manifest definitions they
// must stay in parity with. The registry is populated at startup and validated
// before any job runs, so a mismatch between a manifest and its Go handler is
// a startup failure rather than a mid-run surprise.
package registry
