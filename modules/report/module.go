// Package report prints a human-readable summary of key/value results, such
// as the per-key outcome of a checksum comparison.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the report runner.
type Input struct {
	Title  string            `hcl:"title,optional"`
	Values map[string]string `hcl:"values"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// OnRunReport is the handler for the 'report' task's on_run lifecycle event.
func OnRunReport(ctx context.Context, deps *Deps, input *Input) (any, error) {
	slog.Info("Printing report", "title", input.Title)

	if input.Title != "" {
		fmt.Printf("  %s\n", input.Title)
	}
	if input.Values == nil {
		fmt.Println("      (null)")
		return nil, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %q\n", k, input.Values[k])
	}

	return nil, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunReport", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunReport,
	})
}
