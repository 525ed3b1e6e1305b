// Package compare checks pipeline output checksums against a reference set
// and turns the overall result into job success or failure.
package compare

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/seqci/internal/checksum"
	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	MetadataJSON  string   `hcl:"metadata_json"`
	ReferenceJSON string   `hcl:"reference_json"`
	KeysToInspect []string `hcl:"keys_to_inspect,optional"`
	Outfile       string   `hcl:"outfile"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output defines the data structure returned by the runner.
type Output struct {
	MatchOverall bool   `cty:"match_overall"`
	Outfile      string `cty:"outfile"`
}

// OnRunCompare is the handler for the 'compare' task's on_run lifecycle
// event. The written result file always reflects what was observed; the job
// itself fails iff match_overall is false.
func OnRunCompare(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Comparing checksums",
		"metadata", input.MetadataJSON, "reference", input.ReferenceJSON)

	result, err := checksum.CompareFiles(input.MetadataJSON, input.ReferenceJSON, input.KeysToInspect)
	if err != nil {
		return nil, err
	}
	if err := checksum.WriteResult(input.Outfile, result); err != nil {
		return nil, fmt.Errorf("writing comparison result: %w", err)
	}

	if !result.MatchOverall {
		mismatched := result.MismatchedKeys()
		logger.Error("Checksum mismatch", "keys", mismatched)
		return nil, fmt.Errorf("checksum comparison failed for keys: %s",
			strings.Join(mismatched, ", "))
	}

	logger.Info("All checksums match", "keys", len(result.Keys))
	return &Output{MatchOverall: true, Outfile: input.Outfile}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunCompare", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunCompare,
	})
}
