// Package align prepares and runs STAR alignments for the pipeline's test
// jobs: it extracts the genome index archive and invokes the aligner with
// the production flag set for the requested endedness.
package align

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Endedness string   `hcl:"endedness"`
	Fastqs    []string `hcl:"fastqs"`
	IndexTar  string   `hcl:"index_tar"`
	IndexDir  string   `hcl:"index_dir,optional"`
	Ncpus     int      `hcl:"ncpus,optional"`
	RamGB     int      `hcl:"ram_gb,optional"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// OnRunAlign is the handler for the 'align' task's on_run lifecycle event.
func OnRunAlign(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("endedness", input.Endedness)

	logger.Info("Extracting genome index", "archive", input.IndexTar, "dir", input.IndexDir)
	if err := ExtractFlat(input.IndexTar, input.IndexDir); err != nil {
		return cty.NilVal, err
	}

	args, err := starArgs(input.Endedness, input.Fastqs, input.IndexDir, input.Ncpus, input.RamGB)
	if err != nil {
		return cty.NilVal, err
	}
	logger.Info("Running aligner", "command", "STAR "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "STAR", args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		logger.Error("Aligner failed", "output", combined.String())
		return cty.NilVal, fmt.Errorf("STAR alignment failed: %w", err)
	}
	logger.Info("Alignment finished")

	return cty.ObjectVal(map[string]cty.Value{
		"index_dir": cty.StringVal(input.IndexDir),
		"endedness": cty.StringVal(input.Endedness),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunAlign", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunAlign,
	})
}
