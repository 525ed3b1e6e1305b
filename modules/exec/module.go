// Package exec runs an external command, typically the pipeline's test
// runner script, and fails the job when the command exits non-zero.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Command string            `hcl:"command"`
	Args    []string          `hcl:"args,optional"`
	WorkDir string            `hcl:"work_dir,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// OnRunExec is the handler for the 'exec' task's on_run lifecycle event.
func OnRunExec(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("command", input.Command)
	logger.Info("Running external command", "args", input.Args)

	cmd := osexec.CommandContext(ctx, input.Command, input.Args...)
	cmd.Dir = input.WorkDir
	cmd.Env = os.Environ()
	for k, v := range input.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		logger.Error("Command failed", "stderr", stderr.String())
		return cty.NilVal, fmt.Errorf("command '%s' failed: %w", input.Command, err)
	}
	logger.Debug("Command finished", "stdout_bytes", stdout.Len())

	return cty.ObjectVal(map[string]cty.Value{
		"exit_code": cty.NumberIntVal(0),
		"stdout":    cty.StringVal(stdout.String()),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunExec", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunExec,
	})
}
