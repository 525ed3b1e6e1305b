// Package env_vars exposes the merged run environment to workflow
// expressions: process environment variables, optionally overlaid with the
// contents of a dotenv-style file.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vk/seqci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the env_vars runner.
type Input struct {
	File string `hcl:"file,optional"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output defines the data structure returned by the runner.
type Output struct {
	All map[string]string `cty:"all"`
}

// OnRunEnvVars is the handler for the 'env_vars' runner.
func OnRunEnvVars(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}

	if input.File != "" {
		fileVars, err := godotenv.Read(input.File)
		if err != nil {
			return nil, fmt.Errorf("reading env file '%s': %w", input.File, err)
		}
		for k, v := range fileVars {
			envMap[k] = v
		}
	}

	return &Output{All: envMap}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunEnvVars", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunEnvVars,
	})
}
