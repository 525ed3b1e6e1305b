// Package docker shells out to the docker CLI for the image lifecycle of a
// CI run: building a branch-tagged image, retagging it, and moving it to and
// from the registry.
package docker

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
	Action     string            `hcl:"action"`
	Tag        string            `hcl:"tag,optional"`
	SourceTag  string            `hcl:"source_tag,optional"`
	ContextDir string            `hcl:"context_dir,optional"`
	Dockerfile string            `hcl:"dockerfile,optional"`
	BuildArgs  map[string]string `hcl:"build_args,optional"`
	Username   string            `hcl:"username,optional"`
	Password   string            `hcl:"password,optional"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// commandArgs maps an action to the docker CLI argument list. The password
// for a login never appears here; it travels over stdin.
func commandArgs(input *Input) ([]string, error) {
	switch strings.ToLower(input.Action) {
	case "build":
		if input.Tag == "" {
			return nil, fmt.Errorf("docker build requires 'tag'")
		}
		args := []string{"build", "-t", input.Tag, "-f", input.Dockerfile}
		for k, v := range input.BuildArgs {
			args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
		}
		return append(args, input.ContextDir), nil
	case "tag":
		if input.SourceTag == "" || input.Tag == "" {
			return nil, fmt.Errorf("docker tag requires 'source_tag' and 'tag'")
		}
		return []string{"tag", input.SourceTag, input.Tag}, nil
	case "push":
		if input.Tag == "" {
			return nil, fmt.Errorf("docker push requires 'tag'")
		}
		return []string{"push", input.Tag}, nil
	case "pull":
		if input.Tag == "" {
			return nil, fmt.Errorf("docker pull requires 'tag'")
		}
		return []string{"pull", input.Tag}, nil
	case "login":
		if input.Username == "" || input.Password == "" {
			return nil, fmt.Errorf("docker login requires 'username' and 'password'")
		}
		return []string{"login", "-u", input.Username, "--password-stdin"}, nil
	case "logout":
		return []string{"logout"}, nil
	default:
		return nil, fmt.Errorf("unknown docker action: '%s'", input.Action)
	}
}

// OnRunDocker is the handler for the 'docker' task's on_run lifecycle event.
func OnRunDocker(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", input.Action)

	args, err := commandArgs(input)
	if err != nil {
		return cty.NilVal, err
	}
	logger.Info("Running docker command", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "docker", args...)
	if strings.EqualFold(input.Action, "login") {
		cmd.Stdin = strings.NewReader(input.Password)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		logger.Error("Docker command failed", "output", combined.String())
		return cty.NilVal, fmt.Errorf("docker %s failed: %w", input.Action, err)
	}
	logger.Debug("Docker command finished", "output", combined.String())

	return cty.ObjectVal(map[string]cty.Value{
		"action": cty.StringVal(strings.ToLower(input.Action)),
		"tag":    cty.StringVal(input.Tag),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("OnRunDocker", &registry.RegisteredTask{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunDocker,
	})
}
