// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/config"
	"github.com/vk/seqci/internal/schema"
)

// translateJob converts the HCL-specific job schema into the agnostic model.
func (l *Loader) translateJob(s *schema.Job) *config.Job {
	var argsBody, usesBody hcl.Body
	if s.Arguments != nil {
		argsBody = s.Arguments.Body
	}
	if s.Uses != nil {
		usesBody = s.Uses.Body
	}
	return &config.Job{
		TaskType:  s.TaskType,
		Name:      s.Name,
		Arguments: extractBodyAttributes(argsBody),
		Uses:      extractBodyAttributes(usesBody),
		Requires:  s.Requires,
		Timeout:   s.Timeout,
	}
}

// translateResource converts the HCL-specific resource schema into the agnostic model.
func (l *Loader) translateResource(s *schema.Resource) *config.Resource {
	var argsBody hcl.Body
	if s.Arguments != nil {
		argsBody = s.Arguments.Body
	}
	return &config.Resource{
		AssetType: s.AssetType,
		Name:      s.Name,
		Arguments: extractBodyAttributes(argsBody),
		Requires:  s.Requires,
	}
}

// translateInputDefinition is a helper that processes a single HCL input
// block, handling its default value and type parsing.
func translateInputDefinition(in *schema.InputDefinition, ownerKind, ownerName string) (*config.InputDefinition, error) {
	var defaultVal *cty.Value
	var isOptional bool

	if in.Default != nil && !in.Default.IsNull() {
		defaultVal = in.Default
		isOptional = true
	}

	parsedType, err := typeExprToCtyType(in.Type)
	if err != nil {
		return nil, fmt.Errorf("in %s '%s', input '%s': %w", ownerKind, ownerName, in.Name, err)
	}

	return &config.InputDefinition{
		Name:        in.Name,
		Type:        parsedType,
		Description: in.Description,
		Default:     defaultVal,
		Optional:    isOptional,
	}, nil
}

// translateTaskDefinition converts the HCL-specific task schema into the agnostic model.
func (l *Loader) translateTaskDefinition(ctx context.Context, s *schema.TaskDefinition) (*config.TaskDefinition, error) {
	t := &config.TaskDefinition{
		Type:        s.Type,
		Description: s.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
		Uses:        make(map[string]*config.UsesDefinition),
	}
	if s.Lifecycle != nil {
		t.Lifecycle = &config.Lifecycle{OnRun: s.Lifecycle.OnRun}
	}

	for _, in := range s.Inputs {
		translatedInput, err := translateInputDefinition(in, "task", s.Type)
		if err != nil {
			return nil, err
		}
		t.Inputs[in.Name] = translatedInput
	}

	for _, out := range s.Outputs {
		parsedType, err := typeExprToCtyType(out.Type)
		if err != nil {
			return nil, fmt.Errorf("in task '%s', output '%s': %w", s.Type, out.Name, err)
		}
		t.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}

	for _, use := range s.Uses {
		t.Uses[use.LocalName] = &config.UsesDefinition{
			LocalName: use.LocalName,
			AssetType: use.AssetType,
		}
	}
	return t, nil
}

// translateAssetDefinition converts the HCL-specific asset schema into the agnostic model.
func (l *Loader) translateAssetDefinition(ctx context.Context, s *schema.AssetDefinition) (*config.AssetDefinition, error) {
	a := &config.AssetDefinition{
		Type:        s.Type,
		Description: s.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
	}
	if s.Lifecycle != nil {
		a.Lifecycle = &config.AssetLifecycle{Create: s.Lifecycle.Create, Destroy: s.Lifecycle.Destroy}
	}

	for _, in := range s.Inputs {
		translatedInput, err := translateInputDefinition(in, "asset", s.Type)
		if err != nil {
			return nil, err
		}
		a.Inputs[in.Name] = translatedInput
	}

	for _, out := range s.Outputs {
		parsedType, err := typeExprToCtyType(out.Type)
		if err != nil {
			return nil, fmt.Errorf("in asset '%s', output '%s': %w", s.Type, out.Name, err)
		}
		a.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}
	return a, nil
}

// extractBodyAttributes flattens an HCL body into a map of named expressions.
func extractBodyAttributes(body hcl.Body) map[string]hcl.Expression {
	if body == nil {
		return nil
	}
	attrs, _ := body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
