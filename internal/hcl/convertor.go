package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/seqci/internal/config"
	"github.com/vk/seqci/internal/ctxlog"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	if ctyVal, ok := v.(cty.Value); ok {
		return ctyVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// DecodeBody binds a job's argument expressions onto the handler's input
// struct. Each exported field tagged `hcl:"name"` is matched against the
// manifest's input definitions: user-provided expressions win, then manifest
// defaults, and a missing required argument is an error.
func (c *Converter) DecodeBody(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	defs map[string]*config.InputDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)

	valPtr := reflect.ValueOf(inputStruct)
	if valPtr.Kind() != reflect.Ptr || valPtr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("input struct must be a pointer to a struct, got %T", inputStruct)
	}
	structVal := valPtr.Elem()
	structType := structVal.Type()

	// Reject argument names the manifest does not declare.
	for name := range args {
		if _, ok := defs[name]; !ok {
			return fmt.Errorf("unsupported argument %q", name)
		}
	}

	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldDef.IsExported() || !fieldVal.CanSet() {
			continue
		}

		tagName := strings.Split(fieldDef.Tag.Get("hcl"), ",")[0]
		if tagName == "" || tagName == "-" {
			continue
		}

		inputDef, declared := defs[tagName]

		var val cty.Value
		switch expr, provided := args[tagName]; {
		case provided:
			evaluated, diags := expr.Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("evaluating argument %q: %w", tagName, diags)
			}
			val = evaluated
		case declared && inputDef.Default != nil:
			logger.Debug("Applying manifest default.", "argument", tagName)
			val = *inputDef.Default
		case declared && !inputDef.Optional:
			return fmt.Errorf("required argument %q was not provided", tagName)
		default:
			continue // Optional argument with no value; leave the zero value.
		}

		if err := assignCtyValue(val, inputDef, fieldVal); err != nil {
			return fmt.Errorf("in argument %q: %w", tagName, err)
		}
	}
	return nil
}

// assignCtyValue converts val to the manifest-declared type (when one is
// declared) and stores it in the given struct field.
func assignCtyValue(val cty.Value, def *config.InputDefinition, fieldVal reflect.Value) error {
	if !val.IsKnown() || val.IsNull() {
		return nil
	}

	// Fields of type cty.Value receive the raw value untouched.
	if fieldVal.Type() == reflect.TypeOf(cty.Value{}) {
		fieldVal.Set(reflect.ValueOf(val))
		return nil
	}

	targetType := cty.DynamicPseudoType
	if def != nil {
		targetType = def.Type
	}
	if targetType == cty.DynamicPseudoType {
		// Without a declared type, fall back to the type implied by the Go field.
		implied, err := gocty.ImpliedType(reflect.Zero(fieldVal.Type()).Interface())
		if err != nil {
			return fmt.Errorf("cannot imply cty type for Go field type %s: %w", fieldVal.Type(), err)
		}
		targetType = implied
	}

	converted, err := convert.Convert(val, targetType)
	if err != nil {
		return fmt.Errorf("cannot convert value of type %s to %s: %w",
			val.Type().FriendlyName(), targetType.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, fieldVal.Addr().Interface())
}
