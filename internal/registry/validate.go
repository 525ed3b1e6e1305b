package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/seqci/internal/ctxlog"
)

// ValidateRegistry performs a strict parity check between manifests and Go code.
// It checks both the presence of inputs and the compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for taskType, def := range r.DefinitionRegistry {
		if def.Lifecycle == nil {
			errs = append(errs, fmt.Sprintf("task '%s': manifest has no lifecycle block", taskType))
			continue
		}
		handler, ok := r.TaskHandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("task '%s': manifest names handler '%s' which is not registered", taskType, def.Lifecycle.OnRun))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("task '%s': manifest declares inputs, but Go handler has no input struct", taskType))
			}
			continue
		}

		manifestInputs := make(map[string]struct{})
		for name := range def.Inputs {
			manifestInputs[name] = struct{}{}
		}

		goInputs := make(map[string]reflect.StructField)
		inputType := handler.InputType
		for i := 0; i < inputType.NumField(); i++ {
			field := inputType.Field(i)
			if !field.IsExported() {
				continue
			}
			tagName := strings.Split(field.Tag.Get("hcl"), ",")[0]
			if tagName != "" && tagName != "-" {
				goInputs[tagName] = field
			}
		}

		// Presence mismatches, both directions.
		for name := range goInputs {
			if _, ok := manifestInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("task '%s': Go struct has field for input '%s' which is not declared in manifest", taskType, name))
			}
		}
		for name := range manifestInputs {
			if _, ok := goInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("task '%s': manifest declares input '%s' which is not found in Go struct", taskType, name))
			}
		}

		// Type mismatches.
		for name, inputDef := range def.Inputs {
			goField, ok := goInputs[name]
			if !ok {
				continue // Already handled by presence check.
			}

			manifestType := inputDef.Type
			if manifestType.Equals(cty.DynamicPseudoType) {
				logger.Warn("Manifest input uses 'type = any', which disables static type checking.", "task", taskType, "input", name)
				continue
			}
			if goField.Type == reflect.TypeOf(cty.Value{}) {
				continue // Raw cty.Value fields accept anything.
			}

			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("task '%s', input '%s': could not imply cty type from Go field type %s: %v", taskType, name, goField.Type, err))
				continue
			}

			if !manifestType.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("task '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides '%s'",
					taskType, name, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}
	}

	for assetType, def := range r.AssetDefinitionRegistry {
		if def.Lifecycle == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': manifest has no lifecycle block", assetType))
			continue
		}
		createHandler, ok := r.AssetHandlerRegistry[def.Lifecycle.Create]
		if !ok || createHandler.CreateFn == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': create handler '%s' is not registered", assetType, def.Lifecycle.Create))
		}
		destroyHandler, ok := r.AssetHandlerRegistry[def.Lifecycle.Destroy]
		if !ok || destroyHandler.DestroyFn == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': destroy handler '%s' is not registered", assetType, def.Lifecycle.Destroy))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
