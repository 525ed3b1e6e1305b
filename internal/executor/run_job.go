package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
)

// executeJobNode handles the execution of a single job.
func (e *Executor) executeJobNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)
	logger.Info("▶️ Starting job")

	taskDef, ok := e.registry.DefinitionRegistry[node.JobConfig.TaskType]
	if !ok {
		return fmt.Errorf("unknown task type '%s'", node.JobConfig.TaskType)
	}
	handlerName := taskDef.Lifecycle.OnRun
	handler, ok := e.registry.TaskHandlerRegistry[handlerName]
	if !ok {
		return fmt.Errorf("handler '%s' not registered", handlerName)
	}

	evalCtx := e.buildEvalContext(ctx, node)

	logger.Debug("Decoding job arguments.")
	var inputStruct any
	if handler.NewInput != nil {
		inputStruct = handler.NewInput()
	}
	if inputStruct != nil {
		err := e.converter.DecodeBody(ctx, inputStruct, node.JobConfig.Arguments, taskDef.Inputs, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to decode arguments for job '%s': %w", node.ID, err)
		}
	}

	logger.Debug("Building job dependencies.")
	depsStruct, err := e.buildDepsStruct(ctx, node, handler.NewDeps)
	if err != nil {
		return err
	}

	logger.Debug("Calling job run handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(handler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(depsStruct)}
	if inputStruct == nil {
		inputType := handlerFunc.Type().In(2)
		callArgs = append(callArgs, reflect.Zero(inputType))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	nativeOutput, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	ctyOutput, err := e.converter.ToCtyValue(nativeOutput)
	if err != nil {
		return fmt.Errorf("failed to convert handler output to cty.Value for job '%s': %w", node.ID, err)
	}
	node.Output = ctyOutput

	logger.Info("✅ Finished job")
	return nil
}

// buildDepsStruct populates the handler's deps struct with live resource
// instances resolved from the job's `uses` block. Fields are matched by their
// `uses:"<local_name>"` tag.
func (e *Executor) buildDepsStruct(ctx context.Context, node *dag.Node, newDeps func() any) (any, error) {
	if newDeps == nil {
		return &struct{}{}, nil
	}
	depsStruct := newDeps()

	valPtr := reflect.ValueOf(depsStruct)
	if valPtr.Kind() != reflect.Ptr || valPtr.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("deps for job '%s' must be a pointer to a struct, got %T", node.ID, depsStruct)
	}
	structVal := valPtr.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldDef.IsExported() || !fieldVal.CanSet() {
			continue
		}
		localName := fieldDef.Tag.Get("uses")
		if localName == "" || localName == "-" {
			continue
		}

		expr, ok := node.JobConfig.Uses[localName]
		if !ok {
			return nil, fmt.Errorf("job '%s' does not wire required resource '%s' in its uses block", node.ID, localName)
		}

		resourceID, err := resourceIDFromExpression(expr)
		if err != nil {
			return nil, fmt.Errorf("in uses entry '%s' of job '%s': %w", localName, node.ID, err)
		}

		instance, found := e.resourceInstances.Load(resourceID)
		if !found {
			return nil, fmt.Errorf("resource '%s' required by job '%s' has no live instance", resourceID, node.ID)
		}

		instanceVal := reflect.ValueOf(instance)
		if !instanceVal.Type().AssignableTo(fieldDef.Type) {
			return nil, fmt.Errorf("resource '%s' has type %s, but deps field '%s' of job '%s' wants %s",
				resourceID, instanceVal.Type(), fieldDef.Name, node.ID, fieldDef.Type)
		}
		fieldVal.Set(instanceVal)
	}

	return depsStruct, nil
}

// resourceIDFromExpression extracts a resource node ID from a
// `resource.<asset_type>.<name>` reference expression.
func resourceIDFromExpression(expr hcl.Expression) (string, error) {
	for _, traversal := range expr.Variables() {
		if len(traversal) < 3 || traversal.RootName() != "resource" {
			continue
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}
		return fmt.Sprintf("resource.%s.%s", typeAttr.Name, nameAttr.Name), nil
	}
	return "", fmt.Errorf("expression is not a resource reference")
}
