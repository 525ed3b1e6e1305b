package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
)

// executeResourceNode handles the creation of a stateful resource.
func (e *Executor) executeResourceNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)
	logger.Info("▶️ Creating resource")

	assetType := node.ResourceConfig.AssetType
	assetDef, ok := e.registry.AssetDefinitionRegistry[assetType]
	if !ok {
		return fmt.Errorf("unknown asset type '%s'", assetType)
	}
	createHandlerName := assetDef.Lifecycle.Create
	destroyHandlerName := assetDef.Lifecycle.Destroy

	createHandler, ok := e.registry.AssetHandlerRegistry[createHandlerName]
	if !ok || createHandler.CreateFn == nil {
		return fmt.Errorf("create handler '%s' not registered", createHandlerName)
	}
	destroyHandler, ok := e.registry.AssetHandlerRegistry[destroyHandlerName]
	if !ok || destroyHandler.DestroyFn == nil {
		return fmt.Errorf("destroy handler '%s' not registered", destroyHandlerName)
	}

	logger.Debug("Decoding resource arguments.")
	var inputStruct any
	if createHandler.NewInput != nil {
		inputStruct = createHandler.NewInput()
	}
	if inputStruct != nil {
		evalCtx := e.buildEvalContext(ctx, node)
		err := e.converter.DecodeBody(ctx, inputStruct, node.ResourceConfig.Arguments, assetDef.Inputs, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to decode arguments for resource '%s': %w", node.ID, err)
		}
	}

	logger.Debug("Calling resource create handler.", "handler", createHandlerName)
	handlerFunc := reflect.ValueOf(createHandler.CreateFn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx)}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(1)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	instance, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	node.Output = instance
	e.resourceInstances.Store(node.ID, instance)
	e.pushCleanup(node, func() {
		logger.Info("🔥 Destroying resource")
		reflect.ValueOf(destroyHandler.DestroyFn).Call([]reflect.Value{reflect.ValueOf(instance)})
		e.resourceInstances.Delete(node.ID)
	})

	logger.Info("✅ Resource created")
	return nil
}

// pushCleanup records a destroy function for a created resource. The function
// runs at most once, either eagerly when the resource's last dependent
// finishes or during the final cleanup sweep.
func (e *Executor) pushCleanup(node *dag.Node, fn func()) {
	e.destroyFns.Store(node.ID, fn)
	e.cleanupMu.Lock()
	defer e.cleanupMu.Unlock()
	e.cleanupStack = append(e.cleanupStack, func() {
		node.DestroyOnce(fn)
	})
}

// destroyResource eagerly tears down a resource whose dependents have all
// finished, without waiting for the end-of-run sweep.
func (e *Executor) destroyResource(ctx context.Context, node *dag.Node) {
	fn, found := e.destroyFns.Load(node.ID)
	if !found {
		return
	}
	node.DestroyOnce(fn.(func()))
}

// executeCleanupStack destroys any resources still alive at the end of a run,
// in reverse creation order.
func (e *Executor) executeCleanupStack(ctx context.Context) {
	e.cleanupMu.Lock()
	defer e.cleanupMu.Unlock()
	for i := len(e.cleanupStack) - 1; i >= 0; i-- {
		e.cleanupStack[i]()
	}
	e.cleanupStack = nil
}
