package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			node.SkipOnce(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				node.Error = ctx.Err()
				e.setState(node, dag.Failed)
				e.wg.Done()
				// A node can still become ready after cancellation when an
				// in-flight sibling succeeds. Its dependents must be released
				// too, or Run would wait on them forever.
				e.skipDependents(ctx, node)
			})
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		e.setState(node, dag.Running)

		err := e.executeNode(ctx, node)
		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.Error = err
			e.setState(node, dag.Failed)
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		e.setState(node, dag.Done)

		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		// A finished job releases its hold on every resource it depends on;
		// the last one out triggers eager destruction.
		if node.Type == dag.JobNode {
			for _, dep := range node.Deps {
				if dep.Type == dag.ResourceNode {
					if dep.DecrementDescendantCount() == 0 {
						workerLogger.Debug("Scheduling destruction for resource.", "resourceID", dep.ID)
						go e.destroyResource(ctx, dep)
					}
				}
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// executeNode dispatches a node to the right lifecycle, applying the per-job
// wall-clock cap if one is configured.
func (e *Executor) executeNode(ctx context.Context, node *dag.Node) error {
	runCtx := ctx
	if node.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, node.Timeout)
		defer cancel()
	}

	var err error
	switch node.Type {
	case dag.ResourceNode:
		err = e.executeResourceNode(runCtx, node)
	case dag.JobNode:
		err = e.executeJobNode(runCtx, node)
	}

	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("job exceeded its %s wall-clock cap: %w", node.Timeout, err)
	}
	return err
}
