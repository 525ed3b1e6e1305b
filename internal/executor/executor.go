// Package executor runs a built dag.Graph to completion on a pool of worker
// goroutines. Jobs with satisfied dependencies are fed to workers through a
// ready channel; a failure cancels the run context, and every transitive
// dependent of a failed node is marked skipped rather than executed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/seqci/internal/config"
	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
	"github.com/vk/seqci/internal/registry"
)

// errSkipped marks nodes that failed only because an upstream node failed.
// The run's root cause reporting filters these out.
var errSkipped = errors.New("skipped due to upstream failure")

// Executor orchestrates the concurrent execution of a workflow graph.
type Executor struct {
	Graph      *dag.Graph
	numWorkers int
	registry   *registry.Registry
	converter  config.Converter

	// env is the shared run environment exposed to HCL expressions as `env`.
	env map[string]string

	// onStateChange, when set, is invoked after every node state transition.
	// Used by the status event stream.
	onStateChange func(node *dag.Node)

	wg                sync.WaitGroup
	resourceInstances sync.Map
	destroyFns        sync.Map

	cleanupMu    sync.Mutex
	cleanupStack []func()
}

// Option configures an Executor.
type Option func(*Executor)

// WithEnv exposes the given run environment to HCL argument expressions.
func WithEnv(env map[string]string) Option {
	return func(e *Executor) { e.env = env }
}

// WithStateCallback registers a callback fired on every node state change.
func WithStateCallback(fn func(node *dag.Node)) Option {
	return func(e *Executor) { e.onStateChange = fn }
}

// New creates an Executor for the given graph.
func New(graph *dag.Graph, workers int, r *registry.Registry, conv config.Converter, opts ...Option) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		Graph:      graph,
		numWorkers: workers,
		registry:   r,
		converter:  conv,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// setState transitions a node and notifies the state callback, if any.
func (e *Executor) setState(node *dag.Node, s dag.State) {
	node.SetState(s)
	if e.onStateChange != nil {
		e.onStateChange(node)
	}
}

// Run executes the entire graph concurrently and returns an error if any node
// fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer e.executeCleanupStack(ctx)

	readyChan := make(chan *dag.Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.DepCount() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Info("Waiting for all jobs to complete...")
	e.wg.Wait()
	logger.Info("All jobs completed.")
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if node.State() == dag.Failed {
			logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
			// A skipped or canceled node is a symptom, not a cause.
			if node.Error != nil && !errors.Is(node.Error, errSkipped) && !errors.Is(node.Error, context.Canceled) {
				failedNodes = append(failedNodes, node.ID)
				if rootCauseError == nil {
					rootCauseError = node.Error
				}
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup for each.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.SkipOnce(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.ID, "dependency", node.ID)
			dependent.Error = fmt.Errorf("%w of '%s'", errSkipped, node.ID)
			e.setState(dependent, dag.Failed)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}
