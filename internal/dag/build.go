package dag

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/seqci/internal/config"
	"github.com/vk/seqci/internal/ctxlog"
)

// JobNodeID returns the graph ID for a job block.
func JobNodeID(taskType, name string) string {
	return fmt.Sprintf("job.%s.%s", taskType, name)
}

// ResourceNodeID returns the graph ID for a resource block.
func ResourceNodeID(assetType, name string) string {
	return fmt.Sprintf("resource.%s.%s", assetType, name)
}

// Build constructs a complete, validated dependency graph from a config model.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes for jobs and resources.
	if err := createNodes(ctx, model.Pipeline, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link dependencies.
	if err := linkNodes(ctx, model, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}
	logger.Debug("Build: Counter initialization complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	return graph, nil
}

// createNodes performs the first pass of graph creation.
func createNodes(ctx context.Context, pipeline *config.Pipeline, graph *Graph) error {
	for _, j := range pipeline.Jobs {
		id := JobNodeID(j.TaskType, j.Name)
		if _, exists := graph.Nodes[id]; exists {
			return fmt.Errorf("duplicate job definition '%s'", id)
		}

		var timeout time.Duration
		if j.Timeout != "" {
			parsed, err := time.ParseDuration(j.Timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout for job '%s': %w", id, err)
			}
			timeout = parsed
		}

		graph.Nodes[id] = &Node{
			ID:         id,
			Name:       j.Name,
			Type:       JobNode,
			JobConfig:  j,
			Timeout:    timeout,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	for _, r := range pipeline.Resources {
		id := ResourceNodeID(r.AssetType, r.Name)
		if _, exists := graph.Nodes[id]; exists {
			return fmt.Errorf("duplicate resource definition '%s'", id)
		}
		graph.Nodes[id] = &Node{
			ID:             id,
			Name:           r.Name,
			Type:           ResourceNode,
			ResourceConfig: r,
			Deps:           make(map[string]*Node),
			Dependents:     make(map[string]*Node),
		}
	}
	return nil
}

// linkNodes performs the second pass, establishing dependency links from both
// explicit `requires` entries and implicit expression references.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for _, node := range graph.Nodes {
		var requires []string
		exprs := collectExpressions(node)

		if node.Type == JobNode {
			requires = node.JobConfig.Requires
		} else {
			requires = node.ResourceConfig.Requires
		}

		if err := linkExplicitDeps(ctx, node, requires, graph); err != nil {
			return err
		}
		for _, expr := range exprs {
			if err := linkImplicitDeps(ctx, node, expr, graph); err != nil {
				return err
			}
		}
	}
	logger.Debug("Finished node linking pass.")
	return nil
}

// detectCycles checks the graph for cycles using a classic three-color
// depth-first search. A non-nil error names the first node found in a cycle.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.Nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
