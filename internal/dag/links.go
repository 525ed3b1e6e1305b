package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/seqci/internal/ctxlog"
)

// collectExpressions gathers every argument and uses expression on a node so
// the implicit linker can scan them for references.
func collectExpressions(node *Node) []hcl.Expression {
	var exprs []hcl.Expression
	if node.Type == JobNode {
		for _, expr := range node.JobConfig.Arguments {
			exprs = append(exprs, expr)
		}
		for _, expr := range node.JobConfig.Uses {
			exprs = append(exprs, expr)
		}
	} else {
		for _, expr := range node.ResourceConfig.Arguments {
			exprs = append(exprs, expr)
		}
	}
	return exprs
}

// link records a dependency edge from node to dep, idempotently.
func link(node, dep *Node) {
	if _, exists := node.Deps[dep.ID]; exists {
		return
	}
	node.Deps[dep.ID] = dep
	dep.Dependents[node.ID] = node
}

// linkExplicitDeps resolves dependencies declared in a `requires` list. Each
// entry is either "<task_type>.<name>" for a job or
// "resource.<asset_type>.<name>" for a resource.
func linkExplicitDeps(ctx context.Context, node *Node, requires []string, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)

	for _, addr := range requires {
		var depID string
		if strings.HasPrefix(addr, "resource.") {
			depID = addr
		} else {
			depID = "job." + addr
		}

		depNode, found := graph.Nodes[depID]
		if !found {
			return fmt.Errorf("node '%s' requires non-existent identifier '%s'", node.ID, addr)
		}
		if depNode == node {
			return fmt.Errorf("node '%s' cannot require itself", node.ID)
		}

		logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depID)
		link(node, depNode)
	}
	return nil
}

// linkImplicitDeps parses an expression for variable traversals that refer to
// other nodes and links them. Recognized roots are `job.<type>.<name>` and
// `resource.<type>.<name>`; everything else (e.g. `env`) is ignored.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)

	for _, traversal := range expr.Variables() {
		if len(traversal) < 3 {
			continue
		}
		root := traversal.RootName()
		if root != "job" && root != "resource" {
			continue
		}

		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}

		depID := fmt.Sprintf("%s.%s.%s", root, typeAttr.Name, nameAttr.Name)
		depNode, found := graph.Nodes[depID]
		if !found {
			return fmt.Errorf("implicit dependency error in '%s': referenced node '%s' does not exist", node.ID, depID)
		}
		if depNode == node {
			return fmt.Errorf("node '%s' cannot reference its own output", node.ID)
		}

		logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
		link(node, depNode)
	}
	return nil
}
