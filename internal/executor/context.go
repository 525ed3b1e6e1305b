package executor

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/ctxlog"
	"github.com/vk/seqci/internal/dag"
)

// buildEvalContext creates the HCL evaluation context for a node. It exposes
// two variables to argument expressions:
//
//	job.<task_type>.<name>.output  - outputs of completed jobs
//	env.<NAME>                     - the shared run environment
//
// Dependency linking guarantees that any job referenced here finished before
// the current node started, so reading Output is race-free.
func (e *Executor) buildEvalContext(ctx context.Context, node *dag.Node) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building HCL evaluation context.", "node", node.ID)
	vars := make(map[string]cty.Value)

	// map[task_type] -> map[job_name] -> {output = ...}
	outputsByTask := make(map[string]map[string]cty.Value)
	for _, graphNode := range e.Graph.Nodes {
		if graphNode.Type != dag.JobNode || graphNode.State() != dag.Done || graphNode.Output == nil {
			continue
		}
		ctyOutput, ok := graphNode.Output.(cty.Value)
		if !ok || ctyOutput.RawEquals(cty.NilVal) {
			continue
		}

		taskType := graphNode.JobConfig.TaskType
		if _, ok := outputsByTask[taskType]; !ok {
			outputsByTask[taskType] = make(map[string]cty.Value)
		}
		outputsByTask[taskType][graphNode.JobConfig.Name] = cty.ObjectVal(map[string]cty.Value{
			"output": ctyOutput,
		})
	}

	finalJobOutputs := make(map[string]cty.Value, len(outputsByTask))
	for taskType, jobs := range outputsByTask {
		finalJobOutputs[taskType] = cty.ObjectVal(jobs)
	}
	vars["job"] = cty.ObjectVal(finalJobOutputs)

	if len(e.env) > 0 {
		envVals := make(map[string]cty.Value, len(e.env))
		for k, v := range e.env {
			envVals[k] = cty.StringVal(v)
		}
		vars["env"] = cty.ObjectVal(envVals)
	} else {
		vars["env"] = cty.EmptyObjectVal
	}

	return &hcl.EvalContext{Variables: vars}
}
