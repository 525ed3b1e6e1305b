package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration: all task/asset manifests plus the pipeline.
type Model struct {
	Tasks    map[string]*TaskDefinition
	Assets   map[string]*AssetDefinition
	Pipeline *Pipeline
}

// Pipeline represents the user's CI workflow definition: the set of jobs and
// shared resources whose `requires` relationships form the execution DAG.
type Pipeline struct {
	Jobs      []*Job
	Resources []*Resource
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	TaskType  string
	Name      string
	Arguments map[string]hcl.Expression
	Uses      map[string]hcl.Expression
	Requires  []string
	// Timeout is the per-job wall-clock cap, as a duration string.
	// Empty means no cap.
	Timeout string
}

// Resource is the format-agnostic representation of a `resource` block.
type Resource struct {
	AssetType string
	Name      string
	Arguments map[string]hcl.Expression
	Requires  []string
}

// --- Manifest Models ---

// TaskDefinition is the format-agnostic representation of a task's manifest.
type TaskDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
	Uses        map[string]*UsesDefinition
}

// AssetDefinition is the format-agnostic representation of an asset's manifest.
type AssetDefinition struct {
	Type        string
	Description string
	Lifecycle   *AssetLifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps a task's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// AssetLifecycle maps an asset's events to Go handler names.
type AssetLifecycle struct {
	Create  string
	Destroy string
}

// InputDefinition defines a single input argument for a task or asset.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output value from a task.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}

// UsesDefinition defines an asset dependency for a task.
type UsesDefinition struct {
	LocalName string
	AssetType string
}
