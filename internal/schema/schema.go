// Package schema defines the HCL-facing structs that workflow and manifest
// files are decoded into before translation to the agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Primary Pipeline Structures ---

// JobArgs represents the content of the 'arguments' block within a job.
type JobArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// UsesBlock represents the content of the 'uses' block within a job.
type UsesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Job represents a `job` block from a user's workflow file. It is a runnable
// instance of a defined task.
type Job struct {
	TaskType  string     `hcl:"task_type,label"`
	Name      string     `hcl:"name,label"`
	Arguments *JobArgs   `hcl:"arguments,block"`
	Uses      *UsesBlock `hcl:"uses,block"`
	Requires  []string   `hcl:"requires,optional"`
	Timeout   string     `hcl:"timeout,optional"`
}

// Resource represents a `resource` block from a user's workflow file. It is
// a managed, stateful instance of a defined asset.
type Resource struct {
	AssetType string   `hcl:"asset_type,label"`
	Name      string   `hcl:"name,label"`
	Arguments *JobArgs `hcl:"arguments,block"`
	Requires  []string `hcl:"requires,optional"`
}

// --- Module Manifest Schemas ---

// Lifecycle defines the mapping from a task's lifecycle event to a
// registered Go handler function.
type Lifecycle struct {
	OnRun string `hcl:"on_run,optional"`
}

// AssetLifecycle defines the mapping from an asset's lifecycle events
// (create, destroy) to registered Go handler functions.
type AssetLifecycle struct {
	Create  string `hcl:"create"`
	Destroy string `hcl:"destroy"`
}

// InputDefinition defines a single input variable for a task or asset.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
}

// OutputDefinition defines a single output value produced by a task or asset.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// UsesDefinition defines an asset dependency required by a task.
type UsesDefinition struct {
	LocalName string `hcl:"local_name,label"`
	AssetType string `hcl:"asset_type"`
}

// TaskDefinition represents the HCL manifest for a runnable `task` type.
type TaskDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
	Uses        []*UsesDefinition   `hcl:"uses,block"`
}

// AssetDefinition represents the HCL manifest for a stateful `asset` type.
type AssetDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *AssetLifecycle     `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}
