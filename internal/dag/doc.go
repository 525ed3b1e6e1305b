// Package dag builds and validates the job dependency graph for a workflow
// run. Nodes are jobs and shared resources; edges come from explicit
// `requires` lists and from implicit references to other jobs' outputs inside
// argument expressions. The graph produced here is static for the lifetime of
// a run: no nodes are added or removed once execution starts.
package dag
