package dag

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/seqci/internal/config"
)

// NodeType distinguishes runnable jobs from managed resources.
type NodeType int

const (
	// JobNode is a stateless, runnable unit of work.
	JobNode NodeType = iota
	// ResourceNode is a stateful asset with create/destroy lifecycle.
	ResourceNode
)

// State describes a node's position in its execution lifecycle.
type State int32

const (
	// Pending nodes have not been picked up by a worker yet.
	Pending State = iota
	// Running nodes are executing.
	Running
	// Done nodes completed successfully.
	Done
	// Failed nodes returned an error or were skipped due to upstream failure.
	Failed
)

// String returns the lowercase name of the state for logs and the event stream.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Graph is the validated dependency graph for a single workflow run.
type Graph struct {
	Nodes map[string]*Node
}

// Node is a single vertex in the graph: one job or one resource.
type Node struct {
	ID   string
	Name string
	Type NodeType

	JobConfig      *config.Job
	ResourceConfig *config.Resource

	Deps       map[string]*Node
	Dependents map[string]*Node

	// Timeout is the per-job wall-clock cap parsed from the config.
	// Zero means no cap.
	Timeout time.Duration

	// Output holds the handler's converted result once the node is Done.
	// It is written by exactly one worker and read only by dependents, which
	// are unblocked strictly afterwards.
	Output any
	Error  error

	state atomic.Int32

	// depCount tracks unfinished dependencies; the node becomes ready at zero.
	depCount atomic.Int32
	// descendantCount tracks unfinished dependents of a resource; the
	// resource is destroyed once it reaches zero.
	descendantCount atomic.Int32

	skipOnce    sync.Once
	destroyOnce sync.Once
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState transitions the node to the given state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// DecrementDepCount atomically decrements the outstanding dependency counter
// and returns the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DecrementDescendantCount atomically decrements the outstanding dependent
// counter and returns the new value.
func (n *Node) DecrementDescendantCount() int32 {
	return n.descendantCount.Add(-1)
}

// DepCount returns the current outstanding dependency count.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// SkipOnce runs fn at most once for this node. Used when marking a node as
// skipped so concurrent workers cannot double-count it.
func (n *Node) SkipOnce(fn func()) {
	n.skipOnce.Do(fn)
}

// DestroyOnce runs fn at most once for this node. Used so eager resource
// destruction and the final cleanup sweep cannot both fire.
func (n *Node) DestroyOnce(fn func()) {
	n.destroyOnce.Do(fn)
}

// SetInitialCounters primes the dependency and descendant counters from the
// linked graph structure. Must be called after linking, before execution.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
	n.descendantCount.Store(int32(len(n.Dependents)))
}
