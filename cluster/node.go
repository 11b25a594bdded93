package cluster

// Status is the lifecycle state of a cluster node as tracked by the harness.
type Status int

const (
	// StatusStopped is the status of a node that is not running.
	StatusStopped Status = iota + 1

	// StatusStarting is the status of a node that has been started but has
	// not reported ready yet.
	StatusStarting

	// StatusRunning is the status of a node that has reported ready.
	StatusRunning
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	default:
		return ""
	}
}

// Node represents a single cluster member. Nodes are owned by the Controller
// and mutated only by its start and update operations.
type Node struct {
	Index   int
	Version string
	Status  Status
}

// IsRunning returns true if the node has reported ready and has not been
// stopped since.
func (n *Node) IsRunning() bool {
	return n.Status == StatusRunning
}
