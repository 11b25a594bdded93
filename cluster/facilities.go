package cluster

import "context"

// NodeRuntime manages the processes behind cluster nodes. It is implemented
// by whatever container or orchestration layer runs the service under test.
type NodeRuntime interface {
	// StartNode brings up the node with the given index running the given
	// version. The node may not be ready to serve traffic when the call
	// returns.
	StartNode(ctx context.Context, index int, version string) error

	// StopNode stops the node with the given index and releases its
	// resources so that a replacement can take its place.
	StopNode(ctx context.Context, index int) error
}

// HealthChecker probes the readiness of individual nodes. A call is a single
// probe; the bounded waiting discipline lives in the Controller.
type HealthChecker interface {
	NodeReady(ctx context.Context, index int) error
}
