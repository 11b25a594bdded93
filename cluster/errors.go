package cluster

import (
	"errors"
	"fmt"
)

// ErrClusterStart is returned when the initial cluster bootstrap fails,
// either because a node could not be started or because it did not report
// ready within the attempt budget.
var ErrClusterStart = errors.New("cluster failed to start")

// RollingUpdateError is returned when a node fails to rejoin the cluster
// during a rolling update. The update stops at the failing node, leaving the
// cluster in a mixed-version state that the caller must treat as fatal.
type RollingUpdateError struct {
	NodeIndex int
	Err       error
}

func (e *RollingUpdateError) Error() string {
	return fmt.Sprintf("rolling update: node %d failed to rejoin: %v", e.NodeIndex, e.Err)
}

func (e *RollingUpdateError) Unwrap() error {
	return e.Err
}
