package verify

import "fmt"

// DataLossError is the primary signal the harness exists to produce: a record
// written under the named version can no longer be retrieved intact.
type DataLossError struct {
	Version string
	Err     error
}

func (e *DataLossError) Error() string {
	return fmt.Sprintf("data loss: version %s: %v", e.Version, e.Err)
}

func (e *DataLossError) Unwrap() error {
	return e.Err
}

// AggregateMismatchError is returned when the service-computed record count
// diverges from the harness's own write counter.
type AggregateMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *AggregateMismatchError) Error() string {
	return fmt.Sprintf("aggregate mismatch: want %d objects, got %d", e.Expected, e.Actual)
}
