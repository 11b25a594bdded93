package journey

// State is the phase of the upgrade journey state machine.
type State int

const (
	// StateBootstrapping is the first step: all nodes started together at
	// the bootstrap version, no prior state to protect.
	StateBootstrapping State = iota + 1

	// StateUpgrading covers every subsequent step: rolling update to the
	// next version of the sequence.
	StateUpgrading

	// StateCompleted means every step was verified.
	StateCompleted

	// StateFailed means a step failed and the run was aborted. A cluster
	// that failed a step is no longer trustworthy for verification, so there
	// is no partial success.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateUpgrading:
		return "upgrading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return ""
	}
}

// RunState holds the only counters that survive across steps. Everything
// else lives in the service under test.
type RunState struct {
	ObjectsCreated int64
	StepIndex      int
}

// Result is the terminal outcome of a run.
type Result struct {
	State       State
	Steps       int    // number of fully verified steps
	FailedStep  int    // index of the failing step, -1 on success
	FromVersion string // cluster version before the failing step, if any
	ToVersion   string // version the failing step was moving to
	Err         error
}

// Failed reports whether the run ended in the failed state.
func (r Result) Failed() bool {
	return r.State == StateFailed
}
