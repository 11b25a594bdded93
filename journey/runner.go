package journey

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/journey/versions"
)

// Cluster is the lifecycle surface the runner drives.
type Cluster interface {
	StartAllNodes(ctx context.Context, version string) error
	RollingUpdate(ctx context.Context, target string) error
}

// Workload writes the per-step test records.
type Workload interface {
	CreateSchema(ctx context.Context) error
	Import(ctx context.Context, version string, objectCount int64) error
}

// Verifier checks that previously written records are still intact.
type Verifier interface {
	FindEachImported(ctx context.Context, seq versions.Sequence, upto int) error
	AggregateObjects(ctx context.Context, expected int64) error
}

// Runner sequences the upgrade journey: for every version of the sequence it
// performs the cluster transition, writes one record, and verifies all
// records written so far. The first error of any sub-operation is terminal.
type Runner struct {
	seq      versions.Sequence
	cluster  Cluster
	workload Workload
	verifier Verifier
	logger   kitlog.Logger
}

// NewRunner assembles a runner from its collaborators.
func NewRunner(
	seq versions.Sequence,
	cluster Cluster,
	workload Workload,
	verifier Verifier,
	logger kitlog.Logger,
) *Runner {
	return &Runner{
		seq:      seq,
		cluster:  cluster,
		workload: workload,
		verifier: verifier,
		logger:   logger,
	}
}

// Run drives the journey to one of the two terminal states. The returned
// result carries the failing step index and the version pair involved, so
// the enclosing tool can report it and map it to an exit code.
func (r *Runner) Run(ctx context.Context) Result {
	state := RunState{}
	fromVersion := ""

	for i := 0; i < r.seq.Len(); i++ {
		target := r.seq.At(i)
		state.StepIndex = i

		phase := StateUpgrading
		if i == 0 {
			phase = StateBootstrapping
		}

		level.Info(r.logger).Log(
			"msg", "step started",
			"phase", phase,
			"step", i,
			"from", fromVersion,
			"to", target,
		)

		if err := r.step(ctx, &state, i, target); err != nil {
			level.Error(r.logger).Log(
				"msg", "run failed",
				"step", i,
				"from", fromVersion,
				"to", target,
				"err", err,
			)

			return Result{
				State:       StateFailed,
				Steps:       i,
				FailedStep:  i,
				FromVersion: fromVersion,
				ToVersion:   target,
				Err:         err,
			}
		}

		level.Info(r.logger).Log("msg", "step verified", "step", i, "version", target)

		fromVersion = target
	}

	level.Info(r.logger).Log("msg", "run completed", "steps", r.seq.Len())

	return Result{
		State:      StateCompleted,
		Steps:      r.seq.Len(),
		FailedStep: -1,
		ToVersion:  fromVersion,
	}
}

func (r *Runner) step(ctx context.Context, state *RunState, i int, target string) error {
	if i == 0 {
		if err := r.cluster.StartAllNodes(ctx, target); err != nil {
			return err
		}

		if err := r.workload.CreateSchema(ctx); err != nil {
			return err
		}
	} else {
		if err := r.cluster.RollingUpdate(ctx, target); err != nil {
			return err
		}
	}

	if err := r.workload.Import(ctx, target, state.ObjectsCreated); err != nil {
		return err
	}

	state.ObjectsCreated++

	if err := r.verifier.FindEachImported(ctx, r.seq, i); err != nil {
		return err
	}

	return r.verifier.AggregateObjects(ctx, state.ObjectsCreated)
}
