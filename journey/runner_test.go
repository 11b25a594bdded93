package journey

import (
	"context"
	"errors"
	"fmt"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/journey/versions"
)

// scriptedRun records every call of the journey in order and fails the ones
// listed in failOn.
type scriptedRun struct {
	calls  []string
	failOn map[string]error
}

func newScriptedRun() *scriptedRun {
	return &scriptedRun{failOn: make(map[string]error)}
}

func (s *scriptedRun) call(name string) error {
	s.calls = append(s.calls, name)

	if err, ok := s.failOn[name]; ok {
		return err
	}

	return nil
}

type scriptedCluster struct{ run *scriptedRun }

func (c *scriptedCluster) StartAllNodes(ctx context.Context, version string) error {
	return c.run.call("start:" + version)
}

func (c *scriptedCluster) RollingUpdate(ctx context.Context, target string) error {
	return c.run.call("update:" + target)
}

type scriptedWorkload struct{ run *scriptedRun }

func (w *scriptedWorkload) CreateSchema(ctx context.Context) error {
	return w.run.call("schema")
}

func (w *scriptedWorkload) Import(ctx context.Context, version string, objectCount int64) error {
	return w.run.call(fmt.Sprintf("import:%s:%d", version, objectCount))
}

type scriptedVerifier struct{ run *scriptedRun }

func (v *scriptedVerifier) FindEachImported(ctx context.Context, seq versions.Sequence, upto int) error {
	return v.run.call(fmt.Sprintf("find:%d", upto))
}

func (v *scriptedVerifier) AggregateObjects(ctx context.Context, expected int64) error {
	return v.run.call(fmt.Sprintf("aggregate:%d", expected))
}

func newTestRunner(t *testing.T, run *scriptedRun, entries ...string) *Runner {
	t.Helper()

	seq, err := versions.New(entries)
	require.NoError(t, err)

	return NewRunner(
		seq,
		&scriptedCluster{run: run},
		&scriptedWorkload{run: run},
		&scriptedVerifier{run: run},
		kitlog.NewNopLogger(),
	)
}

func TestRunner_Completed(t *testing.T) {
	run := newScriptedRun()
	runner := newTestRunner(t, run, "1.0", "1.1", "1.2")

	result := runner.Run(context.Background())

	require.Equal(t, StateCompleted, result.State)
	require.Equal(t, 3, result.Steps)
	require.Equal(t, -1, result.FailedStep)
	require.Equal(t, "1.2", result.ToVersion)
	require.NoError(t, result.Err)

	// The schema is created exactly once, on the bootstrap step, and every
	// step re-verifies the entire history written so far.
	want := []string{
		"start:1.0", "schema", "import:1.0:0", "find:0", "aggregate:1",
		"update:1.1", "import:1.1:1", "find:1", "aggregate:2",
		"update:1.2", "import:1.2:2", "find:2", "aggregate:3",
	}
	require.Equal(t, want, run.calls)
}

func TestRunner_RollingUpdateFails(t *testing.T) {
	run := newScriptedRun()
	errUpdate := errors.New("node 2 failed to rejoin")
	run.failOn["update:1.1"] = errUpdate

	runner := newTestRunner(t, run, "1.0", "1.1", "1.2")
	result := runner.Run(context.Background())

	require.Equal(t, StateFailed, result.State)
	require.True(t, result.Failed())
	require.Equal(t, 1, result.FailedStep)
	require.Equal(t, 1, result.Steps)
	require.Equal(t, "1.0", result.FromVersion)
	require.Equal(t, "1.1", result.ToVersion)
	require.ErrorIs(t, result.Err, errUpdate)

	// Nothing runs past the first failure.
	require.Equal(t, "update:1.1", run.calls[len(run.calls)-1])
}

func TestRunner_SchemaFails(t *testing.T) {
	run := newScriptedRun()
	errSchema := errors.New("class already exists")
	run.failOn["schema"] = errSchema

	runner := newTestRunner(t, run, "1.0", "1.1")
	result := runner.Run(context.Background())

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, 0, result.FailedStep)
	require.Equal(t, "", result.FromVersion)
	require.Equal(t, "1.0", result.ToVersion)
	require.ErrorIs(t, result.Err, errSchema)
}

func TestRunner_VerificationFails(t *testing.T) {
	run := newScriptedRun()
	errLoss := errors.New("data loss: version 1.0")
	run.failOn["find:1"] = errLoss

	runner := newTestRunner(t, run, "1.0", "1.1", "1.2")
	result := runner.Run(context.Background())

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, 1, result.FailedStep)
	require.ErrorIs(t, result.Err, errLoss)

	// The failing verification is the last thing that ran.
	require.Equal(t, "find:1", run.calls[len(run.calls)-1])
}

func TestRunner_SingleVersion(t *testing.T) {
	run := newScriptedRun()
	runner := newTestRunner(t, run, "1.0")

	result := runner.Run(context.Background())

	require.Equal(t, StateCompleted, result.State)
	require.Equal(t, []string{"start:1.0", "schema", "import:1.0:0", "find:0", "aggregate:1"}, run.calls)
}
