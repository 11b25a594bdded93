package verify

import (
	"context"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/juju/clock"

	"github.com/maxpoletaev/journey/dataclient"
	"github.com/maxpoletaev/journey/internal/poll"
	"github.com/maxpoletaev/journey/versions"
	"github.com/maxpoletaev/journey/workload"
)

// Config holds the parameters of a verifier. The read retry bounds cover the
// service's read-after-write visibility lag: a freshly written record may not
// be immediately readable, so a not-found result is retried a few times
// before it is declared data loss.
type Config struct {
	Logger       kitlog.Logger
	Clock        clock.Clock
	ReadInterval time.Duration
	ReadAttempts int
}

// DefaultConfig returns a config with sane retry defaults.
func DefaultConfig() Config {
	return Config{
		Logger:       kitlog.NewNopLogger(),
		Clock:        clock.WallClock,
		ReadInterval: time.Second,
		ReadAttempts: 5,
	}
}

// Verifier re-reads previously written records and cross-checks the service's
// aggregate count against the harness's write counter. All of its operations
// are read-only.
type Verifier struct {
	client dataclient.Client
	logger kitlog.Logger
	clock  clock.Clock

	readInterval time.Duration
	readAttempts int
}

// New creates a verifier on top of the given data client.
func New(client dataclient.Client, conf Config) *Verifier {
	return &Verifier{
		client:       client,
		logger:       conf.Logger,
		clock:        conf.Clock,
		readInterval: conf.ReadInterval,
		readAttempts: conf.ReadAttempts,
	}
}

// FindEachImported issues a filtered read for every version index 0..upto and
// requires exactly one intact record per version. The whole range is re-read
// on every call rather than incrementally: the point is to catch records that
// were retrievable after an earlier step and have been lost since.
func (v *Verifier) FindEachImported(ctx context.Context, seq versions.Sequence, upto int) error {
	for i := 0; i <= upto; i++ {
		version := seq.At(i)

		if err := v.findVersion(ctx, version); err != nil {
			return err
		}

		level.Debug(v.logger).Log("msg", "object verified", "version", version)
	}

	return nil
}

// AggregateObjects asks the service to count all records and requires the
// result to equal the expected write counter.
func (v *Verifier) AggregateObjects(ctx context.Context, expected int64) error {
	actual, err := v.client.Aggregate(ctx, workload.ClassName)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	if actual != expected {
		return &AggregateMismatchError{Expected: expected, Actual: actual}
	}

	level.Debug(v.logger).Log("msg", "aggregate verified", "count", actual)

	return nil
}

func (v *Verifier) findVersion(ctx context.Context, version string) error {
	cfg := poll.Config{
		Interval: v.readInterval,
		Attempts: v.readAttempts,
		Clock:    v.clock,
	}

	filter := dataclient.Filter{
		Field: workload.FieldVersion,
		Equal: version,
	}

	fields := []string{workload.FieldVersion, workload.FieldObjectCount}

	// Mismatches and duplicates are terminal: retrying cannot fix a record
	// holding the wrong value, only a record that is not visible yet.
	var fatal error

	err := poll.Until(ctx, cfg, fmt.Sprintf("version %s visible", version), func(ctx context.Context) error {
		objects, err := v.client.Query(ctx, workload.ClassName, filter, fields)
		if err != nil {
			return err
		}

		switch {
		case len(objects) == 0:
			return fmt.Errorf("no records found")
		case len(objects) > 1:
			fatal = fmt.Errorf("found %d records, want exactly one", len(objects))
			return nil
		}

		if got, _ := objects[0].Properties[workload.FieldVersion].(string); got != version {
			fatal = fmt.Errorf("version field holds %q", got)
		}

		return nil
	})
	if err != nil {
		return &DataLossError{Version: version, Err: err}
	}

	if fatal != nil {
		return &DataLossError{Version: version, Err: fatal}
	}

	return nil
}
