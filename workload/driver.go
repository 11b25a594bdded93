package workload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/twmb/murmur3"

	"github.com/maxpoletaev/journey/dataclient"
)

const (
	// ClassName is the class all harness records are written into.
	ClassName = "Collection"

	// FieldVersion holds the version tag the record was written under.
	FieldVersion = "version"

	// FieldObjectCount holds the value of the write counter at write time.
	FieldObjectCount = "object_count"
)

var (
	// ErrSchema is returned when the service rejects the class definition.
	ErrSchema = errors.New("schema creation failed")

	// ErrImport is returned when the service rejects a record write.
	ErrImport = errors.New("import failed")
)

// Driver writes the version-tagged workload into the service under test.
type Driver struct {
	client dataclient.Client
	logger kitlog.Logger
}

// New creates a workload driver on top of the given data client.
func New(client dataclient.Client, logger kitlog.Logger) *Driver {
	return &Driver{
		client: client,
		logger: logger,
	}
}

// CreateSchema defines the record class. It is called exactly once, on the
// bootstrap step, and expects a fresh cluster: an already existing class is
// surfaced as an error rather than swallowed.
func (d *Driver) CreateSchema(ctx context.Context) error {
	schema := dataclient.Schema{
		Class: ClassName,
		Properties: []dataclient.Property{
			{Name: FieldVersion, DataType: "string"},
			{Name: FieldObjectCount, DataType: "int"},
		},
	}

	if err := d.client.CreateClass(ctx, schema); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	level.Info(d.logger).Log("msg", "schema created", "class", ClassName)

	return nil
}

// Import writes one record tagged with the given version. The objectCount
// argument is the run's write counter at the time of the write; the counter
// itself is owned by the run coordinator.
func (d *Driver) Import(ctx context.Context, version string, objectCount int64) error {
	obj := dataclient.Object{
		ID: ObjectID(version),
		Properties: map[string]interface{}{
			FieldVersion:     version,
			FieldObjectCount: objectCount,
		},
	}

	if err := d.client.CreateObject(ctx, ClassName, obj); err != nil {
		return fmt.Errorf("%w: version %s: %w", ErrImport, version, err)
	}

	level.Info(d.logger).Log("msg", "object imported", "version", version, "object_count", objectCount)

	return nil
}

// ObjectID derives a deterministic object ID from the version tag, so that a
// misbehaving run importing the same version twice collides on the ID instead
// of leaving a silent duplicate behind.
func ObjectID(version string) string {
	h1, h2 := murmur3.StringSum128(version)

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], h1)
	binary.BigEndian.PutUint64(b[8:], h2)

	// Stamp the RFC 4122 version and variant bits so the service accepts the
	// value as a regular v4 UUID.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	id, err := uuid.FromBytes(b[:])
	if err != nil {
		panic(err) // unreachable: the input is always 16 bytes
	}

	return id.String()
}
