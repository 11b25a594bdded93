package versions

import (
	"errors"
	"strings"

	"golang.org/x/exp/slices"
)

// ErrEmptySequence is returned when a sequence is created with no entries.
// A run with nothing to upgrade to is invalid rather than a no-op.
var ErrEmptySequence = errors.New("version sequence must not be empty")

// Sequence is an ordered list of version identifiers. The first entry is the
// bootstrap version, the rest are upgrade targets applied strictly in order.
type Sequence struct {
	entries []string
}

// New builds a sequence from the given entries. Duplicates are removed, the
// first occurrence wins, so each version appears in the sequence exactly once
// and can later be used as a unique record tag.
func New(entries []string) (Sequence, error) {
	deduped := make([]string, 0, len(entries))

	for _, v := range entries {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if !slices.Contains(deduped, v) {
			deduped = append(deduped, v)
		}
	}

	if len(deduped) == 0 {
		return Sequence{}, ErrEmptySequence
	}

	return Sequence{entries: deduped}, nil
}

// Parse builds a sequence from a comma-separated string.
func Parse(s string) (Sequence, error) {
	return New(strings.Split(s, ","))
}

// Bootstrap returns the first version of the sequence, the one the cluster
// is initially started with.
func (s Sequence) Bootstrap() string {
	return s.entries[0]
}

// At returns the version at the given step index.
func (s Sequence) At(i int) string {
	return s.entries[i]
}

// Len returns the number of steps in the sequence.
func (s Sequence) Len() int {
	return len(s.entries)
}

// All returns a copy of the underlying entries.
func (s Sequence) All() []string {
	return slices.Clone(s.entries)
}

func (s Sequence) String() string {
	return strings.Join(s.entries, ",")
}
