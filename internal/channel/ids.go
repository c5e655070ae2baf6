package channel

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces correlation identifiers. Implementations must be safe
// for concurrent use and must not repeat an identifier within a run.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ULIDGenerator generates lexicographically sortable ULIDs.
type ULIDGenerator struct{}

// Generate returns a 26-character ULID string.
func (ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// SequenceGenerator returns prefix-1, prefix-2, ... for deterministic runs
// such as golden traces.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a sequence generator with the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate implements IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// NewGenerator maps a configuration name to a generator.
func NewGenerator(name string) (IDGenerator, error) {
	switch strings.ToLower(name) {
	case "", "uuid", "uuidv7":
		return UUIDv7Generator{}, nil
	case "ulid":
		return ULIDGenerator{}, nil
	case "sequence", "seq":
		return NewSequenceGenerator("req"), nil
	default:
		return nil, fmt.Errorf("unknown id generator %q", name)
	}
}
