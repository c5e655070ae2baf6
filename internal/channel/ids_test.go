package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		assert.Len(t, id, 36)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestULIDGenerator_Format(t *testing.T) {
	id := ULIDGenerator{}.Generate()
	assert.Len(t, id, 26)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("req")
	assert.Equal(t, "req-1", g.Generate())
	assert.Equal(t, "req-2", g.Generate())
}

func TestNewGenerator(t *testing.T) {
	for _, name := range []string{"", "uuid", "ULID", "sequence"} {
		g, err := NewGenerator(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, g.Generate())
	}

	_, err := NewGenerator("snowflake")
	assert.Error(t, err)
}
