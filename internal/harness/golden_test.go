package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	s := loadTestdata(t, "like_lifecycle.yaml")

	first, err := runScenario(t, s)
	require.NoError(t, err)
	second, err := runScenario(t, s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(s.Name, second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestMarshalSnapshot_NoHTMLEscaping(t *testing.T) {
	res := NewResult()
	res.Trace = append(res.Trace, TraceEvent{Seq: 1, Action: "create_post", Info: map[string]any{"content": "a < b & c"}})

	data, err := MarshalSnapshot("escape", res)
	require.NoError(t, err)
	require.Contains(t, string(data), `"a < b & c"`)
	require.Equal(t, byte('\n'), data[len(data)-1])
}
