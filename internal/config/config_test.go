package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/platform"
	"github.com/roach88/agora/internal/recsys"
)

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Simulation.Steps)
	assert.Equal(t, int64(60), cfg.Simulation.TickStep)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 50*time.Millisecond, cfg.Inference.PollInterval.Std())
	assert.Equal(t, 2*time.Minute, cfg.Inference.Timeout.Std())
	assert.Equal(t, uint32(2), cfg.Inference.Breaker.Failures)
	assert.Equal(t, DefaultEchoReply, cfg.Inference.EchoReply, "omitted fields keep defaults")
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "Skeptical of everything.", cfg.Agents[1].Description)

	assert.Equal(t, []string{
		"http://10.0.0.1:8000/v1",
		"http://10.0.0.1:8001/v1",
		"http://10.0.0.2:8000/v1",
	}, cfg.EndpointURLs())

	pc, err := cfg.PlatformConfig()
	require.NoError(t, err)
	assert.Equal(t, recsys.Trending, pc.Recsys)
	assert.False(t, pc.AllowSelfRating)
	assert.True(t, pc.ShowScore)
	assert.Equal(t, "out.db", pc.SnapshotPath)

	clk, err := cfg.Clock()
	require.NoError(t, err)
	assert.Equal(t, clock.ModeTick, clk.Mode())

	ids, err := cfg.IDGenerator()
	require.NoError(t, err)
	assert.IsType(t, channel.ULIDGenerator{}, ids)
}

func TestParse_EmptyIsDefault(t *testing.T) {
	cfg, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	pc, err := cfg.PlatformConfig()
	require.NoError(t, err)
	assert.Equal(t, platform.DefaultConfig(), pc)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse("partial.yaml", []byte("platform:\n  trend_top_k: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Platform.TrendTopK)
	assert.True(t, cfg.Platform.AllowSelfRating)
	assert.Equal(t, "personalized", cfg.Platform.Recsys)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"unknown recsys", "platform:\n  recsys: tiktok\n", "platform.recsys"},
		{"unknown clock", "platform:\n  clock: sundial\n", "platform.clock"},
		{"rec_prob range", "platform:\n  rec_prob: 1.5\n", "platform.rec_prob"},
		{"negative count", "platform:\n  trend_top_k: -1\n", "platform.trend_top_k"},
		{"unknown field", "platform:\n  recsis: random\n", "platform.recsis"},
		{"bad duration", "inference:\n  poll_interval: soon\n", "inference.poll_interval"},
		{"port range", "inference:\n  endpoints:\n    - host: h\n      ports: [70000]\n", "inference.endpoints.0.ports.0"},
		{"agent without user name", "agents:\n  - name: X\n", "agents.0.user_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.yaml))
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidationError_Position(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		line int
	}{
		{"disjunction", "platform:\n  clock: sundial\n", 2},
		{"bound", "simulation:\n  seed: 1\n  activation_prob: 2\n", 3},
		{"nested list", "inference:\n  endpoints:\n    - host: h\n      ports: [70000]\n", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.yaml))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.True(t, ve.Pos.IsValid(), "no position for %s", ve.Field)
			assert.Equal(t, "bad.yaml", ve.Pos.Filename())
			assert.Equal(t, tt.line, ve.Pos.Line())
			assert.NotContains(t, ve.Field, "#")
		})
	}
}

func TestValidationError_DisjunctionMessage(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("platform:\n  clock: sundial\n"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "platform.clock", ve.Field)
	assert.Contains(t, err.Error(), "bad.yaml:2:")
	assert.Contains(t, ve.Message, "disjunction")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
