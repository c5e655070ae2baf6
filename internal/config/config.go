// Package config loads simulation configuration files.
//
// A file is YAML. It is first validated against an embedded CUE schema,
// which reports range and enum errors with file positions, then decoded
// strictly over Default so omitted fields keep their defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/agora/internal/agent"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/platform"
	"github.com/roach88/agora/internal/recsys"
	"github.com/roach88/agora/internal/store"
)

// Config is a complete simulation configuration.
type Config struct {
	Database   Database        `yaml:"database"`
	Platform   Platform        `yaml:"platform"`
	Simulation Simulation      `yaml:"simulation"`
	Inference  Inference       `yaml:"inference"`
	Gateway    Gateway         `yaml:"gateway"`
	Channel    Channel         `yaml:"channel"`
	Agents     []agent.Profile `yaml:"agents"`
}

// Database selects the store.
type Database struct {
	// Path is a SQLite file, or ":memory:" for a transient store.
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"`

	// Snapshot receives a copy of a transient store on exit.
	Snapshot string `yaml:"snapshot"`
}

// Platform holds the platform's behavioral settings.
type Platform struct {
	Recsys              string  `yaml:"recsys"`
	Clock               string  `yaml:"clock"`
	ClockFactor         float64 `yaml:"clock_factor"`
	ShowScore           bool    `yaml:"show_score"`
	AllowSelfRating     bool    `yaml:"allow_self_rating"`
	RefreshRecPostCount int     `yaml:"refresh_rec_post_count"`
	FollowingPostCount  int     `yaml:"following_post_count"`
	MaxRecPostLen       int     `yaml:"max_rec_post_len"`
	TrendNumDays        int     `yaml:"trend_num_days"`
	TrendTopK           int     `yaml:"trend_top_k"`
	RecProb             float64 `yaml:"rec_prob"`
}

// Simulation drives the timestep loop.
type Simulation struct {
	Steps      int     `yaml:"num_timesteps"`
	TickStep   int64   `yaml:"tick_step"`
	Activation float64 `yaml:"activation_prob"`
	Seed       uint64  `yaml:"seed"`
	Style      string  `yaml:"style"`
}

// Inference configures the worker pool and its backends.
type Inference struct {
	Model        string     `yaml:"model"`
	APIKey       string     `yaml:"api_key"`
	Endpoints    []Endpoint `yaml:"endpoints"`
	Stop         []string   `yaml:"stop"`
	Temperature  float64    `yaml:"temperature"`
	PollInterval Duration   `yaml:"poll_interval"`
	Timeout      Duration   `yaml:"timeout"`

	// EchoReply is returned by the offline backend used when no endpoints
	// are configured.
	EchoReply string `yaml:"echo_reply"`

	MaxAttempts  int     `yaml:"max_attempts"`
	MemoryWindow int     `yaml:"memory_window"`
	Breaker      Breaker `yaml:"breaker"`
}

// Endpoint is a model server host with one worker per port.
type Endpoint struct {
	Host  string `yaml:"host"`
	Ports []int  `yaml:"ports"`
}

// Breaker configures each worker's circuit breaker.
type Breaker struct {
	Failures uint32   `yaml:"failures"`
	Cooldown Duration `yaml:"cooldown"`
}

// Gateway configures the websocket server.
type Gateway struct {
	Listen string `yaml:"listen"`
}

// Channel configures the correlation channels.
type Channel struct {
	IDs string `yaml:"ids"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultEchoReply makes offline agents idle.
const DefaultEchoReply = `{"reason": "offline", "functions": [{"name": "do_nothing", "arguments": {}}]}`

// Default returns the stock configuration.
func Default() Config {
	pc := platform.DefaultConfig()
	return Config{
		Database: Database{
			Path:   store.MemoryPath,
			Driver: store.DriverCGO,
		},
		Platform: Platform{
			Recsys:              string(pc.Recsys),
			Clock:               string(clock.ModeSandbox),
			ClockFactor:         60,
			ShowScore:           pc.ShowScore,
			AllowSelfRating:     pc.AllowSelfRating,
			RefreshRecPostCount: pc.RefreshRecPostCount,
			FollowingPostCount:  pc.FollowingPostCount,
			MaxRecPostLen:       pc.MaxRecPostLen,
			TrendNumDays:        pc.TrendNumDays,
			TrendTopK:           pc.TrendTopK,
			RecProb:             pc.RecProb,
		},
		Simulation: Simulation{
			Steps:      3,
			TickStep:   1,
			Activation: 1,
			Seed:       1,
			Style:      string(agent.StyleTwitter),
		},
		Inference: Inference{
			PollInterval: Duration(10 * time.Millisecond),
			EchoReply:    DefaultEchoReply,
			MaxAttempts:  agent.DefaultMaxAttempts,
			MemoryWindow: agent.DefaultMemoryWindow,
			Breaker: Breaker{
				Failures: 5,
				Cooldown: Duration(30 * time.Second),
			},
		},
		Gateway: Gateway{Listen: "127.0.0.1:8080"},
		Channel: Channel{IDs: "uuid"},
	}
}

// Load reads, validates and decodes the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes data. name labels error positions.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}
	if err := Validate(name, data); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// PlatformConfig converts the platform and database sections.
func (c *Config) PlatformConfig() (platform.Config, error) {
	strategy, err := recsys.ParseStrategy(c.Platform.Recsys)
	if err != nil {
		return platform.Config{}, err
	}
	return platform.Config{
		Recsys:              strategy,
		ShowScore:           c.Platform.ShowScore,
		AllowSelfRating:     c.Platform.AllowSelfRating,
		RefreshRecPostCount: c.Platform.RefreshRecPostCount,
		FollowingPostCount:  c.Platform.FollowingPostCount,
		MaxRecPostLen:       c.Platform.MaxRecPostLen,
		TrendNumDays:        c.Platform.TrendNumDays,
		TrendTopK:           c.Platform.TrendTopK,
		RecProb:             c.Platform.RecProb,
		SnapshotPath:        c.Database.Snapshot,
	}, nil
}

// Clock builds the configured time provider.
func (c *Config) Clock() (clock.Provider, error) {
	mode, err := clock.ParseMode(c.Platform.Clock)
	if err != nil {
		return nil, err
	}
	if mode == clock.ModeTick {
		return clock.NewTickClock(0), nil
	}
	return clock.NewSandboxClock(c.Platform.ClockFactor), nil
}

// IDGenerator builds the configured correlation ID source.
func (c *Config) IDGenerator() (channel.IDGenerator, error) {
	return channel.NewGenerator(c.Channel.IDs)
}

// EndpointURLs expands every host/port pair into an API base URL.
func (c *Config) EndpointURLs() []string {
	var urls []string
	for _, ep := range c.Inference.Endpoints {
		for _, port := range ep.Ports {
			urls = append(urls, fmt.Sprintf("http://%s:%d/v1", ep.Host, port))
		}
	}
	return urls
}
