package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FileName = "tabclock.yaml"

	DefaultTickInterval = 30 * time.Second
	DefaultMinSegment   = time.Second
	DefaultMaxSegment   = 2 * time.Hour
	DefaultMaxSessions  = 10
	MinMaxSessions      = 1
	MaxMaxSessions      = 20
)

type Logging struct {
	Level  string
	Format string
}

type Config struct {
	DataDir    string
	DBPath     string
	ConfigPath string

	TickInterval time.Duration
	MinSegment   time.Duration
	MaxSegment   time.Duration
	MaxSessions  int

	DevToolsURL       string
	ListenAddr        string
	NewSessionOnStart bool

	Logging Logging
}

// fileConfig mirrors tabclock.yaml. Durations stay strings so a bad value can
// fall back to its default instead of failing the whole load.
type fileConfig struct {
	TickInterval      string `yaml:"tick_interval"`
	MinSegment        string `yaml:"min_segment"`
	MaxSegment        string `yaml:"max_segment"`
	MaxSessions       *int   `yaml:"max_sessions"`
	DevToolsURL       string `yaml:"devtools_url"`
	ListenAddr        string `yaml:"listen_addr"`
	NewSessionOnStart *bool  `yaml:"new_session_on_start"`
	Logging           struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "tabclock.db"),
		ConfigPath:   filepath.Join(dataDir, FileName),
		TickInterval: DefaultTickInterval,
		MinSegment:   DefaultMinSegment,
		MaxSegment:   DefaultMaxSegment,
		MaxSessions:  DefaultMaxSessions,
		Logging:      Logging{Level: "info", Format: "text"},
	}, nil
}

// Load returns defaults overlaid with <dataDir>/tabclock.yaml when present.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Clean(cfg.ConfigPath))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.apply(raw); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(raw []byte) error {
	file := fileConfig{}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	c.TickInterval = parseDuration(file.TickInterval, c.TickInterval)
	c.MinSegment = parseDuration(file.MinSegment, c.MinSegment)
	c.MaxSegment = parseDuration(file.MaxSegment, c.MaxSegment)
	if c.MaxSegment <= c.MinSegment {
		c.MinSegment, c.MaxSegment = DefaultMinSegment, DefaultMaxSegment
	}
	if file.MaxSessions != nil {
		c.MaxSessions = ClampMaxSessions(*file.MaxSessions)
	}
	if v := strings.TrimSpace(file.DevToolsURL); v != "" {
		c.DevToolsURL = v
	}
	if v := strings.TrimSpace(file.ListenAddr); v != "" {
		c.ListenAddr = v
	}
	if file.NewSessionOnStart != nil {
		c.NewSessionOnStart = *file.NewSessionOnStart
	}
	if v := strings.TrimSpace(file.Logging.Level); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(file.Logging.Format); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// ClampMaxSessions keeps the archive bound inside [1,20].
func ClampMaxSessions(n int) int {
	if n < MinMaxSessions {
		return MinMaxSessions
	}
	if n > MaxMaxSessions {
		return MaxMaxSessions
	}
	return n
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
