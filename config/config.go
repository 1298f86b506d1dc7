// Package config loads the TOML configuration and the credentials file.
// Settings come from built-in defaults, then the config file, then the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultConfigPath = "uploadwatch.toml"

type Config struct {
	Interval         string          `toml:"interval"`
	Offset           string          `toml:"offset"`
	KeysFile         string          `toml:"keys_file"`
	PageSize         int             `toml:"page_size"`
	QueueLimit       int             `toml:"queue_limit"`
	Backpressure     string          `toml:"backpressure"`
	StaleGuard       bool            `toml:"stale_guard"`
	WalkRetries      int             `toml:"walk_retries"`
	ResyncLimit      int             `toml:"resync_limit"`
	SnapshotRestarts int             `toml:"snapshot_restarts"`
	MaxBackoff       string          `toml:"max_backoff"`
	AttemptTimeout   string          `toml:"attempt_timeout"`
	SubmitInterval   string          `toml:"submit_interval"`
	PostgresDSN      string          `toml:"postgres_dsn"`
	Channels         []ChannelConfig `toml:"channel"`
}

type ChannelConfig struct {
	Name      string `toml:"name"`
	Playlist  string `toml:"playlist"`
	Subreddit string `toml:"subreddit"`
}

// Settings is a validated Config with durations parsed.
type Settings struct {
	Interval         time.Duration
	Offset           time.Duration
	KeysFile         string
	PageSize         int
	QueueLimit       int
	Backpressure     string
	StaleGuard       bool
	WalkRetries      int
	ResyncLimit      int
	SnapshotRestarts int
	MaxBackoff       time.Duration
	AttemptTimeout   time.Duration
	SubmitInterval   time.Duration
	PostgresDSN      string
	Channels         []ChannelConfig
}

func DefaultConfig() *Config {
	return &Config{
		Interval:         "20s",
		Offset:           "5s",
		KeysFile:         "keys.txt",
		PageSize:         50,
		QueueLimit:       3,
		Backpressure:     "fatal",
		StaleGuard:       true,
		WalkRetries:      5,
		ResyncLimit:      5,
		SnapshotRestarts: 10,
		MaxBackoff:       "10m",
		AttemptTimeout:   "30s",
		SubmitInterval:   "10s",
	}
}

func defaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: "Game Grumps", Playlist: "UU9CuvdOVfMPvKCiwdGKL3cQ", Subreddit: "gamegrumps"},
		{Name: "Grump Out", Playlist: "UUAQ0o3l-H3y_n56C3yJ9EHA", Subreddit: "gamegrumps"},
	}
}

// Load reads and validates a TOML config file. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = defaultChannels()
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to the defaults,
// which watch the two Game Grumps channels.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.Channels = defaultChannels()
		return cfg, nil
	}

	return Load(path)
}

// ApplyEnv overrides file settings with environment variables.
func (c *Config) ApplyEnv() {
	c.KeysFile = getParam("UPLOADWATCH_KEYS", c.KeysFile)
	c.PostgresDSN = getParam("POSTGRES_DSN", c.PostgresDSN)
	c.Interval = getParam("UPLOADWATCH_INTERVAL", c.Interval)
	c.Offset = getParam("UPLOADWATCH_OFFSET", c.Offset)
}

// Settings validates the config and returns it with parsed values.
func (c *Config) Settings() (Settings, error) {
	s := Settings{
		KeysFile:         c.KeysFile,
		PageSize:         c.PageSize,
		QueueLimit:       c.QueueLimit,
		Backpressure:     c.Backpressure,
		StaleGuard:       c.StaleGuard,
		WalkRetries:      c.WalkRetries,
		ResyncLimit:      c.ResyncLimit,
		SnapshotRestarts: c.SnapshotRestarts,
		PostgresDSN:      c.PostgresDSN,
		Channels:         c.Channels,
	}

	var errs []error
	for _, d := range []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"interval", c.Interval, &s.Interval},
		{"offset", c.Offset, &s.Offset},
		{"max_backoff", c.MaxBackoff, &s.MaxBackoff},
		{"attempt_timeout", c.AttemptTimeout, &s.AttemptTimeout},
		{"submit_interval", c.SubmitInterval, &s.SubmitInterval},
	} {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		*d.dest = v
	}
	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

func (s Settings) validate() error {
	var errs []error
	switch {
	case s.Interval <= 0 || s.Interval > time.Minute:
		errs = append(errs, fmt.Errorf("interval must be between 0 and 1m, got %s", s.Interval))
	case time.Minute%s.Interval != 0:
		errs = append(errs, fmt.Errorf("interval must divide a minute, got %s", s.Interval))
	case s.Offset < 0 || s.Offset >= s.Interval:
		errs = append(errs, fmt.Errorf("offset must be at least 0 and less than interval, got %s", s.Offset))
	}
	if s.KeysFile == "" {
		errs = append(errs, errors.New("keys_file must be set"))
	}
	if s.PageSize < 1 || s.PageSize > 50 {
		errs = append(errs, fmt.Errorf("page_size must be between 1 and 50, got %d", s.PageSize))
	}
	if s.QueueLimit < 1 {
		errs = append(errs, fmt.Errorf("queue_limit must be positive, got %d", s.QueueLimit))
	}
	if s.Backpressure != "fatal" && s.Backpressure != "cap" {
		errs = append(errs, fmt.Errorf("backpressure must be \"fatal\" or \"cap\", got %q", s.Backpressure))
	}
	if s.WalkRetries < 0 || s.ResyncLimit < 0 || s.SnapshotRestarts < 0 {
		errs = append(errs, errors.New("walk_retries, resync_limit and snapshot_restarts must not be negative"))
	}
	if s.MaxBackoff < time.Second {
		errs = append(errs, fmt.Errorf("max_backoff must be at least 1s, got %s", s.MaxBackoff))
	}
	if s.AttemptTimeout < 0 || s.SubmitInterval < 0 {
		errs = append(errs, errors.New("attempt_timeout and submit_interval must not be negative"))
	}

	if len(s.Channels) == 0 {
		errs = append(errs, errors.New("at least one channel is required"))
	}
	playlists := map[string]bool{}
	for i, ch := range s.Channels {
		if ch.Name == "" || ch.Playlist == "" || ch.Subreddit == "" {
			errs = append(errs, fmt.Errorf("channel %d: name, playlist and subreddit are required", i+1))
			continue
		}
		if playlists[ch.Playlist] {
			errs = append(errs, fmt.Errorf("channel %s: playlist %s is listed twice", ch.Name, ch.Playlist))
		}
		playlists[ch.Playlist] = true
	}

	return errors.Join(errs...)
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}
