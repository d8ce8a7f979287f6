package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/bshape/internal/logger"
)

// Submission modes.
const (
	ModeLocal = "local" // write submissions to the SQLite store
	ModeHTTP  = "http"  // POST submissions to a persistence endpoint
)

// SubmissionConfig controls where completed assessments are sent.
type SubmissionConfig struct {
	// Mode is "local" or "http".
	Mode string `yaml:"mode"`

	// DBPath is the SQLite database used in local mode and by the server.
	DBPath string `yaml:"db_path"`

	// Endpoint is the persistence endpoint URL used in http mode.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single submission request.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig controls the persistence endpoint server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// RateLimit is the sustained submissions per second allowed per client (0 = unlimited).
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the number of submissions a client may make at once.
	Burst int `yaml:"burst"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Config represents bshape configuration options.
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogDir is where the server writes its log files.
	LogDir string `yaml:"log_dir"`

	// DraftPath is the file holding the in-progress session.
	DraftPath string `yaml:"draft_path"`

	Submission SubmissionConfig `yaml:"submission"`
	Server     ServerConfig     `yaml:"server"`
}

// DefaultConfig returns a Config with default values.
// Relative paths are resolved against the bshape home by ResolvePaths.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogDir:    "logs",
		DraftPath: "draft.json",
		Submission: SubmissionConfig{
			Mode:    ModeLocal,
			DBPath:  "submissions.db",
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 1,
			Burst:     5,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed file is an error.
// Values present in the file override the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are read as strings so "30s" style values parse
	type yamlSubmission struct {
		Mode     string `yaml:"mode"`
		DBPath   string `yaml:"db_path"`
		Endpoint string `yaml:"endpoint"`
		Timeout  string `yaml:"timeout"`
	}
	type yamlConfig struct {
		LogLevel   string         `yaml:"log_level"`
		LogDir     string         `yaml:"log_dir"`
		DraftPath  string         `yaml:"draft_path"`
		Submission yamlSubmission `yaml:"submission"`
		Server     struct {
			Host      string   `yaml:"host"`
			Port      int      `yaml:"port"`
			RateLimit *float64 `yaml:"rate_limit"`
			Burst     int      `yaml:"burst"`
		} `yaml:"server"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}
	if yc.DraftPath != "" {
		cfg.DraftPath = yc.DraftPath
	}
	if yc.Submission.Mode != "" {
		cfg.Submission.Mode = yc.Submission.Mode
	}
	if yc.Submission.DBPath != "" {
		cfg.Submission.DBPath = yc.Submission.DBPath
	}
	if yc.Submission.Endpoint != "" {
		cfg.Submission.Endpoint = yc.Submission.Endpoint
	}
	if yc.Submission.Timeout != "" {
		timeout, err := time.ParseDuration(yc.Submission.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid submission.timeout %q: %w", yc.Submission.Timeout, err)
		}
		cfg.Submission.Timeout = timeout
	}
	if yc.Server.Host != "" {
		cfg.Server.Host = yc.Server.Host
	}
	if yc.Server.Port != 0 {
		cfg.Server.Port = yc.Server.Port
	}
	// rate_limit: 0 is meaningful (unlimited), so presence is what counts
	if yc.Server.RateLimit != nil {
		cfg.Server.RateLimit = *yc.Server.RateLimit
	}
	if yc.Server.Burst != 0 {
		cfg.Server.Burst = yc.Server.Burst
	}

	return cfg, nil
}

// LoadConfigFromHome loads config.yaml from the bshape home directory.
func LoadConfigFromHome(home string) (*Config, error) {
	cfg, err := LoadConfig(filepath.Join(home, "config.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(home)
	return cfg, nil
}

// ResolvePaths makes relative file paths relative to home.
func (c *Config) ResolvePaths(home string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(home, p)
	}
	c.LogDir = resolve(c.LogDir)
	c.DraftPath = resolve(c.DraftPath)
	c.Submission.DBPath = resolve(c.Submission.DBPath)
}

// MergeWithFlags applies CLI flags over the configuration.
// Nil flags leave the configured value alone.
func (c *Config) MergeWithFlags(logLevel *string, mode *string, endpoint *string, port *int) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if mode != nil {
		c.Submission.Mode = *mode
	}
	if endpoint != nil {
		c.Submission.Endpoint = *endpoint
	}
	if port != nil {
		c.Server.Port = *port
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	switch c.Submission.Mode {
	case ModeLocal:
		if c.Submission.DBPath == "" {
			return fmt.Errorf("submission.db_path cannot be empty in local mode")
		}
	case ModeHTTP:
		if c.Submission.Endpoint == "" {
			return fmt.Errorf("submission.endpoint is required in http mode")
		}
		u, err := url.Parse(c.Submission.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("submission.endpoint must be an http(s) URL, got %q", c.Submission.Endpoint)
		}
	default:
		return fmt.Errorf("invalid submission.mode %q, must be one of: local, http", c.Submission.Mode)
	}
	if c.Submission.Timeout < 0 {
		return fmt.Errorf("submission.timeout must be >= 0, got %v", c.Submission.Timeout)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be >= 1 when rate limiting, got %d", c.Server.Burst)
	}

	return nil
}
