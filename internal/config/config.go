// Package config loads taskgen settings from taskgen.yaml with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when --config is not given.
const DefaultFileName = "taskgen.yaml"

// Config holds all taskgen configuration.
type Config struct {
	// Task directory layout
	Tasks TasksConfig `yaml:"tasks"`

	// Directory watching
	Watcher WatcherConfig `yaml:"watcher"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TasksConfig locates the task and template files.
type TasksConfig struct {
	Dir          string `yaml:"dir"`
	TemplatesDir string `yaml:"templates_dir"`
	Extension    string `yaml:"extension"`
}

// WatcherConfig configures the directory watcher.
type WatcherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Buffer  int    `yaml:"buffer"`   // event channel capacity
	Refresh string `yaml:"refresh"` // UI coalescing window for bursts of events
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Tasks: TasksConfig{
			Dir:          ".",
			TemplatesDir: "templates",
			Extension:    ".csv",
		},
		Watcher: WatcherConfig{
			Enabled: true,
			Buffer:  16,
			Refresh: "150ms",
		},
		UI: *DefaultUIConfig(),
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("TASKGEN_TASKS_DIR"); dir != "" {
		c.Tasks.Dir = dir
	}
	if dir := os.Getenv("TASKGEN_TEMPLATES_DIR"); dir != "" {
		c.Tasks.TemplatesDir = dir
	}
	if v := os.Getenv("TASKGEN_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tasks.Dir) == "" {
		return fmt.Errorf("tasks.dir must not be empty")
	}
	if c.Tasks.Extension != "" && !strings.HasPrefix(c.Tasks.Extension, ".") {
		return fmt.Errorf("tasks.extension must start with a dot: %q", c.Tasks.Extension)
	}
	if c.Watcher.Buffer < 0 {
		return fmt.Errorf("watcher.buffer must not be negative: %d", c.Watcher.Buffer)
	}
	if c.Logging.Level != "" {
		valid := false
		for _, l := range ValidLogLevels {
			if c.Logging.Level == l {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
		}
	}
	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}
	return c.UI.Validate()
}

// TemplatesPath resolves the templates directory. Relative paths are taken
// relative to the tasks directory.
func (c *Config) TemplatesPath() string {
	return c.resolve(c.Tasks.TemplatesDir)
}

// LogsPath resolves the logs directory, defaulting to <tasks dir>/.taskgen/logs.
func (c *Config) LogsPath() string {
	if c.Logging.Dir == "" {
		return filepath.Join(c.Tasks.Dir, ".taskgen", "logs")
	}
	return c.resolve(c.Logging.Dir)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Tasks.Dir, p)
}

// GetRefreshInterval returns the watcher refresh window as a duration.
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Watcher.Refresh)
	if err != nil {
		return 150 * time.Millisecond
	}
	return d
}
