// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

const (
	DefaultDir          = ".vcs"
	DefaultContextLines = 3
	DefaultLogLevel     = "warn"
	DefaultBundleLevel  = 3
)

type Config struct {
	Repository struct {
		Dir string `ini:"dir"`
	} `ini:"repository"`

	Diff struct {
		Context int  `ini:"context"`
		Color   bool `ini:"color"`
	} `ini:"diff"`

	Bundle struct {
		Level int `ini:"level"` // zstd level, 1-22
	} `ini:"bundle"`

	LogLevel string `ini:"log_level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Repository.Dir = DefaultDir
	cfg.Diff.Context = DefaultContextLines
	cfg.Diff.Color = true
	cfg.Bundle.Level = DefaultBundleLevel
	cfg.LogLevel = DefaultLogLevel
	return &cfg
}

// Path returns the environment specific config file, selected by MINIVCS_ENV.
func Path() string {
	env := os.Getenv("MINIVCS_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.ini", env)
}

// Load reads an INI file on top of the defaults. A missing file is not an
// error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := file.MapTo(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Repository.Dir == "" {
		return fmt.Errorf("repository.dir cannot be empty")
	}
	if c.Diff.Context < 0 {
		return fmt.Errorf("diff.context cannot be negative: %d", c.Diff.Context)
	}
	if c.Bundle.Level < 1 || c.Bundle.Level > 22 {
		return fmt.Errorf("bundle.level must be between 1 and 22: %d", c.Bundle.Level)
	}
	return nil
}
