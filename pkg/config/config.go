// Package config holds the TOML run configuration: input and output paths
// plus network tuning. Every field has a default so the zero-config
// invocation works out of the box.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/httputil"
)

// Config is the full run configuration.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Network Network `toml:"network"`
}

// Paths names the input files and the output directory.
type Paths struct {
	Tools        string `toml:"tools"`
	Repositories string `toml:"repositories"`
	Categories   string `toml:"categories"`
	Output       string `toml:"output"`
}

// Network tunes the enrichment lookups.
type Network struct {
	RetryAttempts int      `toml:"retry_attempts"`
	RetryDelay    duration `toml:"retry_delay"`
	CacheTTL      duration `toml:"cache_ttl"`
	Mailto        string   `toml:"mailto"`
}

// duration lets TOML carry Go duration strings like "500ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Tools:        "data/single-cell-software.csv",
			Repositories: "data/repositories.json",
			Categories:   "data/categories.json",
			Output:       "database",
		},
		Network: Network{
			RetryAttempts: httputil.DefaultAttempts,
			RetryDelay:    duration{httputil.DefaultDelay},
			CacheTTL:      duration{24 * time.Hour},
		},
	}
}

// Load reads a TOML configuration file on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Network.RetryAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "retry_attempts must be at least 1, got %d", c.Network.RetryAttempts)
	}
	if c.Network.RetryDelay.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "retry_delay must not be negative")
	}
	for name, p := range map[string]string{
		"paths.tools":        c.Paths.Tools,
		"paths.repositories": c.Paths.Repositories,
		"paths.categories":   c.Paths.Categories,
		"paths.output":       c.Paths.Output,
	} {
		if err := errors.ValidatePath(p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", name)
		}
	}
	return nil
}
