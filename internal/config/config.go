// Package config loads settings from defaults, an optional TOML or YAML
// file, and TODO_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/seed"
	"github.com/idilsaglam/todolocal/internal/store/jsonstore"
	"github.com/idilsaglam/todolocal/internal/view"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the full set of runtime settings.
type Config struct {
	Store        string `toml:"store" yaml:"store"`
	DBPath       string `toml:"db_path" yaml:"db_path"`
	SnapshotPath string `toml:"snapshot_path" yaml:"snapshot_path"`
	SeedURL      string `toml:"seed_url" yaml:"seed_url"`
	SeedLimit    int    `toml:"seed_limit" yaml:"seed_limit"`
	PageSize     int    `toml:"page_size" yaml:"page_size"`
	Theme        string `toml:"theme" yaml:"theme"`
	LogLevel     string `toml:"log_level" yaml:"log_level"`
	LogFile      string `toml:"log_file" yaml:"log_file"`
	MetricsAddr  string `toml:"metrics_addr" yaml:"metrics_addr"`

	// Path of the file the values came from, empty when none was used.
	Source string `toml:"-" yaml:"-"`
}

// Candidate file names searched in the working directory.
var fileNames = []string{"todo.toml", ".todo.toml", "todo.yaml", "todo.yml"}

func Default() *Config {
	return &Config{
		Store:        StoreSQLite,
		DBPath:       "todos.db",
		SnapshotPath: jsonstore.DefaultFileName,
		SeedURL:      seed.DefaultBaseURL,
		SeedLimit:    seed.DefaultLimit,
		PageSize:     view.DefaultPerPage,
		Theme:        "classic",
		LogLevel:     "info",
	}
}

// Load builds the config. An explicit path must exist; otherwise the
// first candidate file found in dir is used, if any.
func Load(path, dir string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = discover(dir)
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.Source = path
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discover(dir string) string {
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func loadFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) error {
	str := map[string]*string{
		"TODO_STORE":        &cfg.Store,
		"TODO_DB":           &cfg.DBPath,
		"TODO_SNAPSHOT":     &cfg.SnapshotPath,
		"TODO_SEED_URL":     &cfg.SeedURL,
		"TODO_THEME":        &cfg.Theme,
		"TODO_LOG_LEVEL":    &cfg.LogLevel,
		"TODO_LOG_FILE":     &cfg.LogFile,
		"TODO_METRICS_ADDR": &cfg.MetricsAddr,
	}
	for name, dst := range str {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TODO_SEED_LIMIT": &cfg.SeedLimit,
		"TODO_PAGE_SIZE":  &cfg.PageSize,
	}
	for name, dst := range ints {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: not a number: %q", name, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks the values that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("db_path is required for the sqlite store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store %q: want %s or %s", c.Store, StoreSQLite, StoreMemory))
	}
	if c.SeedLimit <= 0 {
		errs = append(errs, fmt.Errorf("seed_limit must be positive, got %d", c.SeedLimit))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
