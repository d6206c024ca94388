// Package config loads project2yaml settings from the project root.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jward/project2yaml/internal/discover"
)

// FileName is the optional per-project config file.
const FileName = ".project2yaml.yaml"

// Environment overrides.
const (
	EnvOutput        = "PROJECT2YAML_OUTPUT"
	EnvWatchDir      = "PROJECT2YAML_WATCH_DIR"
	EnvPurposeScript = "PROJECT2YAML_PURPOSE_SCRIPT"
	EnvHistory       = "PROJECT2YAML_HISTORY"
)

// Config holds the resolved settings. Relative paths are relative to the
// project root.
type Config struct {
	Output          string   `yaml:"output"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	Gitignore       bool     `yaml:"gitignore"`
	TSConfig        string   `yaml:"tsconfig"`
	RequireTSConfig bool     `yaml:"require_tsconfig"`
	WatchDir        string   `yaml:"watch_dir"`
	PurposeScript   string   `yaml:"purpose_script"`
	History         bool     `yaml:"history"`
	HistoryPath     string   `yaml:"history_path"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Output:          "project-map.yaml",
		Include:         append([]string(nil), discover.DefaultInclude...),
		Exclude:         append([]string(nil), discover.DefaultExclude...),
		Gitignore:       true,
		TSConfig:        "tsconfig.json",
		RequireTSConfig: true,
		WatchDir:        "src",
		HistoryPath:     filepath.Join(".project2yaml", "history.db"),
	}
}

// Load reads configuration for root. When path is empty the optional
// root/.project2yaml.yaml is used; an explicit path must exist. A .env file
// in root is loaded before environment overrides are applied.
func Load(root, path string) (Config, error) {
	cfg := Default()

	_ = godotenv.Load(filepath.Join(root, ".env"))

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv(EnvOutput); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv(EnvWatchDir); v != "" {
		cfg.WatchDir = v
	}
	if v := os.Getenv(EnvPurposeScript); v != "" {
		cfg.PurposeScript = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvHistory, err)
		}
		cfg.History = on
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot produce a usable scan.
func (c Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output must not be empty")
	}
	if len(c.Include) == 0 {
		return errors.New("config: include must list at least one pattern")
	}
	if c.History && c.HistoryPath == "" {
		return errors.New("config: history_path must not be empty when history is enabled")
	}
	return nil
}

// Resolve joins p to root unless p is already absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
