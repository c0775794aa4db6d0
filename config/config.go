package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/masmgr/repohistory-go/internal/collector"
	"github.com/masmgr/repohistory-go/internal/output"
)

// Config is the root configuration structure.
type Config struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	Collect CollectConfig `json:"collect" yaml:"collect"`
	Filters FilterConfig  `json:"filters" yaml:"filters"`
	Output  OutputConfig  `json:"output" yaml:"output"`
}

// SourceKind selects where history is read from.
type SourceKind string

const (
	SourceGitHub SourceKind = "github"
	SourceLocal  SourceKind = "local"
)

// SourceConfig holds repository access configuration.
type SourceConfig struct {
	Kind       SourceKind `json:"kind" yaml:"kind"`             // Default: "github"
	Repository string     `json:"repository" yaml:"repository"` // "owner/name"
	BaseURL    string     `json:"baseURL" yaml:"baseURL"`       // GitHub Enterprise REST root
	TokenEnv   string     `json:"tokenEnv" yaml:"tokenEnv"`     // Default: "GITHUB_TOKEN"
	Path       string     `json:"path" yaml:"path"`             // Local clone, for kind "local"
	Ref        string     `json:"ref" yaml:"ref"`               // Branch, tag or SHA; empty = default branch
	Timeout    Duration   `json:"timeout" yaml:"timeout"`       // HTTP timeout; zero = client default

	// Token is read from the environment only.
	Token string `json:"-" yaml:"-"`
}

// CollectConfig holds collection limits and policies.
type CollectConfig struct {
	MaxCommits      int    `json:"maxCommits" yaml:"maxCommits"`           // Default: 50
	Concurrency     int    `json:"concurrency" yaml:"concurrency"`         // Default: 1
	Placeholder     string `json:"placeholder" yaml:"placeholder"`         // Default: "[Binary or Unavailable]"
	SkipDiffs       bool   `json:"skipDiffs" yaml:"skipDiffs"`
	SkipSnapshots   bool   `json:"skipSnapshots" yaml:"skipSnapshots"`
	IncludeMetadata bool   `json:"includeMetadata" yaml:"includeMetadata"`
}

// FilterConfig holds snapshot path filtering options.
type FilterConfig struct {
	Include      []string `json:"include" yaml:"include"`
	Exclude      []string `json:"exclude" yaml:"exclude"`
	SkipVendored bool     `json:"skipVendored" yaml:"skipVendored"`
}

// OutputConfig holds output file locations.
type OutputConfig struct {
	Dir       string `json:"dir" yaml:"dir"`
	Commits   string `json:"commits" yaml:"commits"`
	Diffs     string `json:"diffs" yaml:"diffs"`
	Snapshots string `json:"snapshots" yaml:"snapshots"`
}

// Duration is a time.Duration written as a string ("30s") in config files.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvRepository = "REPOHISTORY_REPO"
	EnvMaxCommits = "REPOHISTORY_MAX_COMMITS"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:       SourceGitHub,
			Repository: "rtyley/small-test-repo",
			TokenEnv:   "GITHUB_TOKEN",
		},
		Collect: CollectConfig{
			MaxCommits:  50,
			Concurrency: 1,
			Placeholder: collector.DefaultPlaceholder,
		},
		Filters: FilterConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Output: OutputConfig{
			Dir:       ".",
			Commits:   output.DefaultCommitsFile,
			Diffs:     output.DefaultDiffsFile,
			Snapshots: output.DefaultSnapshotsFile,
		},
	}
}

// defaultFileNames are searched, in order, in the working and home directories.
var defaultFileNames = []string{".repohistory.json", ".repohistory.yaml", ".repohistory.yml"}

// LoadConfig loads configuration from a file, merging with defaults.
// JSON and YAML are selected by file extension.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		dirs := []string{"."}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			dirs = append(dirs, home)
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			dirs = append(dirs, envHome)
		}
	search:
		for _, dir := range dirs {
			for _, name := range defaultFileNames {
				p := filepath.Join(dir, name)
				if _, err := os.Stat(p); err == nil {
					path = p
					break search
				}
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ApplyEnv overlays environment variables onto the configuration
// and reads the access token from the variable named by Source.TokenEnv.
func (c *Config) ApplyEnv() {
	c.Source.Repository = envStr(EnvRepository, c.Source.Repository)
	c.Collect.MaxCommits = envInt(EnvMaxCommits, c.Collect.MaxCommits)
	if c.Source.TokenEnv != "" {
		c.Source.Token = os.Getenv(c.Source.TokenEnv)
	}
}

// Validate checks the configuration for values the collector cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceGitHub:
		if c.Source.Repository == "" {
			errs = append(errs, errors.New("source.repository is required"))
		}
	case SourceLocal:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for a local source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q (expected github or local)", c.Source.Kind))
	}

	if c.Collect.MaxCommits <= 0 {
		errs = append(errs, fmt.Errorf("collect.maxCommits must be positive, got %d", c.Collect.MaxCommits))
	}
	if c.Collect.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("collect.concurrency must not be negative, got %d", c.Collect.Concurrency))
	}
	if c.Source.Timeout < 0 {
		errs = append(errs, errors.New("source.timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
