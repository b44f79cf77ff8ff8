// Package jconfig holds the journal engine's configuration record and
// its YAML-backed loader. The engine itself treats this as a plain,
// already-validated record — hooks and custom tools are constructed and
// wired in by the embedding program, not loaded from here.
package jconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// VersionProbe runs a short command to report a tool's version.
type VersionProbe struct {
	Name         string `yaml:"name"`
	Command      string `yaml:"command"`
	CaptureRegex string `yaml:"capture_regex"` // optional; first capture group used if present
}

// Template describes a named entry shape's required and optional
// fields.
type Template struct {
	Name           string   `yaml:"name"`
	RequiredFields []string `yaml:"required_fields"`
	OptionalFields []string `yaml:"optional_fields"`
	Description    string   `yaml:"description"`
	DefaultOutcome string   `yaml:"default_outcome"`
}

// Validation holds the append-time validation toggles.
type Validation struct {
	RequireTemplates  bool `yaml:"require_templates"`
	ValidateReferences bool `yaml:"validate_references"`
	RequireOutcome    bool `yaml:"require_outcome"`
	MaxEntrySize      int  `yaml:"max_entry_size"`
}

// Config is the full project configuration record.
type Config struct {
	ProjectName string `yaml:"project_name"`

	Dirs struct {
		Journal   string `yaml:"journal"`
		Configs   string `yaml:"configs"`
		Logs      string `yaml:"logs"`
		Snapshots string `yaml:"snapshots"`
	} `yaml:"dirs"`

	ConfigGlobs  []string `yaml:"config_globs"`
	LogCategories []string `yaml:"log_categories"`

	EnvIncludePatterns []string `yaml:"env_include_patterns"`
	EnvExcludePatterns []string `yaml:"env_exclude_patterns"`

	VersionProbes []VersionProbe `yaml:"version_probes"`
	Templates     []Template     `yaml:"templates"`

	Validation Validation `yaml:"validation"`
}

// defaultEnvExcludePatterns cover common secret-bearing env var names.
var defaultEnvExcludePatterns = []string{
	"(?i).*SECRET.*",
	"(?i).*PASSWORD.*",
	"(?i).*TOKEN.*",
	"(?i).*API_KEY.*",
	"(?i).*PRIVATE_KEY.*",
}

// Default returns a Config with the project root's conventional
// directory layout and a conservative set of secret-pattern excludes.
func Default() *Config {
	cfg := &Config{}
	cfg.Dirs.Journal = "journal"
	cfg.Dirs.Configs = "configs"
	cfg.Dirs.Logs = "logs"
	cfg.Dirs.Snapshots = "snapshots"
	cfg.ConfigGlobs = []string{"*.toml", "*.yaml", "*.yml", "*.json"}
	cfg.LogCategories = []string{"build", "test", "run"}
	cfg.EnvExcludePatterns = append([]string{}, defaultEnvExcludePatterns...)
	cfg.Validation = Validation{
		RequireTemplates:  false,
		ValidateReferences: true,
		RequireOutcome:    false,
		MaxEntrySize:      1 << 20,
	}
	return cfg
}

// Load reads the config file at path, layering it over Default(), then
// applies environment overrides using os.Getenv.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup, so tests
// can exercise override behavior without mutating the process
// environment.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if name := getenv("LABJOURNAL_PROJECT_NAME"); name != "" {
		cfg.ProjectName = name
	}
	if journalDir := getenv("LABJOURNAL_JOURNAL_DIR"); journalDir != "" {
		cfg.Dirs.Journal = journalDir
	}

	return cfg, nil
}

// RootedDirs resolves the four subtree directories against root.
type RootedDirs struct {
	Journal   string
	Configs   string
	Logs      string
	Snapshots string
}

// Resolve joins the configured (possibly relative) subtree directories
// against root.
func (c *Config) Resolve(root string) RootedDirs {
	return RootedDirs{
		Journal:   filepath.Join(root, c.Dirs.Journal),
		Configs:   filepath.Join(root, c.Dirs.Configs),
		Logs:      filepath.Join(root, c.Dirs.Logs),
		Snapshots: filepath.Join(root, c.Dirs.Snapshots),
	}
}

// Template looks up a named template, returning ok=false when absent.
func (c *Config) Template(name string) (Template, bool) {
	for _, t := range c.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}
