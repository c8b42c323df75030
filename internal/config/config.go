package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownPolicy decides what happens to a file whose remote existence
// check comes back inconclusive. The inconclusive result is always
// surfaced as a warning; the policy only controls whether the file is
// queued for upload anyway.
type UnknownPolicy string

const (
	// UnknownUpload re-queues the file. Uploading to a content-addressed
	// store is idempotent, so this is the conservative default.
	UnknownUpload UnknownPolicy = "upload"
	// UnknownSkip records the warning and queues nothing.
	UnknownSkip UnknownPolicy = "skip"
)

// Config represents the complete pkgsync configuration.
type Config struct {
	Remote RemoteConfig `yaml:"remote"`
	Paths  PathsConfig  `yaml:"paths"`
	Sync   SyncConfig   `yaml:"sync"`
	Build  BuildConfig  `yaml:"build"`

	// ProjectDir is the working directory being reconciled. Set by the
	// CLI, never from the file.
	ProjectDir string `yaml:"-"`
}

// RemoteConfig configures the lookaside blob store.
type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	TokenFile      string `yaml:"token_file"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PathsConfig configures project-relative file locations.
type PathsConfig struct {
	Manifest string `yaml:"manifest"`
	SpecFile string `yaml:"spec_file"`
}

// SyncConfig configures reconciliation behavior.
type SyncConfig struct {
	OnUnknown UnknownPolicy `yaml:"on_unknown"`
}

// BuildConfig configures the local build command.
type BuildConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Locate resolves the config file path: the explicit flag value wins,
// then <project>/.pkgsync.yaml, then $HOME/.config/pkgsync/config.yaml.
func Locate(flagPath, projectDir string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}

	local := filepath.Join(projectDir, ".pkgsync.yaml")
	if _, err := os.Stat(local); err == nil {
		return local, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pkgsync", "config.yaml"), nil
}

// expandEnv expands environment variables in all string fields.
func (c *Config) expandEnv() {
	c.Remote.BaseURL = os.ExpandEnv(c.Remote.BaseURL)
	c.Remote.TokenFile = os.ExpandEnv(c.Remote.TokenFile)
	c.Paths.Manifest = os.ExpandEnv(c.Paths.Manifest)
	c.Paths.SpecFile = os.ExpandEnv(c.Paths.SpecFile)
	c.Build.Command = os.ExpandEnv(c.Build.Command)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = 30
	}
	if c.Paths.Manifest == "" {
		c.Paths.Manifest = "sources.yaml"
	}
	if c.Sync.OnUnknown == "" {
		c.Sync.OnUnknown = UnknownUpload
	}
	if c.Build.Command == "" {
		c.Build.Command = "make"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		return fmt.Errorf("remote.base_url must be an http(s) URL: %s", c.Remote.BaseURL)
	}

	if strings.ContainsAny(c.Paths.Manifest, "/\\") {
		return fmt.Errorf("paths.manifest must be a bare file name: %s", c.Paths.Manifest)
	}

	switch c.Sync.OnUnknown {
	case UnknownUpload, UnknownSkip:
		// valid
	default:
		return fmt.Errorf("invalid sync.on_unknown policy: %s (must be upload or skip)", c.Sync.OnUnknown)
	}

	return nil
}

// ManifestPath returns the absolute path of the manifest file.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.ProjectDir, c.Paths.Manifest)
}

// SpecPath returns the configured spec file path resolved against the
// project directory. Empty means the caller should auto-detect.
func (c *Config) SpecPath() string {
	if c.Paths.SpecFile == "" {
		return ""
	}
	if filepath.IsAbs(c.Paths.SpecFile) {
		return c.Paths.SpecFile
	}
	return filepath.Join(c.ProjectDir, c.Paths.SpecFile)
}
