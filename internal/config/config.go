// Package config loads and stores the gitlab-search configuration: the
// registered GitLab instances and the search, rate-limit and logging
// settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

// Environment variables that override the file.
const (
	EnvTimeout  = "GITLAB_SEARCH_TIMEOUT"
	EnvPerPage  = "GITLAB_SEARCH_PER_PAGE"
	EnvRPS      = "GITLAB_SEARCH_RPS"
	EnvLogLevel = "GITLAB_SEARCH_LOG_LEVEL"
	EnvInstance = "GITLAB_SEARCH_INSTANCE"
)

const (
	// CurrentVersion is the config schema version.
	CurrentVersion = 1

	// FileMode is used for the config file and its backups; they hold tokens.
	FileMode fs.FileMode = 0o600

	maxPerPage = 100
)

// Config is the complete gitlab-search configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Instances []Instance      `yaml:"instances" json:"instances"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
}

// Instance is a registered GitLab deployment.
type Instance struct {
	Name    string `yaml:"name" json:"name"`
	URL     string `yaml:"url" json:"url"`
	Token   string `yaml:"token" json:"token"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// SearchConfig configures requests made during a search.
type SearchConfig struct {
	// Timeout bounds each HTTP call, as a Go duration ("30s").
	Timeout string `yaml:"timeout" json:"timeout"`

	// PerPage is the page size for project listing (1-100).
	PerPage int `yaml:"per_page" json:"per_page"`
}

// RateLimitConfig configures the client-side request limiter.
type RateLimitConfig struct {
	// RequestsPerSecond across all workers. 0 disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// NewConfig returns a configuration with defaults and no instances.
func NewConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Instances: []Instance{},
		Search: SearchConfig{
			Timeout: "30s",
			PerPage: 50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the user configuration file path.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/gitlab-search/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/gitlab-search/config.yaml (default)
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gitlab-search", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gitlab-search", "config.yaml")
	}
	return filepath.Join(home, ".config", "gitlab-search", "config.yaml")
}

// ResolvePath returns path, or DefaultPath when path is empty.
func ResolvePath(path string) string {
	if path == "" {
		return DefaultPath()
	}
	return path
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(ResolvePath(path))
	return err == nil && !info.IsDir()
}

// Load reads the configuration at path (DefaultPath when empty).
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. The config file, if it exists
//  3. Environment variables (GITLAB_SEARCH_*)
//
// A missing file is not an error; the result simply has no instances.
func Load(path string) (*Config, error) {
	path = ResolvePath(path)
	cfg := NewConfig()

	if err := cfg.loadYAML(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path without env overrides. Used before rewriting the file
// so env values never leak into it.
func LoadFile(path string) (*Config, error) {
	path = ResolvePath(path)
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges the file at path into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if errors.Is(err, fs.ErrPermission) {
			return gserrors.New(gserrors.ErrCodeConfigPermission,
				fmt.Sprintf("cannot read config file %s", path), err)
		}
		return gserrors.New(gserrors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	warnIfWorldReadable(path)
	return c.mergeYAML(data, path)
}

// mergeYAML parses data and merges it into c. source names the data in errors.
func (c *Config) mergeYAML(data []byte, source string) error {
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return gserrors.ConfigError(fmt.Sprintf("failed to parse config file %s", source), err).
			WithSuggestion("Fix the YAML or run 'gitlab-search config init --force' to start over")
	}

	c.mergeWith(&parsed)
	return nil
}

func warnIfWorldReadable(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		slog.Warn("config_permissions_too_open",
			slog.String("path", path),
			slog.String("mode", info.Mode().Perm().String()))
	}
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Instances != nil {
		c.Instances = other.Instances
	}
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.PerPage != 0 {
		c.Search.PerPage = other.Search.PerPage
	}
	if other.RateLimit.RequestsPerSecond != 0 {
		c.RateLimit.RequestsPerSecond = other.RateLimit.RequestsPerSecond
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies GITLAB_SEARCH_* environment variable overrides.
// Malformed values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Search.Timeout = v
		}
	}
	if v := os.Getenv(EnvPerPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPerPage {
			c.Search.PerPage = n
		}
	}
	// Explicit zero is allowed here and disables the limiter.
	if v := os.Getenv(EnvRPS); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			c.RateLimit.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Version > CurrentVersion {
		return gserrors.ConfigError(fmt.Sprintf("config version %d is newer than supported version %d", c.Version, CurrentVersion), nil).
			WithSuggestion("Upgrade gitlab-search")
	}

	seen := make(map[string]bool, len(c.Instances))
	for _, inst := range c.Instances {
		if err := inst.Validate(); err != nil {
			return err
		}
		if seen[inst.Name] {
			return gserrors.ConfigError(fmt.Sprintf("instance %q is defined more than once", inst.Name), nil)
		}
		seen[inst.Name] = true
	}

	if d, err := time.ParseDuration(c.Search.Timeout); err != nil || d <= 0 {
		return gserrors.ConfigError(fmt.Sprintf("search.timeout must be a positive duration, got %q", c.Search.Timeout), err)
	}
	if c.Search.PerPage < 1 || c.Search.PerPage > maxPerPage {
		return gserrors.ConfigError(fmt.Sprintf("search.per_page must be between 1 and %d, got %d", maxPerPage, c.Search.PerPage), nil)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return gserrors.ConfigError(fmt.Sprintf("rate_limit.requests_per_second must be non-negative, got %g", c.RateLimit.RequestsPerSecond), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return gserrors.ConfigError(fmt.Sprintf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel), nil)
	}
	return nil
}

// Validate checks a single instance entry.
func (i Instance) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return gserrors.ConfigError("instance name is empty", nil)
	}
	if strings.ContainsAny(i.Name, " \t/") {
		return gserrors.ConfigError(fmt.Sprintf("instance name %q must not contain spaces or slashes", i.Name), nil)
	}
	u, err := url.Parse(i.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return gserrors.ConfigError(fmt.Sprintf("instance %q: url %q must be an absolute http(s) URL", i.Name, i.URL), err)
	}
	if strings.TrimSpace(i.Token) == "" {
		return gserrors.ConfigError(fmt.Sprintf("instance %q has no token", i.Name), nil).
			WithSuggestion("Create a personal access token with the read_api scope")
	}
	return nil
}

// Timeout returns search.timeout as a duration. Validate guarantees it parses.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Registry returns an accessor over the configured instances.
func (c *Config) Registry() *Registry {
	return NewRegistry(c.Instances, os.Getenv(EnvInstance))
}

// UpsertInstance adds inst or replaces the instance with the same name.
// Marking inst as default clears the flag on every other instance.
// Returns true when an existing instance was replaced.
func (c *Config) UpsertInstance(inst Instance) (bool, error) {
	inst.Name = strings.TrimSpace(inst.Name)
	inst.URL = strings.TrimRight(strings.TrimSpace(inst.URL), "/")
	if err := inst.Validate(); err != nil {
		return false, err
	}

	if inst.Default {
		c.clearDefault()
	}
	for idx := range c.Instances {
		if c.Instances[idx].Name == inst.Name {
			c.Instances[idx] = inst
			return true, nil
		}
	}
	c.Instances = append(c.Instances, inst)
	return false, nil
}

// RemoveInstance deletes the named instance.
func (c *Config) RemoveInstance(name string) error {
	for idx := range c.Instances {
		if c.Instances[idx].Name == name {
			c.Instances = append(c.Instances[:idx], c.Instances[idx+1:]...)
			return nil
		}
	}
	return instanceNotFound(name, c.Instances)
}

// SetDefault marks name as the only default instance.
func (c *Config) SetDefault(name string) error {
	for idx := range c.Instances {
		if c.Instances[idx].Name == name {
			c.clearDefault()
			c.Instances[idx].Default = true
			return nil
		}
	}
	return instanceNotFound(name, c.Instances)
}

func (c *Config) clearDefault() {
	for idx := range c.Instances {
		c.Instances[idx].Default = false
	}
}

// Redacted returns a copy with every token masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Instances = make([]Instance, len(c.Instances))
	for idx, inst := range c.Instances {
		inst.Token = MaskToken(inst.Token)
		out.Instances[idx] = inst
	}
	return &out
}

// MaskToken hides all but the last four characters of a token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

// Marshal returns the YAML encoding of c.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, gserrors.InternalError("failed to marshal config", err)
	}
	return data, nil
}

// Save writes c to path atomically, holding the config lock and keeping a
// backup of the previous file.
func (c *Config) Save(path string) error {
	path = ResolvePath(path)
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return WriteFileLocked(path, data)
}

// WriteFileLocked replaces path with data under the config lock, backing up
// the previous content first.
func WriteFileLocked(path string, data []byte) error {
	lock := NewFileLock(path)
	if err := lock.LockWithTimeout(DefaultLockTimeout); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if Exists(path) {
		if _, err := BackupConfig(path); err != nil {
			return err
		}
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file in the same directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fileError(fmt.Sprintf("failed to create config directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fileError("failed to create temp config file", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fileError("failed to write config file", err)
	}
	if err := tmp.Chmod(FileMode); err != nil {
		_ = tmp.Close()
		return fileError("failed to set config file permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return fileError("failed to write config file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fileError(fmt.Sprintf("failed to replace %s", path), err)
	}
	return nil
}

func fileError(msg string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return gserrors.New(gserrors.ErrCodeConfigPermission, msg, err)
	}
	return gserrors.New(gserrors.ErrCodeFilePermission, msg, err)
}
