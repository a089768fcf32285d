package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"

	DetectorHeuristic = "heuristic"
	DetectorLingua    = "lingua"

	DefaultModel         = "gpt-4o"
	DefaultCacheDir      = ".lpc-cache"
	DefaultCacheTTLSecs  = 3600
	DefaultFetchTimeout  = 30
	DefaultRenderTimeout = 20
	DefaultMaxBodyBytes  = 10 << 20
	DefaultSPAWaitMillis = 3000
	DefaultSPAPollMillis = 100
	DefaultSPAMinChars   = 500
	DefaultUserAgent     = "Mozilla/5.0 (compatible; llm-page-context/1.0)"
)

// AppConfig holds the CLI application settings loaded from config.yaml.
type AppConfig struct {
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Render   RenderConfig   `yaml:"render"`
	Language LanguageConfig `yaml:"language"`
	Output   OutputConfig   `yaml:"output"`

	DefaultModel string `yaml:"default_model"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type CacheConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	TTLSecs int    `yaml:"ttl_seconds"`
}

type FetchConfig struct {
	TimeoutSecs  int    `yaml:"timeout_seconds"`
	UserAgent    string `yaml:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

type RenderConfig struct {
	Enabled     bool  `yaml:"enabled"`
	TimeoutSecs int   `yaml:"timeout_seconds"`
	WaitMillis  int   `yaml:"spa_wait_ms"`
	PollMillis  int   `yaml:"spa_poll_ms"`
	MinChars    int   `yaml:"spa_min_chars"`
	Headless    *bool `yaml:"headless"`
}

type LanguageConfig struct {
	Detector string `yaml:"detector"`
}

type OutputConfig struct {
	Markdown *bool `yaml:"markdown"`
	Sanitize *bool `yaml:"sanitize"`
}

// LoadAppConfig reads path. A missing file yields the defaults.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return (&AppConfig{}).WithDefaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return c.WithDefaults(), nil
}

func (c *AppConfig) WithDefaults() *AppConfig {
	if c == nil {
		c = &AppConfig{}
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Backend)) {
	case StoreFile, StoreMemory:
		c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	default:
		c.Store.Backend = StoreSQLite
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}
	if c.Cache.TTLSecs <= 0 {
		c.Cache.TTLSecs = DefaultCacheTTLSecs
	}
	if c.Fetch.TimeoutSecs <= 0 {
		c.Fetch.TimeoutSecs = DefaultFetchTimeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Render.TimeoutSecs <= 0 {
		c.Render.TimeoutSecs = DefaultRenderTimeout
	}
	if c.Render.WaitMillis <= 0 {
		c.Render.WaitMillis = DefaultSPAWaitMillis
	}
	if c.Render.PollMillis <= 0 {
		c.Render.PollMillis = DefaultSPAPollMillis
	}
	if c.Render.MinChars <= 0 {
		c.Render.MinChars = DefaultSPAMinChars
	}
	if c.Language.Detector != DetectorLingua {
		c.Language.Detector = DetectorHeuristic
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
	return c
}

func (c *AppConfig) CacheEnabled() bool    { return isEnabled(c.Cache.Enabled, true) }
func (c *AppConfig) MarkdownEnabled() bool { return isEnabled(c.Output.Markdown, true) }
func (c *AppConfig) SanitizeEnabled() bool { return isEnabled(c.Output.Sanitize, true) }
func (c *AppConfig) HeadlessEnabled() bool { return isEnabled(c.Render.Headless, true) }

func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}

func isEnabled(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
