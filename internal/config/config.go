package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "1h" parse
// directly into config fields.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// PaperSize describes a paper format in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig holds the connection settings for the token store. Host may
// also carry a full postgres:// URL, in which case the other fields are
// ignored.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// ToolSpec declares one auxiliary tool server that may be launched as a
// managed service. Only tools declared here can be started over the API.
type ToolSpec struct {
	Name         string            `yaml:"name"`
	Command      string            `yaml:"command"`
	Args         []string          `yaml:"args"`
	Port         int               `yaml:"port"`
	HealthPath   string            `yaml:"health_path"`
	Env          map[string]string `yaml:"env"`
	StartupGrace Duration          `yaml:"startup_grace"`
	StopTimeout  Duration          `yaml:"stop_timeout"`
}

// Config is the full service configuration.
type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		Prefork    bool   `yaml:"prefork"`
		ForceHTTPS bool   `yaml:"force_https"`
	} `yaml:"server"`

	Limits struct {
		MaxHTMLBytes  int `yaml:"max_html_bytes"`
		MaxPDFBytes   int `yaml:"max_pdf_bytes"`
		MaxDecks      int `yaml:"max_decks"`
		MaxDeckSlides int `yaml:"max_deck_slides"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool     `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string   `yaml:"redis_host"`
		RedisRateDB     int      `yaml:"redis_rate_db"`
		RedisPDFDB      int      `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	PDF struct {
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int                  `yaml:"chrome_pool_size"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	RateLimiter struct {
		Interval               Duration `yaml:"interval"`
		EnableTokenRateLimiter bool     `yaml:"enable_token_rate_limiter"`
		EnableUserLimiter      bool     `yaml:"enable_user_limiter"`
		UserLimit              int      `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres            PostgresConfig `yaml:"postgres"`
		TokenReloadInterval Duration       `yaml:"token_reload_interval"`
		RequireScope        bool           `yaml:"require_scope"`
	} `yaml:"auth"`

	Services []ToolSpec `yaml:"services"`
}

// TokenAuthEnabled reports whether a token store is configured at all.
func (c Config) TokenAuthEnabled() bool {
	return c.Auth.Postgres.Host != ""
}

func defaults() Config {
	var cfg Config
	cfg.Env = "dev"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":8080"
	cfg.Limits.MaxHTMLBytes = 2 * 1024 * 1024
	cfg.Limits.MaxPDFBytes = 20 * 1024 * 1024
	cfg.Limits.MaxDecks = 200
	cfg.Limits.MaxDeckSlides = 200
	cfg.Logger.File = "docpress.log"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 50
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 14
	cfg.Cache.PDFCacheTTL = Duration(24 * time.Hour)
	cfg.Cache.RedisHost = "127.0.0.1:6379"
	cfg.Cache.RedisRateDB = 0
	cfg.Cache.RedisPDFDB = 1
	cfg.PDF.DefaultPaper = "A4"
	cfg.PDF.PaperSizes = map[string]PaperSize{
		"A4":     {Width: 8.27, Height: 11.69},
		"LETTER": {Width: 8.5, Height: 11},
		"LEGAL":  {Width: 8.5, Height: 14},
	}
	cfg.PDF.TimeoutSecs = 15
	cfg.PDF.ChromeNoSandbox = true
	cfg.PDF.ChromePoolSize = 2
	cfg.RateLimiter.Interval = Duration(time.Hour)
	cfg.Auth.TokenReloadInterval = Duration(time.Minute)
	return cfg
}

// Load reads the configuration from the file named by CONFIG_PATH
// (config.yaml when unset). A missing file yields the compiled defaults;
// invalid values panic, failing startup.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaults()
		applyEnvOverrides(&cfg)
		cfg.validate()
		return cfg
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path on top of the compiled
// defaults. It panics on unreadable files and invalid values: a service
// with a broken config must not come up.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	applyEnvOverrides(&cfg)
	cfg.validate()
	return cfg
}

// applyEnvOverrides lets deployments switch the environment flag without
// editing the config file. The value goes through the same validation as the
// file value.
func applyEnvOverrides(c *Config) {
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Env = env
	}
}

func (c *Config) validate() {
	switch c.Env {
	case "dev", "staging", "prod":
	default:
		panic(fmt.Sprintf("config: env must be dev, staging or prod, got %q", c.Env))
	}
	if c.Server.Port == "" {
		panic("config: server.port is empty")
	}
	if c.Limits.MaxHTMLBytes <= 0 || c.Limits.MaxPDFBytes <= 0 {
		panic("config: limits must be positive")
	}
	if c.Limits.MaxDecks <= 0 || c.Limits.MaxDeckSlides <= 0 {
		panic("config: deck limits must be positive")
	}
	if c.PDF.TimeoutSecs <= 0 {
		panic("config: pdf.timeout_secs must be positive")
	}
	if c.PDF.ChromePoolSize < 0 {
		panic("config: pdf.chrome_pool_size must not be negative")
	}
	if len(c.PDF.PaperSizes) > 0 {
		if _, ok := c.PDF.PaperSizes[c.PDF.DefaultPaper]; !ok {
			panic(fmt.Sprintf("config: pdf.default_paper %q not in pdf.paper_sizes", c.PDF.DefaultPaper))
		}
	}
	if c.Cache.PDFCacheEnabled && c.Cache.PDFCacheTTL <= 0 {
		panic("config: cache.pdf_cache_ttl must be positive when the cache is enabled")
	}
	if c.RateLimiter.Interval <= 0 {
		panic("config: rate_limiter.interval must be positive")
	}
	if c.RateLimiter.UserLimit < 0 {
		panic("config: rate_limiter.user_limit must not be negative")
	}
	if c.Auth.TokenReloadInterval <= 0 {
		panic("config: auth.token_reload_interval must be positive")
	}
	if c.Auth.RequireScope && c.Auth.Postgres.Host == "" {
		panic("config: auth.require_scope needs auth.postgres configured")
	}
	seen := make(map[string]bool, len(c.Services))
	for i := range c.Services {
		s := &c.Services[i]
		if s.Name == "" {
			panic(fmt.Sprintf("config: services[%d].name is empty", i))
		}
		if s.Command == "" {
			panic(fmt.Sprintf("config: service %q has no command", s.Name))
		}
		if s.Port < 0 || s.Port > 65535 {
			panic(fmt.Sprintf("config: service %q port out of range", s.Name))
		}
		if seen[s.Name] {
			panic(fmt.Sprintf("config: duplicate service name %q", s.Name))
		}
		seen[s.Name] = true
		if s.StartupGrace <= 0 {
			s.StartupGrace = Duration(500 * time.Millisecond)
		}
		if s.StopTimeout <= 0 {
			s.StopTimeout = Duration(10 * time.Second)
		}
		if s.HealthPath == "" {
			s.HealthPath = "/ops/health"
		}
	}
}

// Tool returns the spec for the named tool.
func (c Config) Tool(name string) (ToolSpec, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ToolSpec{}, false
}
