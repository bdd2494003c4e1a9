package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the candidex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps API keys to the tenants they act for.
type AuthConfig struct {
	APIKeys map[string]TenantConfig `yaml:"api_keys"`
}

// TenantConfig describes the tenant behind one API key.
type TenantConfig struct {
	Tenant string `yaml:"tenant"`
	Plan   string `yaml:"plan"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	RealIPHeader    string   `yaml:"real_ip_header"`
	TrustedProxies  []string `yaml:"trusted_proxies"`
}

// DatabaseConfig holds search store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis (default)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query pipeline settings.
type SearchConfig struct {
	Fanout          int    `yaml:"fanout"` // parallel lookup ceiling
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	SynonymsPath    string `yaml:"synonyms_path"` // empty = built-in table
	RefreshWorkers  int    `yaml:"refresh_workers"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	FreshSec     int `yaml:"fresh_sec"`
	StaleSec     int `yaml:"stale_sec"`
	LockSec      int `yaml:"lock_sec"`
	RetryWaitMil int `yaml:"retry_wait_ms"`
}

// RateLimitConfig holds limiter settings.
type RateLimitConfig struct {
	WindowSec      int              `yaml:"window_sec"`
	AddressLimit   int64            `yaml:"address_limit"`
	PlanLimits     map[string]int64 `yaml:"plan_limits"`
	DefaultLimit   int64            `yaml:"default_limit"`
	AbuseThreshold int              `yaml:"abuse_threshold"`
	AbuseWindowSec int              `yaml:"abuse_window_sec"`
}

// RankingConfig holds semantic ranking provider settings. An empty APIKey
// disables the semantic signal entirely.
type RankingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RealIPHeader == "" {
		c.HTTP.RealIPHeader = "X-Real-IP"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.Fanout <= 0 {
		c.Search.Fanout = 5
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.RefreshWorkers <= 0 {
		c.Search.RefreshWorkers = 8
	}
	if c.Cache.FreshSec <= 0 {
		c.Cache.FreshSec = 60
	}
	if c.Cache.StaleSec <= 0 {
		c.Cache.StaleSec = 300
	}
	if c.Cache.LockSec <= 0 {
		c.Cache.LockSec = 10
	}
	if c.Cache.RetryWaitMil <= 0 {
		c.Cache.RetryWaitMil = 150
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.RateLimit.AddressLimit <= 0 {
		c.RateLimit.AddressLimit = 600
	}
	if c.RateLimit.DefaultLimit <= 0 {
		c.RateLimit.DefaultLimit = 60
	}
	if c.RateLimit.AbuseThreshold <= 0 {
		c.RateLimit.AbuseThreshold = 10
	}
	if c.RateLimit.AbuseWindowSec <= 0 {
		c.RateLimit.AbuseWindowSec = 600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	for key, tc := range c.Auth.APIKeys {
		if tc.Tenant == "" {
			return fmt.Errorf("auth.api_keys[%s].tenant is required", maskKey(key))
		}
	}
	for plan, limit := range c.RateLimit.PlanLimits {
		if limit <= 0 {
			return fmt.Errorf("ratelimit.plan_limits.%s must be positive, got %d", plan, limit)
		}
	}
	return nil
}

// maskKey keeps error messages from leaking full API keys.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
