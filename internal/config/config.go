package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

// DefaultPath is read when CONFIG_FILE is not set
const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port                string        `yaml:"port"`
	GinMode             string        `yaml:"gin_mode"`
	LogLevel            string        `yaml:"log_level"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	MaxBodyBytes        int64         `yaml:"max_body_bytes"`
	MaxTranscriptLength int           `yaml:"max_transcript_length"`
	AllowedOrigins      []string      `yaml:"allowed_origins"`
	TrustedProxies      []string      `yaml:"trusted_proxies"`
	EnableHSTS          bool          `yaml:"enable_hsts"`
}

type ModelConfig struct {
	// Path may be empty; scoring is then heuristic-only.
	Path string `yaml:"path"`
}

type StorageConfig struct {
	DataDir               string        `yaml:"data_dir"`
	BaselineCacheTTL      time.Duration `yaml:"baseline_cache_ttl"`
	BaselineRetentionDays int           `yaml:"baseline_retention_days"`
	PurgeInterval         time.Duration `yaml:"purge_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LexicalConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	PerMinute        int `yaml:"per_minute"`
	AnalyzePerMinute int `yaml:"analyze_per_minute"`
}

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			GinMode:             "release",
			LogLevel:            "info",
			ShutdownTimeout:     30 * time.Second,
			RequestTimeout:      30 * time.Second,
			MaxBodyBytes:        256 << 10,
			MaxTranscriptLength: 20000,
			AllowedOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
			TrustedProxies:      []string{"127.0.0.1", "::1"},
		},
		Storage: StorageConfig{
			DataDir:               "./data",
			BaselineCacheTTL:      10 * time.Minute,
			BaselineRetentionDays: 365,
			PurgeInterval:         24 * time.Hour,
		},
		Lexical: LexicalConfig{
			Timeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerMinute:        60,
			AnalyzePerMinute: 20,
		},
	}
}

// Load reads the YAML file named by CONFIG_FILE (or DefaultPath), then
// applies environment overrides and validates the result. A missing default
// file is not an error; a missing explicit file is.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return LoadFile(path, explicit)
}

// LoadFile loads configuration from path. When required is false a missing
// file falls back to defaults.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid config file %s", path), err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("cannot read config file %s", path), err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.GinMode = getEnvOrDefault("GIN_MODE", c.Server.GinMode)
	c.Server.LogLevel = getEnvOrDefault("LOG_LEVEL", c.Server.LogLevel)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	c.Model.Path = getEnvOrDefault("MODEL_PATH", c.Model.Path)
	c.Storage.DataDir = getEnvOrDefault("DATA_DIR", c.Storage.DataDir)

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)

	c.Lexical.URL = getEnvOrDefault("LEXICAL_API_URL", c.Lexical.URL)
	c.Lexical.APIKey = getEnvOrDefault("LEXICAL_API_KEY", c.Lexical.APIKey)
	c.Lexical.Model = getEnvOrDefault("LEXICAL_MODEL", c.Lexical.Model)

	var err error
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.RateLimit.PerMinute, err = getEnvInt("RATE_LIMIT_PER_MIN", c.RateLimit.PerMinute); err != nil {
		return err
	}
	if c.Storage.BaselineRetentionDays, err = getEnvInt("BASELINE_RETENTION_DAYS", c.Storage.BaselineRetentionDays); err != nil {
		return err
	}
	if c.Lexical.Timeout, err = getEnvDuration("LEXICAL_TIMEOUT", c.Lexical.Timeout); err != nil {
		return err
	}
	if c.Storage.BaselineCacheTTL, err = getEnvDuration("BASELINE_CACHE_TTL", c.Storage.BaselineCacheTTL); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return apperrors.NewConfigurationError("server port must be set", nil)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("server port %q is not a number", c.Server.Port), err)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown gin mode %q", c.Server.GinMode), nil)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return apperrors.NewConfigurationError("max body bytes must be positive", nil)
	}
	if c.Storage.DataDir == "" {
		return apperrors.NewConfigurationError("data directory must be set", nil)
	}
	if c.Storage.BaselineCacheTTL < 0 {
		return apperrors.NewConfigurationError("baseline cache TTL must not be negative", nil)
	}
	if c.Storage.BaselineRetentionDays < 0 {
		return apperrors.NewConfigurationError("baseline retention days must not be negative", nil)
	}
	if c.Lexical.Timeout < 0 {
		return apperrors.NewConfigurationError("lexical timeout must not be negative", nil)
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.AnalyzePerMinute < 0 {
		return apperrors.NewConfigurationError("rate limits must not be negative", nil)
	}
	return nil
}

// BaselineRetention converts the retention window to a duration. Zero keeps
// baselines forever.
func (c *Config) BaselineRetention() time.Duration {
	return time.Duration(c.Storage.BaselineRetentionDays) * 24 * time.Hour
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be an integer", key), err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be a duration", key), err)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
