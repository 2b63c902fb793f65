package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location of the YAML config file.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr                 string `yaml:"redisAddr"`
	RedisPassword             string `yaml:"redisPassword"`
	AnalyzeRateLimitPerMinute int    `yaml:"analyzeRateLimitPerMinute"`

	AllowedOrigins    []string `yaml:"allowedOrigins"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`

	HuggingFaceBaseURL      string `yaml:"huggingFaceBaseURL"`
	HuggingFaceAPIKey       string `yaml:"huggingFaceAPIKey"`
	SentimentModel          string `yaml:"sentimentModel"`
	SentimentTimeoutSeconds int    `yaml:"sentimentTimeoutSeconds"`

	GeminiBaseURL          string `yaml:"geminiBaseURL"`
	GeminiAPIKey           string `yaml:"geminiAPIKey"`
	GeminiModel            string `yaml:"geminiModel"`
	KeyPointTimeoutSeconds int    `yaml:"keyPointTimeoutSeconds"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		cfg.HuggingFaceAPIKey = v
	}
	if v := os.Getenv("HUGGINGFACE_BASE_URL"); v != "" {
		cfg.HuggingFaceBaseURL = v
	}
	if v := os.Getenv("SENTIMENT_MODEL"); v != "" {
		cfg.SentimentModel = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.GeminiBaseURL = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("SENTIMENT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SentimentTimeoutSeconds = n
		}
	}
	if v := os.Getenv("KEYPOINT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.KeyPointTimeoutSeconds = n
		}
	}
	if v := os.Getenv("ANALYZE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.AnalyzeRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.GeminiAPIKey == "" {
		return errors.New("config: geminiAPIKey is required (set in config.yaml or GEMINI_API_KEY)")
	}
	if cfg.SentimentTimeoutSeconds < 0 || cfg.KeyPointTimeoutSeconds < 0 {
		return errors.New("config: capability timeouts must be >= 0")
	}
	if cfg.AnalyzeRateLimitPerMinute < 0 {
		return errors.New("config: analyzeRateLimitPerMinute must be >= 0")
	}
	if cfg.AnalyzeRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when analyze rate limiting is enabled")
	}
	return nil
}

// SentimentTimeout returns the configured per-call sentiment deadline.
func (c FileConfig) SentimentTimeout() time.Duration {
	return time.Duration(c.SentimentTimeoutSeconds) * time.Second
}

// KeyPointTimeout returns the configured per-call key point deadline.
func (c FileConfig) KeyPointTimeout() time.Duration {
	return time.Duration(c.KeyPointTimeoutSeconds) * time.Second
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
