// Package config provides application configuration management.
// Settings come from environment variables, optionally seeded from a .env
// file, with defaults for everything except credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Vision provider names accepted in VISION_PROVIDERS.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration.
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string // empty disables signature verification

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	Vision   VisionConfig
	Session  SessionConfig
	Limits   LimitConfig
	Archive  ArchiveConfig
	Observe  ObservabilityConfig
	FeeRate  float64
	LineAPI  time.Duration
	FetchAPI time.Duration
}

// VisionConfig selects and configures image analysis providers.
type VisionConfig struct {
	OpenAIAPIKey string
	GeminiAPIKey string
	Providers    []string // order of preference; later entries are fallbacks
	OpenAIModel  string
	GeminiModel  string
	Timeout      time.Duration
}

// SessionConfig configures per-user conversation state.
type SessionConfig struct {
	Backend  string
	TTL      time.Duration
	DataDir  string
	RedisURL string
}

// LimitConfig bounds analysis load.
type LimitConfig struct {
	MaxConcurrentAnalyses int
	AnalysisBurst         float64 // 0 disables the per-user limiter
	AnalysisRefillPerHour float64
}

// ArchiveConfig configures the optional R2 analysis archive.
type ArchiveConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// Enabled reports whether all R2 credentials are present.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.AccessKeyID != "" && a.SecretAccessKey != "" && a.Bucket != ""
}

// ObservabilityConfig holds metrics auth and remote error/log sinks.
type ObservabilityConfig struct {
	MetricsUsername   string
	MetricsPassword   string // empty = no auth
	SentryDSN         string
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64
	BetterStackToken  string
}

// Load reads configuration from the environment after trying .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		Vision: loadVisionConfig(),

		Session: SessionConfig{
			Backend:  strings.ToLower(getEnv(EnvSessionBackend, SessionBackendMemory)),
			TTL:      getDurationEnv(EnvSessionTTL, 6*time.Hour),
			DataDir:  getEnv(EnvDataDir, getDefaultDataDir()),
			RedisURL: getEnv(EnvRedisURL, ""),
		},

		Limits: LimitConfig{
			MaxConcurrentAnalyses: getIntEnv(EnvMaxConcurrentAnalyses, 4),
			AnalysisBurst:         getFloatEnv(EnvAnalysisRateBurst, 10),
			AnalysisRefillPerHour: getFloatEnv(EnvAnalysisRateRefill, 10),
		},

		Archive: loadArchiveConfig(),

		Observe: ObservabilityConfig{
			MetricsUsername:   getEnv(EnvMetricsUsername, "prometheus"),
			MetricsPassword:   getEnv(EnvMetricsPassword, ""),
			SentryDSN:         getEnv(EnvSentryDSN, ""),
			SentryToken:       getEnv(EnvSentryToken, ""),
			SentryHost:        getEnv(EnvSentryHost, ""),
			SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
			SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
			BetterStackToken:  getEnv(EnvBetterStackToken, ""),
		},

		FeeRate:  getFloatEnv(EnvFeeRate, 0.10),
		LineAPI:  getDurationEnv(EnvLineAPITimeout, LineAPICall),
		FetchAPI: getDurationEnv(EnvContentFetchTimeout, ContentFetch),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadVision reads only the vision settings, for tools that analyze images
// without running the bot.
func LoadVision() (VisionConfig, error) {
	_ = godotenv.Load()
	v := loadVisionConfig()
	if v.OpenAIAPIKey == "" && v.GeminiAPIKey == "" {
		return v, fmt.Errorf("at least one of %s or %s is required", EnvOpenAIAPIKey, EnvGeminiAPIKey)
	}
	return v, nil
}

// LoadArchive reads only the archive settings.
func LoadArchive() (ArchiveConfig, error) {
	_ = godotenv.Load()
	a := loadArchiveConfig()
	if !a.Enabled() {
		return a, fmt.Errorf("%s, %s, %s and %s are required", EnvR2Endpoint, EnvR2AccessKeyID, EnvR2SecretAccessKey, EnvR2BucketName)
	}
	return a, nil
}

func loadVisionConfig() VisionConfig {
	return VisionConfig{
		OpenAIAPIKey: getEnv(EnvOpenAIAPIKey, ""),
		GeminiAPIKey: getEnv(EnvGeminiAPIKey, ""),
		Providers:    getListEnv(EnvVisionProviders, []string{ProviderOpenAI, ProviderGemini}),
		OpenAIModel:  getEnv(EnvOpenAIVisionModel, "gpt-4.1-mini"),
		GeminiModel:  getEnv(EnvGeminiVisionModel, "gemini-2.5-flash"),
		Timeout:      getDurationEnv(EnvVisionTimeout, VisionCall),
	}
}

func loadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Endpoint:        getEnv(EnvR2Endpoint, ""),
		AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		Bucket:          getEnv(EnvR2BucketName, ""),
		Prefix:          getEnv(EnvR2ArchivePrefix, "analyses"),
	}
}

// Validate checks required values and ranges, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if !c.HasVisionProvider() {
		errs = append(errs, fmt.Errorf("at least one of %s or %s is required", EnvOpenAIAPIKey, EnvGeminiAPIKey))
	}
	for _, p := range c.Vision.Providers {
		if p != ProviderOpenAI && p != ProviderGemini {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", EnvVisionProviders, p))
		}
	}
	if c.Vision.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvVisionTimeout, c.Vision.Timeout))
	}
	if c.LineAPI <= 0 || c.FetchAPI <= 0 {
		errs = append(errs, errors.New("LINE API timeouts must be positive"))
	}

	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if c.Session.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite session backend", EnvDataDir))
		}
	case SessionBackendRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis session backend", EnvRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: unknown backend %q", EnvSessionBackend, c.Session.Backend))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, c.Session.TTL))
	}

	if c.Limits.MaxConcurrentAnalyses < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvMaxConcurrentAnalyses, c.Limits.MaxConcurrentAnalyses))
	}
	if c.Limits.AnalysisBurst < 0 || c.Limits.AnalysisRefillPerHour < 0 {
		errs = append(errs, errors.New("analysis rate limit values cannot be negative"))
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1), got %v", EnvFeeRate, c.FeeRate))
	}

	return errors.Join(errs...)
}

// HasVisionProvider reports whether any configured provider has a key.
func (c *Config) HasVisionProvider() bool {
	for _, p := range c.Vision.Providers {
		if c.APIKeyFor(p) != "" {
			return true
		}
	}
	return false
}

// APIKeyFor returns the key for a provider name.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.Vision.OpenAIAPIKey
	case ProviderGemini:
		return c.Vision.GeminiAPIKey
	default:
		return ""
	}
}

// SQLitePath returns the session database path.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Session.DataDir, "sessions.db")
}

// SignatureVerification reports whether inbound webhooks are verified.
func (c *Config) SignatureVerification() bool {
	return c.LineChannelSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, lower-casing and dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
