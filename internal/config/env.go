// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// LINE
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Vision
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvVisionProviders   = "VISION_PROVIDERS"
	EnvOpenAIVisionModel = "OPENAI_VISION_MODEL"
	EnvGeminiVisionModel = "GEMINI_VISION_MODEL"
	EnvVisionTimeout     = "VISION_TIMEOUT"

	// Outbound LINE calls
	EnvLineAPITimeout      = "LINE_API_TIMEOUT"
	EnvContentFetchTimeout = "CONTENT_FETCH_TIMEOUT"

	// Analysis limits
	EnvMaxConcurrentAnalyses = "MAX_CONCURRENT_ANALYSES"
	EnvAnalysisRateBurst     = "ANALYSIS_RATE_BURST"
	EnvAnalysisRateRefill    = "ANALYSIS_RATE_REFILL_PER_HOUR"

	// Sessions
	EnvSessionBackend = "SESSION_BACKEND"
	EnvSessionTTL     = "SESSION_TTL"
	EnvDataDir        = "DATA_DIR"
	EnvRedisURL       = "REDIS_URL"

	// Profit
	EnvFeeRate = "MARKETPLACE_FEE_RATE"

	// Analysis archive (R2 / S3 compatible)
	EnvR2Endpoint        = "R2_ENDPOINT"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "R2_BUCKET_NAME"
	EnvR2ArchivePrefix   = "R2_ARCHIVE_PREFIX"

	// Observability
	EnvMetricsUsername   = "METRICS_USERNAME"
	EnvMetricsPassword   = "METRICS_PASSWORD"
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryToken       = "SENTRY_TOKEN"
	EnvSentryHost        = "SENTRY_HOST"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"
	EnvBetterStackToken  = "BETTERSTACK_TOKEN"
)
