package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth: "firebase" verifies Firebase ID tokens, "jwt" verifies HS256 tokens
	AuthMode  string
	JWTSecret string

	// Firebase (auth, messaging)
	FirebaseProjectID       string
	FirebaseCredentialsPath string

	// AI Providers
	OpenAIAPIKey      string
	OpenAIAPIURL      string
	OpenAIModel       string
	OpenAIVisionModel string

	GLMAPIKey      string
	GLMAPIURL      string
	GLMVisionModel string

	DeepSeekAPIKey string
	DeepSeekAPIURL string
	DeepSeekModel  string

	AITimeout time.Duration

	// AI usage limits (per user)
	SuggestionsPerDay          int
	TrialRecognitionsPerMonth  int
	PaidRecognitionsPerMonth   int
	TrialSpaceAnalysesPerMonth int
	PaidSpaceAnalysesPerMonth  int

	// Free tier caps (0 = unlimited)
	FreeMaxChildren int
	FreeMaxToys     int

	// Accounts & households
	DeletionGraceDays int
	InvitationTTL     time.Duration

	// RevenueCat webhook shared secret (Authorization header)
	RevenueCatWebhookAuth string

	// Email (SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Observability
	SentryDSN string
	AppEnv    string

	// Jobs
	JobsEnabled bool

	// Server
	Port        string
	CORSOrigins string
	RedisURL    string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "toyrotator"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AuthMode:  getEnv("AUTH_MODE", "firebase"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL:      getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIVisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),

		GLMAPIKey:      getEnv("GLM_API_KEY", ""),
		GLMAPIURL:      getEnv("GLM_API_URL", "https://api.z.ai/api/paas/v4/chat/completions"),
		GLMVisionModel: getEnv("GLM_VISION_MODEL", "glm-4v-plus"),

		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		AITimeout: parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		SuggestionsPerDay:          getInt("AI_SUGGESTIONS_PER_DAY", 1),
		TrialRecognitionsPerMonth:  getInt("AI_TRIAL_RECOGNITIONS_PER_MONTH", 5),
		PaidRecognitionsPerMonth:   getInt("AI_PAID_RECOGNITIONS_PER_MONTH", 50),
		TrialSpaceAnalysesPerMonth: getInt("AI_TRIAL_SPACE_ANALYSES_PER_MONTH", 2),
		PaidSpaceAnalysesPerMonth:  getInt("AI_PAID_SPACE_ANALYSES_PER_MONTH", 10),

		FreeMaxChildren: getInt("FREE_MAX_CHILDREN", 2),
		FreeMaxToys:     getInt("FREE_MAX_TOYS", 50),

		DeletionGraceDays: getInt("DELETION_GRACE_DAYS", 30),
		InvitationTTL:     parseDuration(getEnv("INVITATION_TTL", "168h"), 7*24*time.Hour),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "ToyRotator"),
		AppBaseURL:   getEnv("APP_BASE_URL", "https://toyrotator.app"),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		JobsEnabled: getBool("JOBS_ENABLED", true),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		RedisURL:    getEnv("REDIS_URL", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AIConfigured reports whether at least one chat-completion provider has a key.
func (c *Config) AIConfigured() bool {
	return c.OpenAIAPIKey != "" || c.GLMAPIKey != "" || c.DeepSeekAPIKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
