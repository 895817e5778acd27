package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration for the dialogue worker.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Queue wiring. UseMemoryQueue swaps SQS for an in-process queue,
	// used in local development and tests.
	UseMemoryQueue       bool
	WorkerCount          int
	CallEventsQueueURL   string
	SurveyEventsQueueURL string

	// AWS / LocalStack.
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Language classification / phrasing generation.
	BedrockModelID string

	// Telephony control (Telnyx Call Control).
	TelnyxAPIKey  string
	TelnyxBaseURL string
	TelnyxVoice   string

	// Transcript audit mirror.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	TranscriptTTL time.Duration

	// Dialogue behavior.
	DefaultLanguage string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		CallEventsQueueURL:   getEnv("CALL_EVENTS_QUEUE_URL", ""),
		SurveyEventsQueueURL: getEnv("SURVEY_EVENTS_QUEUE_URL", ""),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:       getEnv("BEDROCK_MODEL_ID", ""),
		TelnyxAPIKey:         getEnv("TELNYX_API_KEY", ""),
		TelnyxBaseURL:        getEnv("TELNYX_BASE_URL", ""),
		TelnyxVoice:          getEnv("TELNYX_VOICE", "female"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		TranscriptTTL:        getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),
		DefaultLanguage:      strings.ToLower(strings.TrimSpace(getEnv("DEFAULT_LANGUAGE", "en"))),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
