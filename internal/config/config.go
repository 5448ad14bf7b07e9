package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers accepted by LLM_PROVIDER and LLM_FALLBACK.
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderNone    = "none"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string

	// LLM
	LLMProvider         string
	LLMFallback         string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModelID       string
	LLMMaxTokens        int
	LLMTemperature      float64
	LLMTimeout          time.Duration
	LLMMaxToolRounds    int
	HistoryLimit        int
	ResetHistoryOnError bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Clinic
	ClinicName     string
	ClinicTimezone string
	MaxAdvanceDays int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LLMProvider:         getEnvAsProvider("LLM_PROVIDER", ProviderBedrock),
		LLMFallback:         getEnvAsProvider("LLM_FALLBACK", ProviderNone),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxToolRounds:    getEnvAsInt("LLM_MAX_TOOL_ROUNDS", 3),
		HistoryLimit:        getEnvAsInt("HISTORY_LIMIT", 40),
		ResetHistoryOnError: getEnvAsBool("RESET_HISTORY_ON_ERROR", false),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ClinicName:          getEnv("CLINIC_NAME", ""),
		ClinicTimezone:      getEnv("CLINIC_TIMEZONE", ""),
		MaxAdvanceDays:      getEnvAsInt("MAX_ADVANCE_DAYS", 90),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
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

// getEnvAsProvider normalizes a provider name; unknown values fall back to
// the default.
func getEnvAsProvider(key, defaultValue string) string {
	switch value := strings.ToLower(strings.TrimSpace(getEnv(key, ""))); value {
	case ProviderBedrock, ProviderGemini, ProviderNone:
		return value
	default:
		return defaultValue
	}
}
