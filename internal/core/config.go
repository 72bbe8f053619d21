package core

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string // debug, info, warn, error

	// LLM backend used by the feedback service
	LLMBackend       string // openrouter or openai
	OpenRouterAPIKey string
	OpenAIAPIKey     string
	DefaultModel     string

	// Call targets: the workflow improvises an interview, the interviewer runs a fixed script
	WorkflowID    string
	InterviewerID string

	CallProviderURL string // websocket endpoint for call events
	FeedbackURL     string // remote feedback service; empty means in-process

	FeedbackStore           string // file or firestore
	DataDir                 string
	FirebaseCredentialsFile string
	FirebaseProjectID       string

	DispatchTimeout time.Duration
	HTTPAddr        string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("DISPATCH_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("parse DISPATCH_TIMEOUT: %w", err)
	}

	cfg := &Config{
		LogLevel:                logLevel,
		LLMBackend:              getEnvOrDefault("LLM_BACKEND", "openrouter"),
		OpenRouterAPIKey:        os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:            os.Getenv("OPENAI_API_KEY"),
		DefaultModel:            getEnvOrDefault("DEFAULT_MODEL", "google/gemini-2.5-flash"),
		WorkflowID:              os.Getenv("VAPI_WORKFLOW_ID"),
		InterviewerID:           getEnvOrDefault("INTERVIEWER_ASSISTANT_ID", "interviewer"),
		CallProviderURL:         getEnvOrDefault("CALL_PROVIDER_URL", "ws://localhost:8090/call"),
		FeedbackURL:             os.Getenv("FEEDBACK_URL"),
		FeedbackStore:           getEnvOrDefault("FEEDBACK_STORE", "file"),
		DataDir:                 getEnvOrDefault("DATA_DIR", ".intervoice"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		DispatchTimeout:         timeout,
		HTTPAddr:                getEnvOrDefault("HTTP_ADDR", ":8081"),
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
// API keys are checked later, when the LLM backend is built.
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case "openrouter", "openai":
	default:
		return &ValidationError{Field: "LLM_BACKEND", Message: fmt.Sprintf("unsupported backend %q", c.LLMBackend)}
	}

	switch c.FeedbackStore {
	case "file":
		if c.DataDir == "" {
			return &ValidationError{Field: "DATA_DIR", Message: "required for file store"}
		}
	case "firestore":
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsFile == "" {
			return &ValidationError{Field: "FIREBASE_PROJECT_ID", Message: "project id or credentials file required for firestore store"}
		}
	default:
		return &ValidationError{Field: "FEEDBACK_STORE", Message: fmt.Sprintf("unsupported store %q", c.FeedbackStore)}
	}

	if c.DispatchTimeout <= 0 {
		return &ValidationError{Field: "DISPATCH_TIMEOUT", Message: "must be positive"}
	}

	return nil
}

// Targets returns the call targets derived from the configuration.
func (c *Config) Targets() Targets {
	return Targets{
		WorkflowID:    c.WorkflowID,
		InterviewerID: c.InterviewerID,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
