package core

import (
	"errors"
	"os"
	"testing"
	"time"
)

// clearConfigEnv unsets every variable LoadConfig reads and restores them after the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL", "DEBUG", "LLM_BACKEND", "OPENROUTER_API_KEY", "OPENAI_API_KEY",
		"DEFAULT_MODEL", "VAPI_WORKFLOW_ID", "INTERVIEWER_ASSISTANT_ID", "CALL_PROVIDER_URL",
		"FEEDBACK_URL", "FEEDBACK_STORE", "DATA_DIR", "FIREBASE_CREDENTIALS_FILE",
		"FIREBASE_PROJECT_ID", "DISPATCH_TIMEOUT", "HTTP_ADDR",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name            string
		envVars         map[string]string
		expectedLevel   string
		expectedModel   string
		expectedAPIKey  string
		expectedTimeout time.Duration
		expectError     bool
	}{
		{
			name:            "default values",
			envVars:         map[string]string{},
			expectedLevel:   "info",
			expectedModel:   "google/gemini-2.5-flash",
			expectedTimeout: 60 * time.Second,
		},
		{
			name: "custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "warn",
			},
			expectedLevel:   "warn",
			expectedModel:   "google/gemini-2.5-flash",
			expectedTimeout: 60 * time.Second,
		},
		{
			name: "debug flag overrides log level",
			envVars: map[string]string{
				"LOG_LEVEL": "warn",
				"DEBUG":     "1",
			},
			expectedLevel:   "debug",
			expectedModel:   "google/gemini-2.5-flash",
			expectedTimeout: 60 * time.Second,
		},
		{
			name: "custom model",
			envVars: map[string]string{
				"DEFAULT_MODEL": "custom/model",
			},
			expectedLevel:   "info",
			expectedModel:   "custom/model",
			expectedTimeout: 60 * time.Second,
		},
		{
			name: "with API key",
			envVars: map[string]string{
				"OPENROUTER_API_KEY": "test-key",
			},
			expectedLevel:   "info",
			expectedModel:   "google/gemini-2.5-flash",
			expectedAPIKey:  "test-key",
			expectedTimeout: 60 * time.Second,
		},
		{
			name: "custom dispatch timeout",
			envVars: map[string]string{
				"DISPATCH_TIMEOUT": "15s",
			},
			expectedLevel:   "info",
			expectedModel:   "google/gemini-2.5-flash",
			expectedTimeout: 15 * time.Second,
		},
		{
			name: "invalid dispatch timeout",
			envVars: map[string]string{
				"DISPATCH_TIMEOUT": "soon",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if cfg.LogLevel != tt.expectedLevel {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.expectedLevel)
			}

			if cfg.DefaultModel != tt.expectedModel {
				t.Errorf("DefaultModel = %v, want %v", cfg.DefaultModel, tt.expectedModel)
			}

			if cfg.OpenRouterAPIKey != tt.expectedAPIKey {
				t.Errorf("OpenRouterAPIKey = %v, want %v", cfg.OpenRouterAPIKey, tt.expectedAPIKey)
			}

			if cfg.DispatchTimeout != tt.expectedTimeout {
				t.Errorf("DispatchTimeout = %v, want %v", cfg.DispatchTimeout, tt.expectedTimeout)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.InterviewerID != "interviewer" {
		t.Errorf("InterviewerID = %v, want interviewer", cfg.InterviewerID)
	}
	if cfg.FeedbackStore != "file" {
		t.Errorf("FeedbackStore = %v, want file", cfg.FeedbackStore)
	}
	if cfg.DataDir != ".intervoice" {
		t.Errorf("DataDir = %v, want .intervoice", cfg.DataDir)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %v, want :8081", cfg.HTTPAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLMBackend:      "openrouter",
			FeedbackStore:   "file",
			DataDir:         ".intervoice",
			DispatchTimeout: time.Minute,
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "openai backend", mutate: func(c *Config) { c.LLMBackend = "openai" }},
		{name: "unknown backend", mutate: func(c *Config) { c.LLMBackend = "llama" }, wantField: "LLM_BACKEND"},
		{name: "unknown store", mutate: func(c *Config) { c.FeedbackStore = "s3" }, wantField: "FEEDBACK_STORE"},
		{name: "file store without dir", mutate: func(c *Config) { c.DataDir = "" }, wantField: "DATA_DIR"},
		{
			name:      "firestore without project",
			mutate:    func(c *Config) { c.FeedbackStore = "firestore" },
			wantField: "FIREBASE_PROJECT_ID",
		},
		{
			name: "firestore with project",
			mutate: func(c *Config) {
				c.FeedbackStore = "firestore"
				c.FirebaseProjectID = "prep-app"
			},
		},
		{name: "zero timeout", mutate: func(c *Config) { c.DispatchTimeout = 0 }, wantField: "DISPATCH_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if valErr.Field != tt.wantField {
				t.Errorf("Field = %v, want %v", valErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Targets(t *testing.T) {
	cfg := &Config{WorkflowID: "wf", InterviewerID: "iv"}

	if got := cfg.Targets(); got != (Targets{WorkflowID: "wf", InterviewerID: "iv"}) {
		t.Errorf("Targets() = %+v", got)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "env var set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env var not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			envValue:     "",
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			result := getEnvOrDefault(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getEnvOrDefault() = %v, want %v", result, tt.expected)
			}
		})
	}
}
