package config

import (
	"os"
	"testing"
)

func TestLoadConfigWithDefaults(t *testing.T) {
	// Set only required env vars
	setTestEnv(t, map[string]string{
		"FITBIT_CLIENT_ID":     "test_client_id",
		"FITBIT_CLIENT_SECRET": "test_client_secret",
		"FITBIT_REDIRECT_URI":  "http://localhost/fitbit/callback",
		"INTERNAL_API_KEY":     "test_api_key",
	})

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Check defaults
	if config.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Host)
	}
	if config.Port != 4201 {
		t.Errorf("Expected default port 4201, got %d", config.Port)
	}
	if config.DatabasePath != "./stridesync.db" {
		t.Errorf("Expected default database path './stridesync.db', got %s", config.DatabasePath)
	}
	if config.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", config.LogLevel)
	}
	if config.MetricsEnabled {
		t.Error("Expected metrics to be disabled by default")
	}

	// Check required values
	if config.FitbitClientID != "test_client_id" {
		t.Errorf("Expected FITBIT_CLIENT_ID 'test_client_id', got %s", config.FitbitClientID)
	}
	if config.FitbitClientSecret != "test_client_secret" {
		t.Errorf("Expected FITBIT_CLIENT_SECRET 'test_client_secret', got %s", config.FitbitClientSecret)
	}
	if config.InternalAPIKey != "test_api_key" {
		t.Errorf("Expected INTERNAL_API_KEY 'test_api_key', got %s", config.InternalAPIKey)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	setTestEnv(t, map[string]string{
		"HOST":                 "0.0.0.0",
		"PORT":                 "8080",
		"DATABASE_PATH":        "/tmp/test.db",
		"FITBIT_CLIENT_ID":     "custom_client_id",
		"FITBIT_CLIENT_SECRET": "custom_client_secret",
		"FITBIT_REDIRECT_URI":  "https://example.com/fitbit/callback",
		"INTERNAL_API_KEY":     "custom_api_key",
		"LOG_LEVEL":            "debug",
		"METRICS_ENABLED":      "true",
		"METRICS_PORT":         "9102",
	})

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %s", config.Host)
	}
	if config.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", config.Port)
	}
	if config.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected database path '/tmp/test.db', got %s", config.DatabasePath)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %s", config.LogLevel)
	}
	if !config.MetricsEnabled {
		t.Error("Expected metrics to be enabled")
	}
	if config.MetricsPort != 9102 {
		t.Errorf("Expected metrics port 9102, got %d", config.MetricsPort)
	}
	if config.FitbitRedirectURI != "https://example.com/fitbit/callback" {
		t.Errorf("Expected redirect URI from env, got %s", config.FitbitRedirectURI)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	setTestEnv(t, map[string]string{
		// Missing FITBIT_CLIENT_ID
		"FITBIT_CLIENT_SECRET": "test_client_secret",
		"FITBIT_REDIRECT_URI":  "http://localhost/fitbit/callback",
		"INTERNAL_API_KEY":     "test_api_key",
	})

	_, err := Load()
	if err == nil {
		t.Error("Expected validation error for missing FITBIT_CLIENT_ID")
	}
}

func TestLoadConfigInvalidIntFallsBack(t *testing.T) {
	setTestEnv(t, map[string]string{
		"PORT":                 "not-a-number",
		"FITBIT_CLIENT_ID":     "test_client_id",
		"FITBIT_CLIENT_SECRET": "test_client_secret",
		"FITBIT_REDIRECT_URI":  "http://localhost/fitbit/callback",
		"INTERNAL_API_KEY":     "test_api_key",
	})

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Port != 4201 {
		t.Errorf("Expected fallback to default port 4201, got %d", config.Port)
	}
}

// Helper function to set test environment variables and clean up after test
func setTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	clearTestEnv(t)

	for key, value := range vars {
		os.Setenv(key, value)
		t.Cleanup(func() {
			os.Unsetenv(key)
		})
	}
}

// Helper function to clear all config-related environment variables
func clearTestEnv(t *testing.T) {
	t.Helper()

	envVars := []string{
		"HOST", "PORT", "DATABASE_PATH",
		"FITBIT_CLIENT_ID", "FITBIT_CLIENT_SECRET", "FITBIT_REDIRECT_URI",
		"INTERNAL_API_KEY", "LOG_LEVEL",
		"METRICS_ENABLED", "METRICS_HOST", "METRICS_PORT",
	}

	for _, key := range envVars {
		os.Unsetenv(key)
	}
}
