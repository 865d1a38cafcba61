package config

import "testing"

func TestDefaultsAreValid(t *testing.T) {
	cfg := GetDefaults()
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("Default configuration should validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Run("BadPort", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for port 0")
		}
	})

	t.Run("BadPolicy", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Engine.DefaultPolicy = "ENCRYPT"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown policy")
		}
	})

	t.Run("PolicyCaseInsensitive", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Engine.DefaultPolicy = "anonymize"
		if err := validateConfig(cfg); err != nil {
			t.Errorf("Lowercase policy should validate: %v", err)
		}
	})

	t.Run("EmptyFiller", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Engine.RedactFiller = ""
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for empty filler")
		}
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown log level")
		}
	})

	t.Run("BadRateLimit", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Security.RateLimit.RequestsPerMin = -1
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for negative rate limit")
		}
	})
}
