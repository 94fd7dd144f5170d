package config

import (
	"strings"
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "jobboard", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Provider: ProviderConfig{
			APIBaseURL: "https://api.example.test",
			APIToken:   "tok",
		},
		Ops: OpsConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndWebhookToken(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and webhook token")
	}
}

func setValidEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":            "local",
		"APP_PORT":           "8080",
		"DB_HOST":            "localhost",
		"DB_PORT":            "5432",
		"DB_USER":            "postgres",
		"DB_PASSWORD":        "x",
		"DB_NAME":            "jobboard",
		"REDIS_HOST":         "localhost",
		"REDIS_PORT":         "6379",
		"PROVIDER_API_URL":   "https://api.example.test",
		"PROVIDER_API_TOKEN": "tok",
		"OPS_JWT_SECRET":     "secret",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_MalformedIdleTimeoutIsParseError(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SESSION_IDLE_TIMEOUT", "five minutes")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected parse error for malformed SESSION_IDLE_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "SESSION_IDLE_TIMEOUT") {
		t.Fatalf("error must name the offending variable, got %v", err)
	}
}

func TestLoad_WellFormedDurations(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("OPS_TOKEN_TTL", "2h")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Session.IdleTimeout != 90*time.Second {
		t.Fatalf("expected 90s idle timeout, got %v", c.Session.IdleTimeout)
	}
	if c.Ops.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h token TTL, got %v", c.Ops.TokenTTL)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Session.IdleTimeout != 5*time.Minute {
		t.Fatalf("expected 5m idle timeout default, got %v", c.Session.IdleTimeout)
	}
	if c.Provider.RegistrationExt == "" || c.Provider.ManagementExt == "" {
		t.Fatalf("expected provider extension defaults")
	}
}
