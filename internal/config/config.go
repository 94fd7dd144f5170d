package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the IVR process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Ops      OpsConfig
	Session  SessionConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit so production deployments must opt in.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// ProviderConfig covers the telephony provider: the webhook token it presents
// on every callback, its list-membership API, and the extensions we transfer
// calls into for provider-native enrollment/management.
type ProviderConfig struct {
	APIBaseURL string
	APIToken   string

	// SystemNumber identifies this IVR line at the provider.
	SystemNumber string

	WebhookToken string

	// RegistrationExt is the provider folder for generic broadcast-list
	// registration; ManagementExt for per-list self-management.
	RegistrationExt string
	ManagementExt   string
}

type OpsConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type SessionConfig struct {
	// IdleTimeout unconditionally ends a call and discards draft state.
	IdleTimeout time.Duration

	// MaxConcurrentCalls caps simultaneous sessions per system number.
	// Zero disables the cap.
	MaxConcurrentCalls int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Provider.APIBaseURL = strings.TrimSpace(os.Getenv("PROVIDER_API_URL"))
	c.Provider.APIToken = os.Getenv("PROVIDER_API_TOKEN")
	c.Provider.SystemNumber = strings.TrimSpace(os.Getenv("PROVIDER_SYSTEM_NUMBER"))
	c.Provider.WebhookToken = os.Getenv("PROVIDER_WEBHOOK_TOKEN")
	c.Provider.RegistrationExt = strings.TrimSpace(os.Getenv("PROVIDER_REGISTRATION_EXT"))
	c.Provider.ManagementExt = strings.TrimSpace(os.Getenv("PROVIDER_MANAGEMENT_EXT"))

	c.Ops.JWTSecret = os.Getenv("OPS_JWT_SECRET")
	{
		d, err := mustDuration("OPS_TOKEN_TTL")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Ops.TokenTTL = d
	}

	{
		d, err := mustDuration("SESSION_IDLE_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Session.IdleTimeout = d
	}
	{
		v := strings.TrimSpace(os.Getenv("SESSION_MAX_CONCURRENT"))
		if v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				parseErrs = append(parseErrs, fmt.Errorf("SESSION_MAX_CONCURRENT must be an integer, got %q", v))
			}
			c.Session.MaxConcurrentCalls = n
		}
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Provider.APIBaseURL == "" {
		errs = append(errs, errors.New("PROVIDER_API_URL is required"))
	}
	if c.Provider.APIToken == "" {
		errs = append(errs, errors.New("PROVIDER_API_TOKEN is required"))
	}
	if c.IsProduction() && c.Provider.WebhookToken == "" {
		errs = append(errs, errors.New("PROVIDER_WEBHOOK_TOKEN is required in production"))
	}
	if c.Provider.RegistrationExt == "" {
		c.Provider.RegistrationExt = "/9"
	}
	if c.Provider.ManagementExt == "" {
		c.Provider.ManagementExt = "/10"
	}

	if c.Ops.JWTSecret == "" {
		errs = append(errs, errors.New("OPS_JWT_SECRET is required"))
	}
	if c.Ops.TokenTTL <= 0 {
		c.Ops.TokenTTL = 1 * time.Hour
	}

	if c.Session.IdleTimeout <= 0 {
		// Dialog-level inactivity window; a silent caller is dropped and all
		// uncommitted draft state discarded.
		c.Session.IdleTimeout = 5 * time.Minute
	}
	if c.Session.MaxConcurrentCalls < 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_CONCURRENT must be >= 0, got %d", c.Session.MaxConcurrentCalls))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// mustDuration treats absence as zero (callers apply defaults) but a
// malformed value is a hard parse error.
func mustDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
