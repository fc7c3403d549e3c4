package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
	Jobs     JobsConfig
	Mojito   MojitoConfig
	SMTP     SMTPConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// Origin is sent as X-Origin on outbound sync calls and recognised on inbound webhooks.
	Origin string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	PoolSize        int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RealtimeChannel string
	TicketCacheTTL  time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// WebhookConfig holds the shared secret expected on inbound webhooks.
type WebhookConfig struct {
	Secret string
}

// JobsConfig controls scheduled jobs and the secret used to trigger them over HTTP.
type JobsConfig struct {
	Secret            string
	AutoCloseEnabled  bool
	AutoCloseInterval time.Duration
}

// MojitoConfig configures the Mojito360 API client.
type MojitoConfig struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Scopes         []string
	Source         string
	MaxRetries     int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
}

// SMTPConfig configures outgoing mail.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	BaseURL     string
}

// Load reads configuration from .env and environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("APP_NAME"),
			Env:                   v.GetString("APP_ENV"),
			Host:                  v.GetString("APP_HOST"),
			Port:                  v.GetString("APP_PORT"),
			Version:               v.GetString("APP_VERSION"),
			RequestTimeoutSeconds: v.GetInt("HTTP_REQUEST_TIMEOUT_SECONDS"),
			Origin:                v.GetString("APP_ORIGIN"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("POSTGRES_DSN"),
			MaxConns:       v.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns:       v.GetInt32("POSTGRES_MIN_CONNS"),
			RunMigrations:  v.GetBool("POSTGRES_RUN_MIGRATIONS"),
			ConnMaxIdleSec: v.GetInt32("POSTGRES_CONN_MAX_IDLE_SECONDS"),
			ConnMaxLifeSec: v.GetInt32("POSTGRES_CONN_MAX_LIFE_SECONDS"),
		},
		Redis: RedisConfig{
			Addr:            v.GetString("REDIS_ADDR"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			PoolSize:        v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout:     v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:     v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("REDIS_WRITE_TIMEOUT"),
			RealtimeChannel: v.GetString("REDIS_REALTIME_CHANNEL"),
			TicketCacheTTL:  v.GetDuration("REDIS_TICKET_CACHE_TTL"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			JWTSecret:             v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: v.GetInt("AUTH_ACCESS_TOKEN_TTL_MINUTES"),
		},
		Webhook: WebhookConfig{
			Secret: v.GetString("WEBHOOK_SECRET"),
		},
		Jobs: JobsConfig{
			Secret:            v.GetString("JOBS_SECRET"),
			AutoCloseEnabled:  v.GetBool("JOBS_AUTO_CLOSE_ENABLED"),
			AutoCloseInterval: v.GetDuration("JOBS_AUTO_CLOSE_INTERVAL"),
		},
		Mojito: MojitoConfig{
			BaseURL:        strings.TrimRight(v.GetString("MOJITO_BASE_URL"), "/"),
			TokenURL:       v.GetString("MOJITO_TOKEN_URL"),
			ClientID:       v.GetString("MOJITO_CLIENT_ID"),
			ClientSecret:   v.GetString("MOJITO_CLIENT_SECRET"),
			Scopes:         splitList(v.GetString("MOJITO_SCOPES")),
			Source:         v.GetString("MOJITO_SOURCE"),
			MaxRetries:     v.GetInt("MOJITO_MAX_RETRIES"),
			RetryBaseDelay: v.GetDuration("MOJITO_RETRY_BASE_DELAY"),
			Timeout:        v.GetDuration("MOJITO_TIMEOUT"),
		},
		SMTP: SMTPConfig{
			Host:        v.GetString("SMTP_HOST"),
			Port:        v.GetInt("SMTP_PORT"),
			Username:    v.GetString("SMTP_USERNAME"),
			Password:    v.GetString("SMTP_PASSWORD"),
			FromAddress: v.GetString("SMTP_FROM_ADDRESS"),
			FromName:    v.GetString("SMTP_FROM_NAME"),
			BaseURL:     strings.TrimRight(v.GetString("SMTP_BASE_URL"), "/"),
		},
	}

	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid REDIS_DB: %d", cfg.Redis.DB)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "helpdesk-service")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("APP_ORIGIN", "helpdesk")
	v.SetDefault("HTTP_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)
	v.SetDefault("POSTGRES_RUN_MIGRATIONS", true)
	v.SetDefault("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)
	v.SetDefault("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_REALTIME_CHANNEL", "helpdesk:realtime")
	v.SetDefault("REDIS_TICKET_CACHE_TTL", 60*time.Second)

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("AUTH_JWT_SECRET", "dev-secret")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60)

	v.SetDefault("JOBS_AUTO_CLOSE_ENABLED", false)
	v.SetDefault("JOBS_AUTO_CLOSE_INTERVAL", time.Hour)

	v.SetDefault("MOJITO_SOURCE", "mojito360")
	v.SetDefault("MOJITO_MAX_RETRIES", 3)
	v.SetDefault("MOJITO_RETRY_BASE_DELAY", 250*time.Millisecond)
	v.SetDefault("MOJITO_TIMEOUT", 15*time.Second)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_ADDRESS", "noreply@example.com")
	v.SetDefault("SMTP_FROM_NAME", "Helpdesk")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Validate reports the first missing setting required to talk to Mojito360.
func (m MojitoConfig) Validate() error {
	switch {
	case m.BaseURL == "":
		return errors.New("MOJITO_BASE_URL not configured")
	case m.TokenURL == "":
		return errors.New("MOJITO_TOKEN_URL not configured")
	case m.ClientID == "" || m.ClientSecret == "":
		return errors.New("MOJITO_CLIENT_ID/MOJITO_CLIENT_SECRET not configured")
	}
	return nil
}

// Enabled reports whether outgoing mail has a server configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
