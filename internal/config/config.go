package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/fmmarmello/finAI/internal/finance"
)

type Config struct {
	Env      string
	LogLevel slog.Level
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Admin    AdminConfig
	Finance  FinanceConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
}

type AdminConfig struct {
	Emails []string
}

// FinanceConfig задает правила учета: валюту по умолчанию, часовой пояс
// для определения "сегодня" и разбор загруженных выписок.
type FinanceConfig struct {
	Currency         string
	Location         *time.Location
	SignPolicy       finance.SignPolicy
	FallbackCategory string
	MaxUploadBytes   int64
}

// EventsConfig включает зеркалирование событий в RabbitMQ, если задан URL.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// Load загружает конфигурацию приложения из окружения и .env.
// Возвращает сразу все ошибки разбора.
func Load() (Config, error) {
	if err := loadEnv(); err != nil {
		return Config{}, err
	}

	env := &envReader{}
	cfg := Config{
		Env:      env.str("APP_ENV", "local"),
		LogLevel: env.level("LOG_LEVEL", slog.LevelInfo),
		Server: ServerConfig{
			Host:        env.str("SERVER_HOST", "0.0.0.0"),
			Port:        env.positive("SERVER_PORT", 8080),
			ReadTimeout: env.duration("SERVER_READ_TIMEOUT", 5*time.Second),
			// SSE-потоки живут долго, таймаут записи по умолчанию отключен.
			WriteTimeout: env.duration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:  env.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            env.str("DB_HOST", "localhost"),
			Port:            env.positive("DB_PORT", 5432),
			User:            env.str("DB_USER", "finai"),
			Password:        env.str("DB_PASSWORD", "finai"),
			Name:            env.str("DB_NAME", "finai"),
			SSLMode:         env.str("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.positive("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    env.positive("DB_MAX_IDLE_CONNS", 2),
			ConnMaxIdleTime: env.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     env.boolean("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret:          env.str("JWT_SECRET", ""),
			JWTIssuer:          env.str("JWT_ISSUER", "finai"),
			AccessTokenTTL:     env.duration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL:    env.duration("JWT_REFRESH_TTL", 30*24*time.Hour),
			RateLimitPerMinute: env.positive("AUTH_RATE_LIMIT_PER_MINUTE", 60),
			RateLimitBurst:     env.positive("AUTH_RATE_LIMIT_BURST", 10),
		},
		AI:    loadAI(env),
		Admin: AdminConfig{Emails: parseCSVEnv("ADMIN_EMAILS")},
		Finance: FinanceConfig{
			Currency:         strings.ToUpper(env.str("DEFAULT_CURRENCY", "BRL")),
			Location:         env.location("APP_TIMEZONE", "America/Sao_Paulo"),
			SignPolicy:       env.signPolicy("DOCUMENT_SIGN_POLICY", finance.SignPositiveExpense),
			FallbackCategory: env.str("DOCUMENT_FALLBACK_CATEGORY", finance.FallbackCategory),
			MaxUploadBytes:   int64(env.positive("UPLOAD_MAX_MB", 10)) << 20,
		},
		Events: EventsConfig{
			AMQPURL:  env.str("AMQP_URL", ""),
			Exchange: env.str("AMQP_EXCHANGE", "finai.events"),
		},
	}

	if err := errors.Join(env.errs...); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// loadAI подставляет адрес и модель по умолчанию для выбранного провайдера.
func loadAI(env *envReader) AIConfig {
	provider := strings.ToLower(env.str("AI_PROVIDER", "gemini"))

	baseURL, model := "https://api.groq.com/openai/v1", "meta-llama/llama-4-scout-17b-16e-instruct"
	apiKey := env.str("AI_API_KEY", "")
	if provider == "gemini" {
		baseURL, model = "https://generativelanguage.googleapis.com/v1beta", "gemini-2.0-flash"
		if apiKey == "" {
			apiKey = env.str("GEMINI_API_KEY", "")
		}
	}

	return AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            env.str("AI_BASE_URL", baseURL),
		Model:              env.str("AI_MODEL", model),
		Timeout:            env.duration("AI_TIMEOUT", 30*time.Second),
		RateLimitPerMinute: env.positive("AI_RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     env.positive("AI_RATE_LIMIT_BURST", 10),
		MaxOutputTokens:    env.positive("AI_MAX_OUTPUT_TOKENS", 4096),
	}
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	return c.url("postgres")
}

// MigrationURL возвращает адрес базы для golang-migrate с драйвером pgx/v5.
func (c DatabaseConfig) MigrationURL() string {
	return c.url("pgx5")
}

func (c DatabaseConfig) url(scheme string) string {
	dsn := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Database.Host != "", "DB_HOST is required"},
		{c.Database.User != "", "DB_USER is required"},
		{c.Database.Name != "", "DB_NAME is required"},
		{c.Database.MaxIdleConns <= c.Database.MaxOpenConns, "DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS"},
		{c.Auth.JWTSecret != "", "JWT_SECRET is required"},
		{c.AI.Provider == "gemini" || c.AI.Provider == "groq", "AI_PROVIDER must be gemini or groq"},
		{len(c.Finance.Currency) == 3, "DEFAULT_CURRENCY must be a 3-letter code"},
		{strings.TrimSpace(c.Finance.FallbackCategory) != "", "DOCUMENT_FALLBACK_CATEGORY must not be empty"},
	}

	var errs []error
	for _, check := range checks {
		if !check.ok {
			errs = append(errs, errors.New(check.msg))
		}
	}
	return errors.Join(errs...)
}

// envReader читает переменные окружения и копит ошибки разбора.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return strings.TrimSpace(value), ok
}

func (r *envReader) fail(key, format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf("%s %s", key, fmt.Sprintf(format, args...)))
}

func (r *envReader) str(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (r *envReader) positive(key string, fallback int) int {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		r.fail(key, "must be a positive integer, got %q", value)
		return fallback
	}
	return parsed
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		r.fail(key, "must be a non-negative duration, got %q", value)
		return fallback
	}
	return parsed
}

func (r *envReader) boolean(key string, fallback bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, "must be a boolean, got %q", value)
		return fallback
	}
	return parsed
}

func (r *envReader) level(key string, fallback slog.Level) slog.Level {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		r.fail(key, "must be debug, info, warn or error, got %q", value)
		return fallback
	}
	return level
}

func (r *envReader) location(key, fallback string) *time.Location {
	name := r.str(key, fallback)
	location, err := time.LoadLocation(name)
	if err != nil {
		r.fail(key, "must be a valid IANA zone: %v", err)
		return time.UTC
	}
	return location
}

func (r *envReader) signPolicy(key string, fallback finance.SignPolicy) finance.SignPolicy {
	policy, err := finance.ParseSignPolicy(r.str(key, string(fallback)))
	if err != nil {
		r.fail(key, "%v", err)
		return fallback
	}
	return policy
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
