package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fmmarmello/finAI/internal/finance"
)

// TestParseCSVEnv проверяет разбор списка email из ENV.
func TestParseCSVEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Admin@example.com, ,USER@Example.com ")

	got := parseCSVEnv("ADMIN_EMAILS")
	want := []string{"admin@example.com", "user@example.com"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// TestParseCSVEnvMissing проверяет поведение при отсутствии переменной.
func TestParseCSVEnvMissing(t *testing.T) {
	got := parseCSVEnv("MISSING_ENV")
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func withEmptyEnvFile(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APP_ENV=test\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
}

// TestLoadDefaults проверяет значения по умолчанию для учета.
func TestLoadDefaults(t *testing.T) {
	withEmptyEnvFile(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Finance.Currency != "BRL" {
		t.Fatalf("expected BRL, got %s", cfg.Finance.Currency)
	}
	if cfg.Finance.SignPolicy != finance.SignPositiveExpense {
		t.Fatalf("expected default sign policy, got %s", cfg.Finance.SignPolicy)
	}
	if cfg.Finance.FallbackCategory != "Outros" {
		t.Fatalf("expected fallback category Outros, got %s", cfg.Finance.FallbackCategory)
	}
	if cfg.Finance.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.Finance.MaxUploadBytes)
	}
	if cfg.Finance.Location == nil {
		t.Fatal("expected location to be loaded")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %s", cfg.LogLevel)
	}
	if !cfg.Database.AutoMigrate {
		t.Fatal("expected auto migrate by default")
	}
}

// TestLoadRejectsUnknownSignPolicy проверяет ошибку для неизвестной политики знака.
func TestLoadRejectsUnknownSignPolicy(t *testing.T) {
	withEmptyEnvFile(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DOCUMENT_SIGN_POLICY", "sometimes")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DOCUMENT_SIGN_POLICY") {
		t.Fatalf("expected sign policy error, got %v", err)
	}
}

// TestLoadRequiresJWTSecret проверяет обязательность секрета.
func TestLoadRequiresJWTSecret(t *testing.T) {
	withEmptyEnvFile(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

// TestMigrationURL проверяет схему pgx5 для мигратора.
func TestMigrationURL(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "finai", Password: "p@ss", Name: "finai", SSLMode: "disable"}

	got := cfg.MigrationURL()
	if !strings.HasPrefix(got, "pgx5://finai:p%40ss@db:5432/finai?") {
		t.Fatalf("unexpected migration url %s", got)
	}
	if !strings.HasPrefix(cfg.DSN(), "postgres://") {
		t.Fatalf("unexpected dsn %s", cfg.DSN())
	}
}

// TestLoadReportsEveryInvalidValue проверяет, что Load сообщает обо всех ошибочных переменных сразу.
func TestLoadReportsEveryInvalidValue(t *testing.T) {
	withEmptyEnvFile(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "abc")
	t.Setenv("AI_TIMEOUT", "-5s")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid values")
	}

	for _, key := range []string{"SERVER_PORT", "AI_TIMEOUT", "DB_AUTO_MIGRATE"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected error to mention %s, got %v", key, err)
		}
	}
}
