package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"SERVER_URL": "http://localhost:4000/",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:4000" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.Backend.Timeout != defaultAuthTimeout {
		t.Errorf("unexpected auth timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Session.IdleTimeout)
	}
	if cfg.Session.SweepInterval != defaultSweepInterval {
		t.Errorf("unexpected sweep interval: %s", cfg.Session.SweepInterval)
	}
	if !cfg.Session.Ephemeral || len(cfg.Session.HashKey) != ephemeralHashKeySize {
		t.Errorf("expected ephemeral hash key, got ephemeral=%v len=%d", cfg.Session.Ephemeral, len(cfg.Session.HashKey))
	}
	if cfg.Session.CookieSecure {
		t.Errorf("expected insecure cookies outside production")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"SERVER_URL":                        "https://api.quickvideo.example",
		"QUICKVIDEO_ENV":                    "Production",
		"QUICKVIDEO_HTTP_ADDR":              "127.0.0.1:9000",
		"PORT":                              "7000",
		"QUICKVIDEO_AUTH_TIMEOUT":           "3s",
		"QUICKVIDEO_SESSION_HASH_KEY":       "hash-key-value",
		"QUICKVIDEO_SESSION_BLOCK_KEY":      "0123456789abcdef",
		"QUICKVIDEO_SESSION_IDLE_TIMEOUT":   "45m",
		"QUICKVIDEO_SESSION_SWEEP_INTERVAL": "90",
		"LOG_LEVEL":                         "DEBUG",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected explicit addr to win over PORT, got %s", cfg.Server.Addr)
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production environment, got %s", cfg.Environment)
	}
	if !cfg.Session.CookieSecure {
		t.Errorf("expected secure cookies in production")
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("unexpected auth timeout %s", cfg.Backend.Timeout)
	}
	if string(cfg.Session.HashKey) != "hash-key-value" || cfg.Session.Ephemeral {
		t.Errorf("expected configured hash key")
	}
	if cfg.Session.IdleTimeout != 45*time.Minute {
		t.Errorf("unexpected idle timeout %s", cfg.Session.IdleTimeout)
	}
	if cfg.Session.SweepInterval != 90*time.Second {
		t.Errorf("expected bare integer read as seconds, got %s", cfg.Session.SweepInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("unexpected log level %s", cfg.LogLevel)
	}
}

func TestLoadPortFallback(t *testing.T) {
	env := map[string]string{
		"SERVER_URL": "http://localhost:4000",
		"PORT":       "7000",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("expected :7000, got %s", cfg.Server.Addr)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"SERVER_URL":                   "not a url",
		"QUICKVIDEO_SESSION_BLOCK_KEY": "short",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	want := map[string]bool{"Backend.BaseURL": false, "Session.BlockKey": false}
	for _, f := range fields {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected %s in validation error, got %v", name, fields)
		}
	}
}

func TestLoadRequiresServerURL(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := vErr.Fields(); len(got) != 1 || got[0] != "Backend.BaseURL" {
		t.Fatalf("unexpected fields %v", got)
	}
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport SERVER_URL=\"http://dotenv:4000\"\nQUICKVIDEO_ENV=staging\nbroken-line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"QUICKVIDEO_ENV": "dev"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://dotenv:4000" {
		t.Errorf("expected SERVER_URL from .env, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Environment != "dev" {
		t.Errorf("expected explicit map to override .env, got %s", cfg.Environment)
	}
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, WithoutSystemEnv(), WithEnvFile("")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
