package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingPathReturnsLoadError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	var le *LoadError
	if !errors.As(err, &le) || !errors.Is(le.Err, ErrConfigNotFound) {
		t.Fatalf("expected LoadError wrapping ErrConfigNotFound, got %v", err)
	}
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	t.Setenv("SQLAGENT_TEST_DB_URL", "postgres://db.internal:5432/app")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  url: ${SQLAGENT_TEST_DB_URL}\nlm:\n  api_base: https://litellm.internal\n  model: claude-opus-4\nsession:\n  history_limit: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.URL != "postgres://db.internal:5432/app" {
		t.Fatalf("got database url %q", cfg.Database.URL)
	}
	if cfg.LM.Model != "claude-opus-4" {
		t.Fatalf("got model %q", cfg.LM.Model)
	}
	if cfg.Session.HistoryLimit != 25 {
		t.Fatalf("got history_limit %d", cfg.Session.HistoryLimit)
	}
	// Untouched keys keep their defaults.
	if cfg.Cache.SchemaCacheTTL != Defaults().Cache.SchemaCacheTTL {
		t.Fatalf("expected schema_cache_ttl to keep its default")
	}
}

func TestLoadInvalidYAMLReturnsLoadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database: [this is not valid: yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	var le *LoadError
	if !errors.As(err, &le) || !errors.Is(le.Err, ErrInvalidYAML) {
		t.Fatalf("expected LoadError wrapping ErrInvalidYAML, got %v", err)
	}
}

func TestLoadRejectsConfigFailingValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// No database.url and no lm.api_base supplied — both required.
	if err := os.WriteFile(path, []byte("session:\n  history_limit: 5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected nil error for missing .env, got %v", err)
	}
}
