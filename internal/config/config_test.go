package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	for key, value := range values {
		v.Set(key, value)
	}
	return v
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"DB_DSN":            "postgres://localhost/crm",
		"JWT_ACCESS_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.HTTP.Port != 7090 || cfg.HTTP.Host != "0.0.0.0" {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.DB.Driver != StorageDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.DB.Driver)
	}
	if cfg.Contracts.StepTimeout != 5*time.Second {
		t.Fatalf("unexpected step timeout: %s", cfg.Contracts.StepTimeout)
	}
	if cfg.Contracts.PendingTTL != 30*time.Minute {
		t.Fatalf("unexpected pending ttl: %s", cfg.Contracts.PendingTTL)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.HTTP.CORSOrigins)
	}
}

func TestExplicitValues(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"APP_ENV":                "production",
		"STORAGE_DRIVER":         " Memory ",
		"JWT_ACCESS_SECRET":      "secret",
		"HTTP_CORS_ORIGINS":      "https://crm.example.it, ,https://admin.example.it",
		"CONTRACTS_STEP_TIMEOUT": "2s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production config")
	}
	if cfg.DB.Driver != StorageDriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.DB.Driver)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Contracts.StepTimeout != 2*time.Second {
		t.Fatalf("unexpected step timeout: %s", cfg.Contracts.StepTimeout)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]any
	}{
		{"missing dsn", map[string]any{"JWT_ACCESS_SECRET": "secret"}},
		{"missing secret", map[string]any{"DB_DSN": "postgres://localhost/crm"}},
		{"unknown driver", map[string]any{"STORAGE_DRIVER": "mysql", "JWT_ACCESS_SECRET": "secret"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fromViper(newViper(tc.values)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
