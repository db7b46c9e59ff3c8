package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if !cfg.Model.RequireOnStart {
		t.Error("default config should require the model on start")
	}
	if !cfg.SQLite.Enabled() {
		t.Error("default config should enable the registry")
	}
}

func TestFullConfig_ValidationCalled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth", func(c *Config) { c.Auth.Mode, c.Auth.Token = "token", "" }},
		{"port", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"rate", func(c *Config) { c.App.HTTP.RateLimit = -1 }},
		{"model path", func(c *Config) { c.Model.Path = "" }},
		{"meta path", func(c *Config) { c.Model.MetaPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MODEL_FILE", "/srv/model.json")
	t.Setenv("META_FILE", "/srv/meta.json")
	t.Setenv("MODEL_REQUIRED", "false")

	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Path != "/srv/model.json" || cfg.Model.MetaPath != "/srv/meta.json" {
		t.Errorf("paths = %q, %q", cfg.Model.Path, cfg.Model.MetaPath)
	}
	if cfg.Model.RequireOnStart {
		t.Error("MODEL_REQUIRED=false should clear RequireOnStart")
	}
}

func TestApplyEnv_UnsetKeepsFile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.Path = "from-file.json"
	t.Setenv("MODEL_FILE", "")
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Path != "from-file.json" {
		t.Errorf("path = %q, want from-file.json", cfg.Model.Path)
	}
	if !cfg.Model.RequireOnStart {
		t.Error("RequireOnStart changed without MODEL_REQUIRED")
	}
}

func TestApplyEnv_BadBool(t *testing.T) {
	t.Setenv("MODEL_REQUIRED", "maybe")
	if err := NewDefaultConfig().ApplyEnv(); err == nil {
		t.Fatal("expected error for unparsable MODEL_REQUIRED")
	}
}
