package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name    string `yaml:"name"`
	Port    int    `yaml:"port"`
	applied bool
}

func (s *sample) ApplyEnv() error {
	s.applied = true
	if v := os.Getenv("SAMPLE_NAME_OVERRIDE"); v != "" {
		s.Name = v
	}
	return nil
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "9001")
	path := writeFile(t, "name: svc\nport: ${SAMPLE_PORT}\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "svc" || s.Port != 9001 {
		t.Errorf("got %+v", s)
	}
	if !s.applied {
		t.Error("ApplyEnv not called")
	}
}

func TestLoad_OverrideBeatsFile(t *testing.T) {
	t.Setenv("SAMPLE_NAME_OVERRIDE", "from-env")
	path := writeFile(t, "name: from-file\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" {
		t.Errorf("name = %q, want from-env", s.Name)
	}
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Error("expected error for missing file")
	}
	if err := Load(writeFile(t, "name: [unclosed\n"), &s); err == nil {
		t.Error("expected parse error")
	}
	err := Load(writeFile(t, "port: 1\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Port != 8000 || !s.applied {
		t.Errorf("got %+v", s)
	}

	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &sample{}); err == nil {
		t.Error("defaults are still validated")
	}
}
