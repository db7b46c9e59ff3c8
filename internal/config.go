package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Model  ModelConfig       `yaml:"model"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// envOverrides are the environment variables that take precedence over the
// config file.
type envOverrides struct {
	ModelFile     string `envconfig:"MODEL_FILE"`
	MetaFile      string `envconfig:"META_FILE"`
	ModelRequired *bool  `envconfig:"MODEL_REQUIRED"`
}

// ApplyEnv overrides model paths from MODEL_FILE, META_FILE and
// MODEL_REQUIRED when they are set.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.ModelFile != "" {
		c.Model.Path = env.ModelFile
	}
	if env.MetaFile != "" {
		c.Model.MetaPath = env.MetaFile
	}
	if env.ModelRequired != nil {
		c.Model.RequireOnStart = *env.ModelRequired
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	Metrics  bool       `yaml:"metrics"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// RateLimit is requests per second on the prediction routes; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.Min(0)),
	)
}

// ModelConfig locates the model artifacts served by the API.
type ModelConfig struct {
	Path     string `yaml:"path"`
	MetaPath string `yaml:"meta_path"`
	// RequireOnStart makes a missing or invalid bundle fatal at startup.
	// When false the server starts and reports the model as not loaded.
	RequireOnStart bool `yaml:"require_on_start"`
	// Watch logs a warning when the artifacts change on disk.
	Watch bool `yaml:"watch"`
}

// Validate validates the model configuration.
func (c *ModelConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MetaPath, validation.Required),
	)
}

// SQLiteConfig holds the training-run registry location. An empty path
// disables the registry.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a registry is configured.
func (c *SQLiteConfig) Enabled() bool { return c.Path != "" }

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Length(0, 4096)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
			Metrics: true,
		},
		Model: ModelConfig{
			Path:           "app/model.json",
			MetaPath:       "app/model_meta.json",
			RequireOnStart: true,
			Watch:          true,
		},
		SQLite: SQLiteConfig{
			Path: "app/training_runs.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
