// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.verity/config.yaml or ./config.yaml)
//  3. Default values
//
// API credentials are supplied exclusively through the environment
// (GEMINI_API_KEY, TAVILY_API_KEY) and their absence is a startup-time
// fatal condition, never a runtime one.
//
// Security: secrets are masked in MarshalJSON/String; never log a Config
// through any other path.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrMissingGeminiKey indicates GEMINI_API_KEY is not set.
	ErrMissingGeminiKey = errors.New("missing GEMINI_API_KEY")

	// ErrMissingTavilyKey indicates TAVILY_API_KEY is not set.
	ErrMissingTavilyKey = errors.New("missing TAVILY_API_KEY")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidToolRounds indicates max_tool_rounds is out of range.
	ErrInvalidToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidMaxResults indicates search_max_results is out of range.
	ErrInvalidMaxResults = errors.New("invalid search max results")

	// ErrInvalidSessionTTL indicates session_ttl_minutes is out of range.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")
)

// Bounds for validated values.
const (
	// MaxToolRounds is the absolute ceiling on tool-call rounds per turn.
	MaxToolRounds = 25

	// MaxSearchResults is the hard cap on results requested from the
	// search API regardless of configuration.
	MaxSearchResults = 10
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new secret fields, update MarshalJSON.
type Config struct {
	// Model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Orchestration
	MaxToolRounds int `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`

	// Tool configuration
	SearchMaxResults int `mapstructure:"search_max_results" json:"search_max_results"`

	// Session lifecycle
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes" json:"session_ttl_minutes"`

	// Server configuration
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability: OTLP-HTTP trace endpoint (empty = tracing disabled)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`

	// Secrets (environment only)
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	TavilyAPIKey string `mapstructure:"tavily_api_key" json:"tavily_api_key"` // SENSITIVE: masked in MarshalJSON
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".verity")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use defaults
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Model defaults mirror the hosted deployment: gemini-2.5-flash at
	// temperature 0.5
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.5)

	v.SetDefault("max_tool_rounds", 8)
	v.SetDefault("search_max_results", 5)
	v.SetDefault("session_ttl_minutes", 120)

	v.SetDefault("addr", "127.0.0.1:3400")
	v.SetDefault("cors_origins", []string{})

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("otlp_endpoint", "")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are env-only; the remaining bindings are runtime overrides.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded key strings cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("tavily_api_key", "TAVILY_API_KEY")

	mustBind("model_name", "VERITY_MODEL_NAME")
	mustBind("temperature", "VERITY_TEMPERATURE")
	mustBind("max_tool_rounds", "VERITY_MAX_TOOL_ROUNDS")
	mustBind("search_max_results", "VERITY_SEARCH_MAX_RESULTS")
	mustBind("session_ttl_minutes", "VERITY_SESSION_TTL_MINUTES")
	mustBind("addr", "VERITY_ADDR")
	mustBind("cors_origins", "VERITY_CORS_ORIGINS")
	mustBind("log_level", "VERITY_LOG_LEVEL")
	mustBind("log_json", "VERITY_LOG_JSON")
	mustBind("otlp_endpoint", "VERITY_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer secrets keep the
// first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit secret masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.TavilyAPIKey = maskSecret(a.TavilyAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
