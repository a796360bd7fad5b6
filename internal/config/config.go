// Package config handles gateway configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// knownWeakSecrets is a blocklist of secrets that must never be used in production.
var knownWeakSecrets = map[string]bool{
	"local-dev-secret-for-testing-only-32chars!": true,
	"changeme": true,
	"secret":   true,
}

// DefaultPublicPaths is used when server.public_paths is not configured.
// A trailing "/" marks a prefix pattern.
var DefaultPublicPaths = []string{
	"/api/chat",
	"/api/webhook",
	"/api/auth/",
	"/healthz",
	"/readyz",
}

// GenerateRandomSecret returns a cryptographically random 64-character hex string
// suitable for use as a JWT secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	NLU       NLUConfig       `json:"nlu" yaml:"nlu"`
	Backend   BackendConfig   `json:"backend" yaml:"backend"`
	LLM       LLMConfig       `json:"llm,omitempty" yaml:"llm,omitempty"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// ServerConfig defines the gateway's listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`                                           // e.g. ":8080"
	TLSCert        string   `json:"tls_cert,omitempty" yaml:"tls_cert,omitempty"`
	TLSKey         string   `json:"tls_key,omitempty" yaml:"tls_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"` // CORS origins; default ["*"]
	MaxBodyBytes   int64    `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty"`   // default 1MB
	PublicPaths    []string `json:"public_paths,omitempty" yaml:"public_paths,omitempty"`       // trailing "/" = prefix
}

// AuthConfig defines bearer credential verification and webhook protection.
type AuthConfig struct {
	Provider  string   `json:"provider,omitempty" yaml:"provider,omitempty"` // "builtin" (default) or "jwks"
	JWTSecret string   `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	JWTExpiry Duration `json:"jwt_expiry,omitempty" yaml:"jwt_expiry,omitempty"`
	JWKSURL   string   `json:"jwks_url,omitempty" yaml:"jwks_url,omitempty"`
	Issuer    string   `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Audience  string   `json:"audience,omitempty" yaml:"audience,omitempty"`

	// Optional HTTP basic auth on the fulfillment webhook. The password is a bcrypt hash.
	WebhookUsername     string `json:"webhook_username,omitempty" yaml:"webhook_username,omitempty"`
	WebhookPasswordHash string `json:"webhook_password_hash,omitempty" yaml:"webhook_password_hash,omitempty"`
}

// SessionConfig defines the session→identity store.
type SessionConfig struct {
	Backend      string      `json:"backend,omitempty" yaml:"backend,omitempty"` // "memory" (default) or "redis"
	TTL          Duration    `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	ReapInterval Duration    `json:"reap_interval,omitempty" yaml:"reap_interval,omitempty"`
	ReapDelay    Duration    `json:"reap_delay,omitempty" yaml:"reap_delay,omitempty"`
	Redis        RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig holds connection settings for the redis session backend.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// NLUConfig points at the Dialogflow-compatible detectIntent API.
type NLUConfig struct {
	BaseURL      string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	ProjectID    string   `json:"project_id" yaml:"project_id"`
	AccessToken  string   `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	LanguageCode string   `json:"language_code,omitempty" yaml:"language_code,omitempty"`
	Timeout      Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BackendConfig points at the HR backend.
type BackendConfig struct {
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	ConnectTimeout Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	ReadTimeout    Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
}

// LLMConfig points at an OpenAI-compatible chat completions API. Disabled when BaseURL is empty.
type LLMConfig struct {
	BaseURL string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey  string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model   string   `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// StorageConfig defines the audit log database.
type StorageConfig struct {
	Driver    string   `json:"driver" yaml:"driver"` // "sqlite" (default) or "postgres"
	DSN       string   `json:"dsn" yaml:"dsn"`
	Retention Duration `json:"retention,omitempty" yaml:"retention,omitempty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "json" or "text"
}

// RateLimitConfig defines rate limiting on the chat endpoints.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"` // default 10
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`                             // default 20
}

// Duration is a JSON- and YAML-friendly time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case int:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Load reads, expands and validates a config file. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &cfg)
	default:
		err = json.Unmarshal(expanded, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Auth.Provider {
	case "", "builtin":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
		}
		if knownWeakSecrets[c.Auth.JWTSecret] {
			return fmt.Errorf("auth.jwt_secret is a well-known weak secret, generate a new one")
		}
	case "jwks":
		if c.Auth.JWKSURL == "" {
			return fmt.Errorf("auth.jwks_url is required when provider is jwks")
		}
	default:
		return fmt.Errorf("unknown auth.provider: %q", c.Auth.Provider)
	}
	if (c.Auth.WebhookUsername == "") != (c.Auth.WebhookPasswordHash == "") {
		return fmt.Errorf("auth.webhook_username and auth.webhook_password_hash must be set together")
	}
	switch c.Session.Backend {
	case "", "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when backend is redis")
		}
	default:
		return fmt.Errorf("unknown session.backend: %q", c.Session.Backend)
	}
	if c.NLU.ProjectID == "" {
		return fmt.Errorf("nlu.project_id is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	for _, p := range c.Server.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("server.public_paths: %q must start with /", p)
		}
	}
	// Zero means "use the default"; only negative values are rejected here.
	for _, d := range []struct {
		name string
		val  Duration
	}{
		{"auth.jwt_expiry", c.Auth.JWTExpiry},
		{"session.ttl", c.Session.TTL},
		{"session.reap_interval", c.Session.ReapInterval},
		{"session.reap_delay", c.Session.ReapDelay},
		{"nlu.timeout", c.NLU.Timeout},
		{"backend.connect_timeout", c.Backend.ConnectTimeout},
		{"backend.read_timeout", c.Backend.ReadTimeout},
		{"llm.timeout", c.LLM.Timeout},
		{"storage.retention", c.Storage.Retention},
	} {
		if d.val.Duration < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, d.val.Duration)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Auth.Provider == "" {
		c.Auth.Provider = "builtin"
	}
	if c.Auth.JWTExpiry.Duration == 0 {
		c.Auth.JWTExpiry.Duration = 24 * time.Hour
	}
	if len(c.Server.PublicPaths) == 0 {
		c.Server.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1024 * 1024 // 1MB
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.TTL.Duration == 0 {
		c.Session.TTL.Duration = 60 * time.Minute
	}
	if c.Session.ReapInterval.Duration == 0 {
		c.Session.ReapInterval.Duration = 30 * time.Minute
	}
	if c.Session.ReapDelay.Duration == 0 {
		c.Session.ReapDelay.Duration = 10 * time.Minute
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = "dialogate:sess:"
	}
	if c.NLU.BaseURL == "" {
		c.NLU.BaseURL = "https://dialogflow.googleapis.com"
	}
	if c.NLU.LanguageCode == "" {
		c.NLU.LanguageCode = "en-US"
	}
	if c.NLU.Timeout.Duration == 0 {
		c.NLU.Timeout.Duration = 10 * time.Second
	}
	if c.Backend.ConnectTimeout.Duration == 0 {
		c.Backend.ConnectTimeout.Duration = 3 * time.Second
	}
	if c.Backend.ReadTimeout.Duration == 0 {
		c.Backend.ReadTimeout.Duration = 10 * time.Second
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "deepseek-chat"
	}
	if c.LLM.Timeout.Duration == 0 {
		c.LLM.Timeout.Duration = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = "dialogate.db"
	}
	if c.Storage.Retention.Duration == 0 {
		c.Storage.Retention.Duration = 30 * 24 * time.Hour // 30 days
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}
