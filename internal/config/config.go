package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lokiship/lokiship/internal/encoding"
	"github.com/lokiship/lokiship/internal/shipper"
	"github.com/lokiship/lokiship/pkg/filter"
	"github.com/lokiship/lokiship/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultFormat      = encoding.FormatJSON
	DefaultTimeout     = shipper.DefaultTimeout
	DefaultBatchSize   = shipper.DefaultBatchSize
	DefaultLevel       = filter.Info
	DefaultModuleKey   = "module"
	DefaultMaxLineSize = 1024 * 1024 // 1 MiB
)

// Config is the top-level agent configuration.
type Config struct {
	Loki    LokiConfig    `yaml:"loki"`
	Filter  FilterConfig  `yaml:"filter"`
	Input   InputConfig   `yaml:"input"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LokiConfig describes the push endpoint and how requests are built.
type LokiConfig struct {
	// Endpoint is the full push URL, e.g. http://localhost:3100/loki/api/v1/push.
	Endpoint string `yaml:"endpoint"`

	// TenantID is sent as X-Scope-OrgID when set.
	TenantID string `yaml:"tenant_id"`

	// Format is json or protobuf.
	Format string `yaml:"format"`

	// Compression is none|gzip for json and none|snappy for protobuf.
	// Empty picks the format default.
	Compression string `yaml:"compression"`

	// Timeout bounds one push request.
	Timeout time.Duration `yaml:"timeout"`

	// BatchSize is how many already-queued events may share one request.
	BatchSize int `yaml:"batch_size"`

	// Labels are static stream labels. "level" is always set per event.
	Labels map[string]string `yaml:"labels"`

	// InstanceLabel adds instance=<random uuid> to the static labels.
	InstanceLabel bool `yaml:"instance_label"`

	// Auth configures how the agent authenticates to Loki.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for the push endpoint.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header carrying the key when Mode == "apikey".
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth user; the password comes from PasswordEnv.
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the push endpoint.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// FilterConfig is the severity filter applied before events are submitted.
type FilterConfig struct {
	// Level is the default threshold: off|error|warn|info|debug|trace.
	Level filter.LevelFilter `yaml:"level"`

	// Modules overrides the threshold per module prefix.
	Modules map[string]filter.LevelFilter `yaml:"modules"`

	// Env optionally names an environment variable holding a directive
	// string ("warn,db=debug"). When that variable is set it replaces
	// Level and Modules.
	Env string `yaml:"env"`
}

// Build returns the immutable filter described by f.
func (f FilterConfig) Build() (*filter.Filter, error) {
	if f.Env != "" && os.Getenv(f.Env) != "" {
		return filter.FromEnv(f.Env)
	}
	var b filter.Builder
	b.Level(f.Level)
	for module, lf := range f.Modules {
		b.Module(module, lf)
	}
	return b.Build(), nil
}

// InputConfig controls how the agent reads log lines.
type InputConfig struct {
	// ModuleKey is the JSON field naming the emitting module.
	ModuleKey string `yaml:"module_key"`

	// MaxLineSize is the longest accepted input line in bytes.
	MaxLineSize int `yaml:"max_line_size"`
}

// MetricsConfig controls the optional /metrics and /healthz listener.
type MetricsConfig struct {
	// Listen is a host:port; empty disables the listener.
	Listen string `yaml:"listen"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Loki: LokiConfig{
			Format:    DefaultFormat,
			Timeout:   DefaultTimeout,
			BatchSize: DefaultBatchSize,
		},
		Filter: FilterConfig{
			Level: DefaultLevel,
		},
		Input: InputConfig{
			ModuleKey:   DefaultModuleKey,
			MaxLineSize: DefaultMaxLineSize,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Loki.Endpoint == "" {
		return fmt.Errorf("loki.endpoint is required")
	}
	if _, err := shipper.ValidateEndpoint(cfg.Loki.Endpoint); err != nil {
		return fmt.Errorf("loki.endpoint: %w", err)
	}
	if _, err := encoding.New(cfg.Loki.Format, cfg.Loki.Compression); err != nil {
		return fmt.Errorf("loki.format/compression: %w", err)
	}
	if cfg.Loki.Timeout < 0 {
		return fmt.Errorf("loki.timeout must not be negative")
	}
	if cfg.Loki.BatchSize <= 0 {
		return fmt.Errorf("loki.batch_size must be positive")
	}
	if err := types.Labels(cfg.Loki.Labels).Validate(); err != nil {
		return fmt.Errorf("loki.labels: %w", err)
	}
	switch cfg.Loki.Auth.Mode {
	case "mtls":
		if cfg.Loki.Auth.CertFile == "" || cfg.Loki.Auth.KeyFile == "" {
			return fmt.Errorf("loki.auth: mtls requires cert_file and key_file")
		}
	case "apikey":
		if cfg.Loki.Auth.Header == "" {
			return fmt.Errorf("loki.auth: apikey requires header")
		}
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("loki.auth: unknown mode %q", cfg.Loki.Auth.Mode)
	}
	if cfg.Input.ModuleKey == "" {
		return fmt.Errorf("input.module_key must not be empty")
	}
	if cfg.Input.MaxLineSize <= 0 {
		return fmt.Errorf("input.max_line_size must be positive")
	}
	return nil
}
