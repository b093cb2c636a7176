// Package config provides unified configuration for the qwenrelay gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (QWENRELAY_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
)

// Config holds all configuration for the qwenrelay gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Accounts      AccountsConfig      `yaml:"accounts"`
	Auth          AuthConfig          `yaml:"auth"`
	Models        []string            `yaml:"models"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8082
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streams have no fixed bound)
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10 MB
}

// UpstreamConfig holds backend endpoint and timing settings.
type UpstreamConfig struct {
	// ConversationURL is the domestic-site streaming conversation endpoint.
	ConversationURL string `yaml:"conversation_url"`

	// PrewarmURL is the domestic-site record listing endpoint used for
	// best-effort session pre-warming.
	PrewarmURL string `yaml:"prewarm_url"`

	// CompletionsURL is the alternate-site endpoint that accepts async
	// generation job submissions.
	CompletionsURL string `yaml:"completions_url"`

	// TaskStatusURL is the alternate-site job status endpoint; the task ID
	// is appended to this prefix.
	TaskStatusURL string `yaml:"task_status_url"`

	// ConnectTimeout bounds non-streaming upstream calls. Streaming calls
	// are bounded by request context instead.
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 60s

	// PollInterval is the delay between job status queries.
	PollInterval time.Duration `yaml:"poll_interval"` // default: 3s

	// PollMaxAttempts bounds the number of status queries per job.
	PollMaxAttempts int `yaml:"poll_max_attempts"` // default: 120
}

// AccountsConfig selects where credentials come from: a dedicated
// hot-reloadable YAML file, or records inlined in the main config.
type AccountsConfig struct {
	// File is the path to a dedicated accounts YAML file. When set, it
	// takes precedence over the inline records below.
	File string `yaml:"file"`

	// Watch enables fsnotify-based hot reload of File.
	Watch bool `yaml:"watch"`

	CN            []accounts.CNAccount `yaml:"cn"`
	Intl          accounts.IntlAccount `yaml:"intl"`
	ModelAccounts map[string]int       `yaml:"model_accounts"`
}

// AuthConfig holds inbound authentication settings. With no master key
// and no JWT secret configured, the gateway is open (a startup warning is
// logged).
type AuthConfig struct {
	MasterKey     string `yaml:"master_key"`
	MasterKeyFile string `yaml:"master_key_file"` // _file variant for master_key

	JWTSecret     string `yaml:"jwt_secret"`
	JWTSecretFile string `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	JWTIssuer     string `yaml:"jwt_issuer"`
}

// ObservabilityConfig holds monitoring and logging settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`

	// Debug selects debug logging categories (comma separated, or "all").
	// The QWENRELAY_DEBUG environment variable overrides this.
	Debug string `yaml:"debug"`

	// LogLevel sets the log level: ERROR, WARN, INFO, DEBUG, TRACE.
	// The QWENRELAY_LOG_LEVEL environment variable overrides this.
	LogLevel string `yaml:"log_level"` // default: INFO
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8082,
			ReadTimeout: 30 * time.Second,
			MaxBodySize: 10 << 20,
		},
		Upstream: UpstreamConfig{
			ConversationURL: "https://api.tongyi.com/dialog/conversation",
			PrewarmURL:      "https://api.tongyi.com/assistant/api/record/list",
			CompletionsURL:  "https://chat.qwen.ai/api/v2/chat/completions",
			TaskStatusURL:   "https://chat.qwen.ai/api/v1/tasks/status/",
			ConnectTimeout:  60 * time.Second,
			PollInterval:    3 * time.Second,
			PollMaxAttempts: 120,
		},
		Models: []string{
			"qwen-plus", "qwen-turbo", "qwen-max", "qwen-long", "qwen-vl-plus",
			"Qwen3-Max-Preview",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			LogLevel: "INFO",
		},
	}
}

// BuildTable constructs the validated account table from the accounts
// section, preferring the dedicated file when one is configured.
func (c *Config) BuildTable() (*accounts.Table, error) {
	if c.Accounts.File != "" {
		return accounts.LoadFile(c.Accounts.File)
	}
	return accounts.NewTable(c.Accounts.CN, c.Accounts.Intl, c.Accounts.ModelAccounts)
}
