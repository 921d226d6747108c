package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/events"
)

const (
	DefaultAddr              = ":8080"
	DefaultMetricsAddr       = ":9090"
	DefaultBatchSize         = 25
	DefaultConcurrency       = 8
	DefaultPollInterval      = time.Second
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultDownstreamTimeout = 15 * time.Second
	DefaultTransferSubHeader = "transfersub"
	DefaultPrivateKeyName    = "fxrelay/jwt-private-key"
	DefaultServiceIssuer     = "https://getpocket.com"
	DefaultServiceAudience   = "https://client-api.getpocket.com/"
	DefaultAssertionTTL      = 10 * time.Minute
	DefaultKeyCacheEntries   = 16
)

type Config struct {
	// Environment is reported alongside errors and build info, e.g. "production".
	Environment string           `yaml:"environment"`
	Service     ServiceConfig    `yaml:"service"`
	Gateway     GatewayConfig    `yaml:"gateway"`
	Consumer    ConsumerConfig   `yaml:"consumer"`
	Downstream  DownstreamConfig `yaml:"downstream"`
	Queue       QueueConfig      `yaml:"queue"`
	Secrets     SecretsConfig    `yaml:"secrets"`
	Reporting   ReportingConfig  `yaml:"reporting"`
	Audit       AuditConfig      `yaml:"audit"`
}

// ServiceConfig describes the assertions this service mints for the downstream API.
type ServiceConfig struct {
	Issuer       string        `yaml:"issuer"`
	Audience     string        `yaml:"audience"`
	AssertionTTL time.Duration `yaml:"assertion_ttl"`
}

type KeyCacheConfig struct {
	// TTL of a cached public key. Zero disables caching.
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// GatewayConfig holds configuration for the webhook receiving side.
type GatewayConfig struct {
	Addr string `yaml:"addr"`

	// AllowedEvents maps FxA event URIs to relay event kinds.
	AllowedEvents map[string]string `yaml:"allowed_events"`

	// HTTPTimeout bounds discovery and JWKS requests.
	HTTPTimeout    time.Duration  `yaml:"http_timeout"`
	KeyCache       KeyCacheConfig `yaml:"key_cache"`
	MaxConcurrency int            `yaml:"max_concurrency"`

	// AdminSecret is the HMAC key of admin session tokens. Empty disables the admin routes.
	AdminSecret string `yaml:"admin_secret"`
}

// ConsumerConfig holds configuration for the queue consuming side.
type ConsumerConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MetricsAddr  string        `yaml:"metrics_addr"`

	// PrivateKeyName is the secret holding the assertion signing key (PEM or JWK).
	PrivateKeyName string `yaml:"private_key_name"`
}

type DownstreamConfig struct {
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	TransferSubHeader string        `yaml:"transfer_sub_header"`
}

// QueueConfig selects the queue backend. Remaining fields are backend specific.
type QueueConfig struct {
	Type   string         `yaml:"type"`    // e.g., "memory", "redis", "kafka", "sqs"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// SecretsConfig selects the secret store. Remaining fields are backend specific.
type SecretsConfig struct {
	Type   string         `yaml:"type"`    // e.g., "env", "file", "aws", "static"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

type SentryConfig struct {
	DSN     string `yaml:"dsn"`
	Release string `yaml:"release"`
}

type ReportingConfig struct {
	Sentry SentryConfig `yaml:"sentry"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// Load reads and parses the configuration file at the given path.
// Environment references like ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses, defaults and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Service.Issuer == "" {
		c.Service.Issuer = DefaultServiceIssuer
	}
	if c.Service.Audience == "" {
		c.Service.Audience = DefaultServiceAudience
	}
	if c.Service.AssertionTTL == 0 {
		c.Service.AssertionTTL = DefaultAssertionTTL
	}

	if c.Gateway.Addr == "" {
		c.Gateway.Addr = DefaultAddr
	}
	if len(c.Gateway.AllowedEvents) == 0 {
		c.Gateway.AllowedEvents = make(map[string]string)
		for uri, kind := range events.DefaultAllowList() {
			c.Gateway.AllowedEvents[uri] = string(kind)
		}
	}
	if c.Gateway.HTTPTimeout == 0 {
		c.Gateway.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Gateway.KeyCache.MaxEntries == 0 {
		c.Gateway.KeyCache.MaxEntries = DefaultKeyCacheEntries
	}
	if c.Gateway.MaxConcurrency == 0 {
		c.Gateway.MaxConcurrency = DefaultConcurrency
	}

	if c.Consumer.BatchSize == 0 {
		c.Consumer.BatchSize = DefaultBatchSize
	}
	if c.Consumer.Concurrency == 0 {
		c.Consumer.Concurrency = DefaultConcurrency
	}
	if c.Consumer.PollInterval == 0 {
		c.Consumer.PollInterval = DefaultPollInterval
	}
	if c.Consumer.MetricsAddr == "" {
		c.Consumer.MetricsAddr = DefaultMetricsAddr
	}
	if c.Consumer.PrivateKeyName == "" {
		c.Consumer.PrivateKeyName = DefaultPrivateKeyName
	}

	if c.Downstream.Timeout == 0 {
		c.Downstream.Timeout = DefaultDownstreamTimeout
	}
	if c.Downstream.TransferSubHeader == "" {
		c.Downstream.TransferSubHeader = DefaultTransferSubHeader
	}

	if c.Queue.Type == "" {
		c.Queue.Type = "memory"
	}
	if c.Secrets.Type == "" {
		c.Secrets.Type = "env"
	}
	if c.Audit.Type == "" {
		c.Audit.Type = "memory"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Service.AssertionTTL < 0 {
		errs = append(errs, errors.New("service.assertion_ttl must not be negative"))
	}
	for uri, kind := range c.Gateway.AllowedEvents {
		if strings.TrimSpace(uri) == "" {
			errs = append(errs, errors.New("gateway.allowed_events contains an empty event URI"))
		}
		if _, err := core.ParseEventKind(kind); err != nil {
			errs = append(errs, fmt.Errorf("gateway.allowed_events '%s': %w", uri, err))
		}
	}
	if c.Gateway.KeyCache.TTL < 0 {
		errs = append(errs, errors.New("gateway.key_cache.ttl must not be negative"))
	}
	if c.Gateway.MaxConcurrency < 0 {
		errs = append(errs, errors.New("gateway.max_concurrency must not be negative"))
	}
	if c.Consumer.BatchSize < 0 {
		errs = append(errs, errors.New("consumer.batch_size must not be negative"))
	}
	if c.Consumer.Concurrency < 0 {
		errs = append(errs, errors.New("consumer.concurrency must not be negative"))
	}
	if c.Audit.Enabled && c.Audit.Type == "file" && c.Audit.Path == "" {
		errs = append(errs, errors.New("audit.path is required for the file auditor"))
	}
	return errors.Join(errs...)
}

// ValidateConsumer checks the settings only the consumer needs.
func (c *Config) ValidateConsumer() error {
	if c.Downstream.URL == "" {
		return errors.New("downstream.url is required")
	}
	return nil
}
