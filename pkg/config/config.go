package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

var ErrConfParamMissing = errors.New("configuration parameter missing")

const (
	SourceHTTP    = "http"
	SourceElastic = "elasticsearch"
	SourceFile    = "file"
)

type Config struct {
	ServiceName     string        `toml:"serviceName"`
	HTTPAddr        string        `toml:"httpAddr"`
	LogLevel        string        `toml:"logLevel"`
	RefreshInterval time.Duration `toml:"refreshInterval"`

	// Manual refresh requests allowed per second and burst size.
	RefreshRate  float64 `toml:"refreshRate"`
	RefreshBurst int     `toml:"refreshBurst"`

	Source  SourceConfig  `toml:"source"`
	Kafka   KafkaConfig   `toml:"kafka"`
	Webhook WebhookConfig `toml:"webhook"`

	Secrets Secrets `toml:"-"`
}

type SourceConfig struct {
	Kind    string        `toml:"kind"`
	Timeout time.Duration `toml:"timeout"`

	// http
	URL string `toml:"url"`

	// elasticsearch
	ElasticSearchNodes []string `toml:"elasticSearchNodes"`
	ElasticSearchIndex string   `toml:"elasticSearchIndex"`
	Size               int      `toml:"size"`

	// file
	Path string `toml:"path"`
}

type KafkaConfig struct {
	Addr          string `toml:"kafkaAddr"`
	FindingsTopic string `toml:"findingsTopic"`
	LogsTopic     string `toml:"logsTopic"`
	Batch         int    `toml:"kafkaBatch"`
}

type WebhookConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

// Secrets are read from the environment only.
type Secrets struct {
	ESUsername string `env:"ES_USERNAME"`
	ESPassword string `env:"ES_PASSWORD"`
	WebhookURL string `env:"ALERT_WEBHOOK_URL"`
}

// Default returns the configuration used for values absent from the file.
func Default() Config {
	return Config{
		ServiceName:     "logwatch",
		HTTPAddr:        ":8044",
		LogLevel:        "info",
		RefreshInterval: 10 * time.Second,
		RefreshRate:     1,
		RefreshBurst:    3,
		Source: SourceConfig{
			Kind:               SourceHTTP,
			Timeout:            5 * time.Second,
			URL:                "http://localhost:8000",
			ElasticSearchIndex: "logs",
			Size:               1000,
		},
		Webhook: WebhookConfig{Timeout: 5 * time.Second},
	}
}

// Load reads the TOML file at path over the defaults and then the secrets from
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: serviceName", ErrConfParamMissing)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: httpAddr", ErrConfParamMissing)
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("%w: source.url", ErrConfParamMissing)
		}
	case SourceElastic:
		if len(c.Source.ElasticSearchNodes) == 0 {
			return fmt.Errorf("%w: source.elasticSearchNodes", ErrConfParamMissing)
		}
		if c.Source.ElasticSearchIndex == "" {
			return fmt.Errorf("%w: source.elasticSearchIndex", ErrConfParamMissing)
		}
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("%w: source.path", ErrConfParamMissing)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	if c.Kafka.FindingsTopic != "" || c.Kafka.LogsTopic != "" {
		if c.Kafka.Addr == "" {
			return fmt.Errorf("%w: kafka.kafkaAddr", ErrConfParamMissing)
		}
	}

	return nil
}

// String hides secrets.
func (c Config) String() string {
	c.Secrets = Secrets{
		ESUsername: c.Secrets.ESUsername,
		ESPassword: mask(c.Secrets.ESPassword),
		WebhookURL: mask(c.Secrets.WebhookURL),
	}
	return fmt.Sprintf("%+v", struct {
		ServiceName     string
		HTTPAddr        string
		LogLevel        string
		RefreshInterval time.Duration
		Source          SourceConfig
		Kafka           KafkaConfig
		Secrets         Secrets
	}{c.ServiceName, c.HTTPAddr, c.LogLevel, c.RefreshInterval, c.Source, c.Kafka, c.Secrets})
}

func mask(s string) string {
	return strings.Repeat("*", len([]rune(s)))
}
