// Package config loads operator configuration from an optional YAML
// file plus environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Pricing backends consulted by the cost model.
	AWSPricingURL   string `mapstructure:"aws_pricing_url"`
	GCPPricingURL   string `mapstructure:"gcp_pricing_url"`
	AzurePricingURL string `mapstructure:"azure_pricing_url"`

	// Optional remote recommendation service; empty means recommend
	// locally from sampled metrics.
	OptimizerAPIURL string `mapstructure:"optimizer_api_url"`

	// Snapshot fast tier.
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     int    `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Savings ledger; empty disables history recording.
	HistoryDSN string `mapstructure:"history_dsn"`

	// Listen addresses.
	WebhookAddr   string `mapstructure:"webhook_addr"`
	APIServerAddr string `mapstructure:"apiserver_addr"`
	MetricsAddr   string `mapstructure:"metrics_addr"`

	// Webhook TLS; both empty means plain HTTP.
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	ReconcileIntervalSec int    `mapstructure:"reconcile_interval_sec"`
	SampleIntervalSec    int    `mapstructure:"sample_interval_sec"`
	MetricsWindowHours   int    `mapstructure:"metrics_window_hours"`
	LogLevel             string `mapstructure:"log_level"`

	LeaderElectionNamespace string `mapstructure:"leader_election_namespace"`
	LeaderElectionName      string `mapstructure:"leader_election_name"`
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSec) * time.Second
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSec) * time.Second
}

func (c *Config) MetricsWindow() time.Duration {
	return time.Duration(c.MetricsWindowHours) * time.Hour
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cost-optimizer/")
	v.AddConfigPath(".")

	// Defaults
	v.SetDefault("aws_pricing_url", "http://aws-pricing-service:8080")
	v.SetDefault("gcp_pricing_url", "http://gcp-pricing-service:8080")
	v.SetDefault("azure_pricing_url", "http://azure-pricing-service:8080")
	v.SetDefault("optimizer_api_url", "")
	v.SetDefault("redis_host", "redis")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("history_dsn", "")
	v.SetDefault("webhook_addr", ":8443")
	v.SetDefault("apiserver_addr", ":8000")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
	v.SetDefault("reconcile_interval_sec", 1800)
	v.SetDefault("sample_interval_sec", 30)
	v.SetDefault("metrics_window_hours", 168)
	v.SetDefault("log_level", "info")
	v.SetDefault("leader_election_namespace", "kube-system")
	v.SetDefault("leader_election_name", "cost-optimizer-operator")

	// The pricing and redis settings keep their historical env names.
	v.BindEnv("aws_pricing_url", "AWS_PRICING_URL")
	v.BindEnv("gcp_pricing_url", "GCP_PRICING_URL")
	v.BindEnv("azure_pricing_url", "AZURE_PRICING_URL")
	v.BindEnv("optimizer_api_url", "OPTIMIZER_API_URL")
	v.BindEnv("redis_host", "REDIS_HOST")
	v.BindEnv("redis_port", "REDIS_PORT")
	v.BindEnv("redis_password", "REDIS_PASSWORD")
	v.BindEnv("history_dsn", "HISTORY_DSN")

	v.SetEnvPrefix("COSTOPT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
