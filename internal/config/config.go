// Package config loads server and CLI settings from an optional YAML file and KODA_* environment variables.
package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	S3        S3Config        `mapstructure:"s3"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	PublicURL       string        `mapstructure:"public_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honoured. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

// RateLimitConfig is a fixed window: at most MaxHits per Window for each key.
type RateLimitConfig struct {
	Window  time.Duration `mapstructure:"window"`
	MaxHits int           `mapstructure:"max_hits"`
}

type CatalogConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Every key needs a default so that environment variables are seen by Unmarshal.
var defaults = map[string]any{
	"http.addr":             ":8080",
	"http.public_url":       "",
	"http.shutdown_timeout": 10 * time.Second,
	"http.trusted_proxies":  []string{},
	"database.dsn":          "",
	"auth.signing_key":      "",
	"auth.leeway":           30 * time.Second,
	"stripe.secret_key":     "",
	"stripe.webhook_secret": "",
	"stripe.currency":       "eur",
	"s3.region":             "eu-west-3",
	"s3.bucket":             "",
	"s3.access_key":         "",
	"s3.secret_key":         "",
	"s3.endpoint":           "",
	"ratelimit.window":      10 * time.Second,
	"ratelimit.max_hits":    10,
	"catalog.default_limit": 12,
	"catalog.max_limit":     48,
	"log.development":       false,
}

// Load reads path (if not empty) and then KODA_* variables, e.g. KODA_DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("KODA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the settings the server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	for name, val := range map[string]string{
		"database.dsn":          c.Database.DSN,
		"auth.signing_key":      c.Auth.SigningKey,
		"stripe.secret_key":     c.Stripe.SecretKey,
		"stripe.webhook_secret": c.Stripe.WebhookSecret,
		"s3.bucket":             c.S3.Bucket,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxHits <= 0 {
		return fmt.Errorf("config: ratelimit window and max_hits must be positive")
	}
	for _, p := range c.HTTP.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("config: http.trusted_proxies: invalid address %q", p)
		}
	}
	return nil
}
