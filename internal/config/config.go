// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Keys. Each key is read from the upper-case environment variable of the
// same name, e.g. mongo_uri from MONGO_URI.
const (
	KeyPort            = "port"
	KeyMongoURI        = "mongo_uri"
	KeyMongoDB         = "mongo_db"
	KeyJWTSecret       = "jwt_secret"
	KeyJWTExpiry       = "jwt_expiry"
	KeyRedisAddr       = "redis_addr"
	KeyRedisPassword   = "redis_password"
	KeyRedisDB         = "redis_db"
	KeySummaryCacheTTL = "summary_cache_ttl"
	KeyMQTTBroker      = "mqtt_broker"
	KeyMQTTUsername    = "mqtt_username"
	KeyMQTTPassword    = "mqtt_password"
	KeyMQTTTopicPrefix = "mqtt_topic_prefix"
	KeyWebhookURL      = "webhook_url"
	KeyWebhookToken    = "webhook_token"
	KeyWebhookRetries  = "webhook_retries"
	KeyExcelURL        = "excel_url"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyTimezone        = "timezone"
	KeyRateLimit       = "rate_limit"
	KeyRateWindow      = "rate_window"
)

// ErrMissingSecret is returned when a required secret is not configured.
var ErrMissingSecret = errors.New("required secret is not configured")

// Config holds every runtime setting. Secrets are only ever read from the
// environment or a .env file.
type Config struct {
	Port            string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	JWTExpiry       time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration
	MQTTBroker      string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	WebhookURL      string
	WebhookToken    string
	WebhookRetries  int
	ExcelURL        string
	LogLevel        string
	LogFormat       string
	Timezone        string
	RateLimit       int
	RateWindow      time.Duration
}

// SetDefaults registers the default value of every non-secret key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyMongoDB, "boomlift")
	v.SetDefault(KeyJWTExpiry, "24h")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeySummaryCacheTTL, "10m")
	v.SetDefault(KeyMQTTTopicPrefix, "boomlift")
	v.SetDefault(KeyWebhookRetries, 3)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTimezone, "UTC")
	v.SetDefault(KeyRateLimit, 30)
	v.SetDefault(KeyRateWindow, "1m")
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// NewViper returns a viper instance reading the environment with defaults set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// FromViper reads and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString(KeyPort),
		MongoURI:        v.GetString(KeyMongoURI),
		MongoDB:         v.GetString(KeyMongoDB),
		JWTSecret:       v.GetString(KeyJWTSecret),
		RedisAddr:       v.GetString(KeyRedisAddr),
		RedisPassword:   v.GetString(KeyRedisPassword),
		RedisDB:         v.GetInt(KeyRedisDB),
		MQTTBroker:      v.GetString(KeyMQTTBroker),
		MQTTUsername:    v.GetString(KeyMQTTUsername),
		MQTTPassword:    v.GetString(KeyMQTTPassword),
		MQTTTopicPrefix: v.GetString(KeyMQTTTopicPrefix),
		WebhookURL:      v.GetString(KeyWebhookURL),
		WebhookToken:    v.GetString(KeyWebhookToken),
		WebhookRetries:  v.GetInt(KeyWebhookRetries),
		ExcelURL:        v.GetString(KeyExcelURL),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		Timezone:        v.GetString(KeyTimezone),
		RateLimit:       v.GetInt(KeyRateLimit),
	}

	var err error
	if cfg.JWTExpiry, err = duration(v, KeyJWTExpiry); err != nil {
		return nil, err
	}
	if cfg.SummaryCacheTTL, err = duration(v, KeySummaryCacheTTL); err != nil {
		return nil, err
	}
	if cfg.RateWindow, err = duration(v, KeyRateWindow); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyRateLimit)
	}
	return cfg, nil
}

// Load reads .env then the environment.
func Load() (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}
	return FromViper(NewViper())
}

// RequireJWTSecret fails when no JWT secret is configured. There is no
// fallback secret.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET", ErrMissingSecret)
	}
	return nil
}

// Location returns the zone calendar days are counted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyTimezone, err)
	}
	return loc, nil
}

// ConfigureLogging applies the log level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Redacted returns the settings safe to log.
func (c *Config) Redacted() log.Fields {
	return log.Fields{
		"port":          c.Port,
		"mongo_db":      c.MongoDB,
		"mongo":         c.MongoURI != "",
		"redis":         c.RedisAddr != "",
		"mqtt":          c.MQTTBroker != "",
		"webhook":       c.WebhookURL != "",
		"webhook_token": c.WebhookToken != "",
		"timezone":      c.Timezone,
		"rate_limit":    c.RateLimit,
	}
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}
