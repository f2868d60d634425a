package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server. Token lifetimes
// and code lengths are policy constants in the services package, not
// configuration.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// RedisAddr switches the login-code store to redis when non-empty.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	SMTPHost    string `mapstructure:"SMTP_HOST"`
	SMTPPort    int    `mapstructure:"SMTP_PORT"`
	SMTPUser    string `mapstructure:"SMTP_USER"`
	SMTPPass    string `mapstructure:"SMTP_PASS"`
	SMTPFrom    string `mapstructure:"SMTP_FROM"`
	SMTPReplyTo string `mapstructure:"SMTP_REPLY_TO"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/runestone/")
	v.AddConfigPath("$HOME/.runestone")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "13717")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/runestone_dev")
	v.SetDefault("MONGO_DB_NAME", "runestone_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "runestone")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "jumpsca.re <no-reply@jumpsca.re>")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover it; any
		// other read error is real.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
