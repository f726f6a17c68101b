// Package config loads storefront configuration from a YAML file with
// environment variable overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/astrobite/storefront/pkg/logger"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig holds the session cart store settings. An empty Addr selects
// the in-memory session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds token issuing settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// OAuthProviderConfig holds one provider's client credentials. TokenURL and
// UserInfoURL default to the provider's public endpoints and exist so tests
// can point at a local server.
type OAuthProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	TokenURL     string `yaml:"token_url"`
	UserInfoURL  string `yaml:"userinfo_url"`
}

// OAuthConfig groups the supported providers.
type OAuthConfig struct {
	Google   OAuthProviderConfig `yaml:"google"`
	Facebook OAuthProviderConfig `yaml:"facebook"`
}

// MailConfig holds contact-form delivery settings.
type MailConfig struct {
	SendGridKey string `yaml:"sendgrid_key"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
	ContactTo   string `yaml:"contact_to"`
}

// Config is the full storefront configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database DatabaseConfig       `yaml:"database"`
	Redis    RedisConfig          `yaml:"redis"`
	Auth     AuthConfig           `yaml:"auth"`
	OAuth    OAuthConfig          `yaml:"oauth"`
	Mail     MailConfig           `yaml:"mail"`
	Logging  logger.LoggingConfig `yaml:"logging"`
}

// Load reads the config file named by CONFIG_PATH (default config.yaml),
// falling back to defaults when the file is absent, then applies environment
// overrides.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration is fine
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (or JWT_SECRET)")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{TokenTTLHours: 24},
		OAuth: OAuthConfig{
			Google: OAuthProviderConfig{
				TokenURL:    "https://oauth2.googleapis.com/token",
				UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			},
			Facebook: OAuthProviderConfig{
				TokenURL:    "https://graph.facebook.com/v18.0/oauth/access_token",
				UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
			},
		},
		Mail: MailConfig{
			FromAddress: "no-reply@astrobite.local",
			FromName:    "AstroBite",
			ContactTo:   "contact@demo.local",
		},
		Logging: logger.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.OAuth.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.OAuth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.OAuth.Facebook.ClientID, "FACEBOOK_CLIENT_ID")
	setString(&cfg.OAuth.Facebook.ClientSecret, "FACEBOOK_CLIENT_SECRET")
	setString(&cfg.Mail.SendGridKey, "SENDGRID_API_KEY")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
