// Package config loads the service configuration from a YAML file, with
// OPSDESK_-prefixed environment variables taking precedence.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"opsdesk.org/internal/notify"
)

const (
	DefaultListenAddr     = ":8080"
	DefaultTokenTTL       = 8 * time.Hour
	DefaultIssuer         = "opsdesk"
	DefaultPasswordMinLen = 10
	DefaultRateBurst      = 50
	DefaultRatePerSecond  = 25
)

type ServerConfig struct {
	ListenAddr    string `yaml:"listenAddr" mapstructure:"listenAddr"`
	RateBurst     int    `yaml:"rateBurst" mapstructure:"rateBurst"`
	RatePerSecond int    `yaml:"ratePerSecond" mapstructure:"ratePerSecond"`
}

type DBConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	TokenTTL time.Duration `yaml:"tokenTTL" mapstructure:"tokenTTL"`
}

type RegistrationConfig struct {
	PasswordMinLen int `yaml:"passwordMinLen" mapstructure:"passwordMinLen"`
}

type Config struct {
	Debug        bool               `yaml:"debug" mapstructure:"debug"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	DB           DBConfig           `yaml:"db" mapstructure:"db"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Registration RegistrationConfig `yaml:"registration" mapstructure:"registration"`
	SMTP         notify.SMTPConfig  `yaml:"smtp" mapstructure:"smtp"`
}

func (c *Config) Sanitize() error {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = DefaultRateBurst
	}
	if c.Server.RatePerSecond <= 0 {
		c.Server.RatePerSecond = DefaultRatePerSecond
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = DefaultIssuer
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Registration.PasswordMinLen <= 0 {
		c.Registration.PasswordMinLen = DefaultPasswordMinLen
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret is required")
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OPSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
