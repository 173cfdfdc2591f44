// Package config loads runtime settings from CLASSPOINTS_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	// Language orders student names, as a BCP 47 tag.
	Language string `env:"LANGUAGE" envDefault:"und"`
	// AllowedOrigins restricts websocket origins. Empty accepts any.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	Storage string `env:"STORAGE" envDefault:"sqlite" validate:"oneof=sqlite redis"`
	DBPath  string `env:"DB_PATH" envDefault:"classpoints.db"`
	Redis   Redis  `envPrefix:"REDIS_"`

	Backup Backup `envPrefix:"BACKUP_"`
	S3     S3     `envPrefix:"S3_"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0" validate:"gte=0,lte=15"`
	Prefix   string `env:"PREFIX" envDefault:"classpoints:"`
}

type Backup struct {
	Passphrase string        `env:"PASSPHRASE"`
	Interval   time.Duration `env:"INTERVAL" envDefault:"0s" validate:"gte=0"`
	Retention  time.Duration `env:"RETENTION" envDefault:"720h" validate:"gte=0"`
}

type S3 struct {
	Endpoint  string `env:"ENDPOINT"`
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX" envDefault:"backups/"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: "CLASSPOINTS_"})
}

// LoadFrom reads the configuration from vars instead of the environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: "CLASSPOINTS_", Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// BackupsEnabled reports whether enough S3 settings are present to upload.
func (c *Config) BackupsEnabled() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != ""
}
