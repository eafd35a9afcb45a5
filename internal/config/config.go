package config

import (
	"fmt"
	"time"

	"github.com/ya55en/pact-showcase/internal/utils"

	"github.com/ilyakaznacheev/cleanenv"
)

// durationSeconds parses env as time.Duration: "10s", "5m" or bare number = seconds (e.g. "10" -> 10s).
type durationSeconds time.Duration

// SetValue implements cleanenv.Setter.
func (d *durationSeconds) SetValue(data string) error {
	v, err := utils.ParseDurationEnv(data)
	if err != nil {
		return err
	}
	*d = durationSeconds(v)
	return nil
}

func (d durationSeconds) Duration() time.Duration { return time.Duration(d) }

type Config struct {
	App  AppConfig
	HTTP HTTPConfig
	DB   DBConfig
	Log  LogConfig
}

type AppConfig struct {
	Env     string `env:"APP_ENV" env-default:"dev"`
	Version string `env:"VERSION" env-default:"dev"`
}

type HTTPConfig struct {
	Port string `env:"HTTP_PORT" env-default:"8080"`

	// Value: "10s", "5m" or a number of seconds without suffix (e.g. 10).
	ReadTimeout  durationSeconds `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout durationSeconds `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  durationSeconds `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DBConfig struct {
	// URL selects the store: sqlite://:memory:, sqlite://<path> or postgres://...
	URL      string `env:"TODOAPP_DB_URL" env-default:"sqlite://:memory:"`
	Seed     bool   `env:"TODOAPP_SEED_DB" env-default:"true"`
	MaxConns int    `env:"DB_MAX_CONNS" env-default:"10"`

	// Filled from URL by Load.
	Driver string
	DSN    string
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	driver, dsn, err := utils.ParseDatabaseURL(cfg.DB.URL)
	if err != nil {
		return Config{}, fmt.Errorf("TODOAPP_DB_URL: %w", err)
	}
	cfg.DB.Driver = driver
	cfg.DB.DSN = dsn
	return cfg, nil
}
