package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

type Config struct {
	Env      string         `yaml:"env" env-default:"prod"`
	Fleet    FleetRef       `yaml:"fleet"`
	Upstream UpstreamConfig `yaml:"upstream"`
	EventLog EventLogConfig `yaml:"event_log"`
	Polling  PollingConfig  `yaml:"polling"`
	Window   WindowConfig   `yaml:"window"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type FleetRef struct {
	ConfigPath string `yaml:"config_path" env:"FLEET_CONFIG_PATH" env-required:"true"`
}

type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url" env:"XRGI_BASE_URL" env-required:"true"`
	Token     string        `yaml:"token" env:"XRGI_TOKEN"`
	Timeout   time.Duration `yaml:"timeout" env-default:"15s"`
	RateLimit float64       `yaml:"rate_limit" env-default:"5"`
	Burst     int           `yaml:"burst" env-default:"5"`
}

type EventLogConfig struct {
	Source string        `yaml:"source" env-default:"http"`
	Path   string        `yaml:"path" env-default:"/var/lib/xrgimon/events.db"`
	MaxAge time.Duration `yaml:"max_age" env-default:"168h"`
}

type PollingConfig struct {
	Interval   time.Duration `yaml:"interval" env-default:"60s"`
	Timeout    time.Duration `yaml:"timeout" env-default:"20s"`
	MaxBackoff time.Duration `yaml:"max_backoff" env-default:"10m"`
	Capacity   int           `yaml:"capacity" env-default:"6"`
}

type WindowConfig struct {
	FirstCall string `yaml:"first_call" env-default:"2010-01-01"`
	Location  string `yaml:"location" env-default:"UTC"`
}

type ServerConfig struct {
	Address string `yaml:"address" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

// Zone loads the configured time zone.
func (w WindowConfig) Zone() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %q: %w", w.Location, err)
	}
	return loc, nil
}

// FirstCallAt parses first_call in the configured zone.
func (w WindowConfig) FirstCallAt() (time.Time, error) {
	loc, err := w.Zone()
	if err != nil {
		return time.Time{}, err
	}
	t, err := timestamp.New(loc).Normalize(timestamp.FromString(w.FirstCall))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse first_call %q: %w", w.FirstCall, err)
	}
	return t, nil
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := cfg.Window.FirstCallAt(); err != nil {
		return nil, err
	}

	switch cfg.EventLog.Source {
	case "http", "sqlite", "mirror":
	default:
		return nil, fmt.Errorf("unknown event_log source %q", cfg.EventLog.Source)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}
