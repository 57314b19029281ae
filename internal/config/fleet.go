package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/speedwagon-io/xrgimon/internal/model"
)

type FleetConfig struct {
	Facilities []FacilityConfig `yaml:"facilities" json:"facilities"`
}

type FacilityConfig struct {
	ID      string         `yaml:"id" json:"id"`
	Name    string         `yaml:"name" json:"name"`
	Address string         `yaml:"address,omitempty" json:"address,omitempty"`
	Devices []DeviceConfig `yaml:"devices" json:"devices"`
}

type DeviceConfig struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`
	MetricKinds []string `yaml:"metric_kinds" json:"metric_kinds"`
}

func (f *FleetConfig) Device(id string) (*DeviceConfig, bool) {
	for i := range f.Facilities {
		for j := range f.Facilities[i].Devices {
			if f.Facilities[i].Devices[j].ID == id {
				return &f.Facilities[i].Devices[j], true
			}
		}
	}
	return nil, false
}

// Keys lists every "<deviceId>#<metricKind>" the fleet tracks.
func (f *FleetConfig) Keys() []string {
	var keys []string
	for _, facility := range f.Facilities {
		for _, device := range facility.Devices {
			for _, kind := range device.MetricKinds {
				keys = append(keys, model.CompositeKey(device.ID, kind))
			}
		}
	}
	return keys
}

func LoadFleet(configPath string) (*FleetConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("fleet config file not found: %s", configPath)
	}

	var cfg FleetConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read fleet config: %w", err)
	}

	seen := make(map[string]bool)
	for _, facility := range cfg.Facilities {
		for _, device := range facility.Devices {
			if device.ID == "" {
				return nil, fmt.Errorf("facility %q has a device without id", facility.ID)
			}
			if seen[device.ID] {
				return nil, fmt.Errorf("duplicate device id %q", device.ID)
			}
			seen[device.ID] = true
		}
	}

	return &cfg, nil
}

func MustLoadFleet(configPath string) *FleetConfig {
	cfg, err := LoadFleet(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
