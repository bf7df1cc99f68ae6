package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSim = "sim"

	defaultWatchdogSeconds  = 10.0
	defaultAssociateSeconds = 2.0
	defaultIntervalSeconds  = 3.0
	defaultConfigDatabase   = "data/uav_config.sqlite"
)

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Link      LinkConfig      `yaml:"link"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        string  `yaml:"logLevel"`
	WatchdogSeconds float64 `yaml:"watchdogSeconds"`
}

// LinkConfig selects and tunes the link-layer driver
type LinkConfig struct {
	Driver           string  `yaml:"driver"`
	AssociateSeconds float64 `yaml:"associateSeconds"`
}

// SensorsConfig points at the sensor and actuator device files. Empty
// values select the safe fallbacks: no position stream, simulated power.
type SensorsConfig struct {
	GPSDevice   string `yaml:"gpsDevice"`
	PowerSupply string `yaml:"powerSupply"`
	RelayPin    string `yaml:"relayPin"`
}

// TelemetryConfig represents telemetry settings
type TelemetryConfig struct {
	IntervalSeconds float64 `yaml:"intervalSeconds"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	ConfigDatabase string `yaml:"configDatabase"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	cfg := Config{}
	cfg.applyDefaults()
	return &cfg
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Link.Driver != DriverSim {
		return nil, fmt.Errorf("unknown link driver '%s'", cfg.Link.Driver)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
	if c.Settings.WatchdogSeconds <= 0 {
		c.Settings.WatchdogSeconds = defaultWatchdogSeconds
	}
	if c.Link.Driver == "" {
		c.Link.Driver = DriverSim
	}
	if c.Link.AssociateSeconds <= 0 {
		c.Link.AssociateSeconds = defaultAssociateSeconds
	}
	if c.Telemetry.IntervalSeconds <= 0 {
		c.Telemetry.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Storage.ConfigDatabase == "" {
		c.Storage.ConfigDatabase = defaultConfigDatabase
	}
}

// WatchdogWindow returns the watchdog window as a duration.
func (c *Config) WatchdogWindow() time.Duration {
	return time.Duration(c.Settings.WatchdogSeconds * float64(time.Second))
}

// TelemetryInterval returns the telemetry period as a duration.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.IntervalSeconds * float64(time.Second))
}

// AssociateDelay returns the simulated association delay as a duration.
func (c *Config) AssociateDelay() time.Duration {
	return time.Duration(c.Link.AssociateSeconds * float64(time.Second))
}
