// Package daemon manages the AVRemote daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	API       APIConfig       `toml:"api"`
	Bluetooth BluetoothConfig `toml:"bluetooth"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// NodeConfig identifies this host.
type NodeConfig struct {
	Name string `toml:"name"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// BluetoothConfig controls the control-channel transport.
type BluetoothConfig struct {
	// PSM of the AVCTP control channel; 0 means the protocol default.
	PSM uint16 `toml:"psm"`
	// PositionIntervalSeconds is the reporting interval requested for
	// playback position notifications.
	PositionIntervalSeconds uint32 `toml:"position_interval_seconds"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	File string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			Name: "avremote",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 7654,
		},
		Bluetooth: BluetoothConfig{
			PositionIntervalSeconds: 5,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			File: filepath.Join(avremoteHome(), "avremote.log"),
		},
	}
}

// LoadConfig reads config from ~/.avremote/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(avremoteHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // no config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.avremote/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(avremoteHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// avremoteHome returns the AVRemote data directory.
func avremoteHome() string {
	if env := os.Getenv("AVREMOTE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".avremote")
}

// Home is exported for use by other packages.
func Home() string {
	return avremoteHome()
}
