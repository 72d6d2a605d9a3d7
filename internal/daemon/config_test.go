package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7654 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7654)
	}
	if cfg.Bluetooth.PositionIntervalSeconds != 5 {
		t.Errorf("Bluetooth.PositionIntervalSeconds = %d, want 5",
			cfg.Bluetooth.PositionIntervalSeconds)
	}
	if !cfg.Telemetry.Prometheus {
		t.Error("Telemetry.Prometheus = false, want true")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AVREMOTE_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default %d", cfg.API.Port, DefaultConfig().API.Port)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("AVREMOTE_HOME", home)

	content := `
[api]
host = "0.0.0.0"
port = 9000

[bluetooth]
psm = 23
position_interval_seconds = 2

[telemetry]
prometheus = false
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Bluetooth.PSM != 23 {
		t.Errorf("Bluetooth.PSM = %d, want 23", cfg.Bluetooth.PSM)
	}
	if cfg.Telemetry.Prometheus {
		t.Error("Telemetry.Prometheus = true, want false")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("AVREMOTE_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 8123
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.API.Port != 8123 {
		t.Errorf("API.Port = %d, want 8123", loaded.API.Port)
	}
}
