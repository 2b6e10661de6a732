package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
target:
  name: "microbit-v2-sim"
  base: "framework"
  override: "./targets/sim.yaml"
  header_out: "./build/codal_target.h"
database:
  enabled: true
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic_prefix: "lab"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Target.Name != "microbit-v2-sim" {
		t.Errorf("Target.Name = %q, want %q", cfg.Target.Name, "microbit-v2-sim")
	}

	if cfg.Target.Override != "./targets/sim.yaml" {
		t.Errorf("Target.Override = %q, want %q", cfg.Target.Override, "./targets/sim.yaml")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.TopicPrefix != "lab" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "lab")
	}

	// Values absent from the file keep their defaults
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Target.Base != "framework" || cfg.Target.Override != "codal-wasm" {
		t.Errorf("Target = %+v, want framework/codal-wasm defaults", cfg.Target)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
target:
  name: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty target.name, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing target name",
			mutate:  func(c *Config) { c.Target.Name = "" },
			wantErr: "target.name is required",
		},
		{
			name:    "target name with topic separator",
			mutate:  func(c *Config) { c.Target.Name = "a/b" },
			wantErr: "target.name must not contain",
		},
		{
			name:    "missing override",
			mutate:  func(c *Config) { c.Target.Override = "" },
			wantErr: "target.override is required",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path is required",
		},
		{
			name:   "database disabled without path",
			mutate: func(c *Config) { c.Database.Path = "" },
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos must be 0, 1, or 2",
		},
		{
			name: "mqtt port out of range",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "wildcard topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "codal/#" },
			wantErr: "mqtt.topic_prefix",
		},
		{
			name: "influxdb enabled without bucket",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = ""
			},
			wantErr: "influxdb.org and influxdb.bucket",
		},
		{
			name: "file logging without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: "logging.file.path",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Target.Name = ""
	cfg.MQTT.QoS = 7

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"target.name", "mqtt.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{BusyTimeout: 5},
		InfluxDB: InfluxDBConfig{FlushInterval: 10},
	}

	if got := cfg.GetBusyTimeout().Seconds(); got != 5 {
		t.Errorf("GetBusyTimeout() = %v, want 5", got)
	}

	if got := cfg.GetFlushInterval().Seconds(); got != 10 {
		t.Errorf("GetFlushInterval() = %v, want 10", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("CODALCFG_TARGET_NAME", "nrf52-sim")
	t.Setenv("CODALCFG_TARGET_BASE", "./base.toml")
	t.Setenv("CODALCFG_TARGET_OVERRIDE", "./override.h")
	t.Setenv("CODALCFG_DATABASE_PATH", "/custom/path.db")
	t.Setenv("CODALCFG_MQTT_HOST", "mqtt.example.com")
	t.Setenv("CODALCFG_MQTT_USERNAME", "testuser")
	t.Setenv("CODALCFG_MQTT_PASSWORD", "testpass")
	t.Setenv("CODALCFG_INFLUXDB_URL", "http://influx:8086")
	t.Setenv("CODALCFG_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("CODALCFG_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	checks := []struct {
		name, got, want string
	}{
		{"Target.Name", cfg.Target.Name, "nrf52-sim"},
		{"Target.Base", cfg.Target.Base, "./base.toml"},
		{"Target.Override", cfg.Target.Override, "./override.h"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"InfluxDB.URL", cfg.InfluxDB.URL, "http://influx:8086"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Target.Name == "" {
		t.Error("defaultConfig should have non-empty Target.Name")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
