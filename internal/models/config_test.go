package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	// no deli.yaml next to the package, so only defaults apply
	cfg, err := LoadConfigFrom(viper.New(), "")
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Storage != "postgres" || cfg.Broker != "kafka" || cfg.Kafka.GroupID != "smarteta-group" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.CookingCompletedMinutes != 20 || cfg.HTTP.ShutdownTimeout != 5*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if hour, minute, err := cfg.NightlyRunAt(); err != nil || hour != 0 || minute != 0 {
		t.Errorf("NightlyRunAt() = %d, %d, %v", hour, minute, err)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deli.yaml")
	yaml := `
timezone: UTC
storage: memory
broker: log
http:
  port: 9090
  shutdown_timeout: 2s
nightly:
  run_at: "03:30"
  skip_analyzed: true
kafka:
  broker_list: a:9092,b:9092
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DELI_HTTP_PORT", "7070")

	cfg, err := LoadConfigFrom(viper.New(), path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Storage != "memory" || cfg.Broker != "log" || !cfg.Nightly.SkipAnalyzed {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("http.port = %d, want env override 7070", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownTimeout != 2*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.HTTP.ShutdownTimeout)
	}
	if brokers := cfg.Kafka.Brokers(); len(brokers) != 2 || brokers[1] != "b:9092" {
		t.Errorf("brokers = %v", brokers)
	}
	if hour, minute, _ := cfg.NightlyRunAt(); hour != 3 || minute != 30 {
		t.Errorf("run at = %02d:%02d", hour, minute)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Timezone: "UTC", Storage: "memory", Broker: "log", Nightly: NightlyConfig{RunAt: "00:00"}}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := map[string]func(*Config){
		"storage":  func(c *Config) { c.Storage = "sqlite" },
		"broker":   func(c *Config) { c.Broker = "nats" },
		"timezone": func(c *Config) { c.Timezone = "Mars/Olympus" },
		"run_at":   func(c *Config) { c.Nightly.RunAt = "25:00" },
		"cooking":  func(c *Config) { c.CookingCompletedMinutes = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
