package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Escrow.SweepCron != "0 2 * * *" {
		t.Errorf("Escrow.SweepCron = %q, expected daily 02:00", cfg.Escrow.SweepCron)
	}
	if cfg.Payment.PlatformFeePercent != 10 {
		t.Errorf("PlatformFeePercent = %v, expected 10", cfg.Payment.PlatformFeePercent)
	}
	if !cfg.UsesSandboxGateway() {
		t.Error("default config should use the sandbox gateway")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Escrow.ReleaseDelayDays != 3 {
		t.Errorf("ReleaseDelayDays = %d, expected 3", cfg.Escrow.ReleaseDelayDays)
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\nescrow:\n  release_delay_days: 5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	want.overrideFromEnv()
	want.Server.Port = "9090"
	want.Escrow.ReleaseDelayDays = 5
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"host only", "redis://localhost:6379", "localhost:6379", "", 0},
		{"with db", "redis://localhost:6379/2", "localhost:6379", "", 2},
		{"with password", "redis://:secret@cache:6380/1", "cache:6380", "secret", 1},
		{"user and password", "redis://user:pw@cache:6379", "cache:6379", "pw", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("PAYMENT_KEY_ID", "rzp_test_key")
	t.Setenv("PAYMENT_KEY_SECRET", "topsecret")
	t.Setenv("PLATFORM_FEE_PERCENT", "12.5")
	t.Setenv("REDIS_URL", "redis://:pw@redis:6379/3")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, expected 7000", cfg.Server.Port)
	}
	if cfg.Payment.Provider != "razorpay" {
		t.Errorf("Provider = %q, expected razorpay once keys are set", cfg.Payment.Provider)
	}
	if cfg.UsesSandboxGateway() {
		t.Error("gateway keys are set, sandbox should be off")
	}
	if cfg.Payment.PlatformFeePercent != 12.5 {
		t.Errorf("PlatformFeePercent = %v, expected 12.5", cfg.Payment.PlatformFeePercent)
	}
	if !cfg.Redis.Enabled || cfg.Redis.DB != 3 {
		t.Errorf("Redis = %+v, expected enabled db 3", cfg.Redis)
	}
}
