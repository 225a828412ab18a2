package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBPassword, "from-env")
	t.Setenv(EnvAdminAPIKey, "k3y")
	t.Setenv(EnvLogLevel, "")

	cfg := DefaultSpawner()
	cfg.ApplyEnv()

	if cfg.Database.Password != "from-env" {
		t.Errorf("Database.Password = %q, want from-env", cfg.Database.Password)
	}
	if cfg.Admin.APIKey != "k3y" {
		t.Errorf("Admin.APIKey = %q, want k3y", cfg.Admin.APIKey)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, empty variable must not override", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadEnvFile(missing) error = %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("NPCSPAWN_S3_SECRET_KEY=minio-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvS3SecretKey, "old")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	cfg := DefaultSpawner()
	cfg.ApplyEnv()
	if cfg.ObjectStore.SecretKey != "minio-secret" {
		t.Errorf("ObjectStore.SecretKey = %q, want minio-secret", cfg.ObjectStore.SecretKey)
	}
}
