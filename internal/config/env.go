package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment overrides. Secrets are usually kept out of the YAML file.
const (
	EnvConfigPath   = "NPCSPAWN_CONFIG"
	EnvLogLevel     = "NPCSPAWN_LOG_LEVEL"
	EnvDBHost       = "NPCSPAWN_DB_HOST"
	EnvDBPassword   = "NPCSPAWN_DB_PASSWORD"
	EnvS3AccessKey  = "NPCSPAWN_S3_ACCESS_KEY"
	EnvS3SecretKey  = "NPCSPAWN_S3_SECRET_KEY"
	EnvAdminAPIKey  = "NPCSPAWN_API_KEY"
	EnvAdminAddress = "NPCSPAWN_ADMIN_ADDR"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Overload(path)
}

// ApplyEnv overrides config fields from NPCSPAWN_* variables.
func (c *Spawner) ApplyEnv() {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvLogLevel, &c.LogLevel)
	set(EnvDBHost, &c.Database.Host)
	set(EnvDBPassword, &c.Database.Password)
	set(EnvS3AccessKey, &c.ObjectStore.AccessKey)
	set(EnvS3SecretKey, &c.ObjectStore.SecretKey)
	set(EnvAdminAPIKey, &c.Admin.APIKey)
}
