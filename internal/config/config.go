package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreNone     = "none"
)

// Spawner holds all configuration for the spawn daemon.
type Spawner struct {
	LogLevel string `yaml:"log_level"`

	// Scheduler
	TickInterval time.Duration `yaml:"tick_interval"` // default: 1s
	BatchSize    int           `yaml:"batch_size"`    // entries reconciled in 1/N ticks

	// World data
	WorldPath        string      `yaml:"world_path"`        // rooms + templates (YAML/TOML)
	DeclarationsPath string      `yaml:"declarations_path"` // spawn declarations (YAML/TOML)
	ObjectStore      ObjectStore `yaml:"object_store"`      // remote declarations, overrides DeclarationsPath

	// Persistence
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`

	Admin AdminConfig `yaml:"admin"`
}

// StoreConfig selects where spawn entries are persisted.
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite | none
	Path   string `yaml:"path"`   // sqlite file, ":memory:" allowed
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ObjectStore points at a declarations object in S3-compatible storage.
type ObjectStore struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Object    string `yaml:"object"`
}

// Enabled reports whether declarations come from object storage.
func (o ObjectStore) Enabled() bool {
	return o.Endpoint != "" && o.Bucket != "" && o.Object != ""
}

// AdminConfig configures the administrative HTTP API.
type AdminConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"` // empty disables the X-API-Key check
}

// Addr returns host:port for listening.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.BindAddress, a.Port)
}

// DefaultSpawner returns Spawner config with sensible defaults.
func DefaultSpawner() Spawner {
	return Spawner{
		LogLevel:         "info",
		TickInterval:     time.Second,
		BatchSize:        1,
		WorldPath:        "data/world.yaml",
		DeclarationsPath: "data/spawns.yaml",
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "npcspawn.db",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "npcspawn",
			Password: "npcspawn",
			DBName:   "npcspawn",
			SSLMode:  "disable",
		},
		Admin: AdminConfig{
			BindAddress: "127.0.0.1",
			Port:        7080,
		},
	}
}

// Validate checks values the daemon cannot start with.
func (c Spawner) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	switch c.Store.Driver {
	case StorePostgres, StoreNone:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port out of range: %d", c.Admin.Port)
	}
	return nil
}

// LoadSpawner loads spawn daemon config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadSpawner(path string) (Spawner, error) {
	cfg := DefaultSpawner()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
