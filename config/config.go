package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/internal/source"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalog-engine/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig          `koanf:"server"`
	Engine   EngineSettings        `koanf:"engine"`
	Source   SourceConfig          `koanf:"source"`
	Postgres source.PostgresConfig `koanf:"postgres"`
	Redis    source.RedisConfig    `koanf:"redis"`
	Logging  LoggingConfig         `koanf:"logging"`
	Snapshot SnapshotConfig        `koanf:"snapshot"`
	Jobs     JobsConfig            `koanf:"jobs"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Mode            string        `koanf:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig selects where the catalog is read from. A zero
// RefreshInterval disables periodic refresh.
type SourceConfig struct {
	Kind            source.Kind   `koanf:"kind"`
	FilePath        string        `koanf:"file_path"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`
}

// LoggingConfig mirrors logging.Config without the output writer.
type LoggingConfig struct {
	Level     string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	Format    string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller    bool   `koanf:"caller"`
	Timestamp bool   `koanf:"timestamp"`
}

func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.Timestamp = l.Timestamp
	return cfg
}

// SnapshotConfig controls the on-disk catalog snapshot used for warm starts.
// An empty Path disables it.
type SnapshotConfig struct {
	Path          string `koanf:"path"`
	SaveOnRefresh bool   `koanf:"save_on_refresh"`
}

type JobsConfig struct {
	MaxWorkers int           `koanf:"max_workers" validate:"min=1"`
	Retention  time.Duration `koanf:"retention" validate:"gte=0"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: DefaultEngineSettings(),
		Source: SourceConfig{
			Kind:     source.KindFile,
			FilePath: "catalog.json",
		},
		Postgres: source.PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Database:       "harvesthub",
			SSLMode:        "disable",
			MaxConnections: 10,
			MaxIdle:        2,
			ItemsTable:     source.DefaultItemsTable,
			BookingsTable:  source.DefaultBookingsTable,
			QueryTimeout:   30 * time.Second,
		},
		Redis: source.RedisConfig{
			Address: "localhost:6379",
			Key:     source.DefaultCacheKey,
			TTL:     source.DefaultCacheTTL,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
		Snapshot: SnapshotConfig{
			Path:          "data/catalog.snapshot",
			SaveOnRefresh: true,
		},
		Jobs: JobsConfig{
			MaxWorkers: 2,
			Retention:  time.Hour,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration from three layers, later ones winning:
// built-in defaults, an optional YAML file, then environment variables.
// An empty path searches CONFIG_PATH and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Engine.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags, the engine settings and the source selection.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var problems []string
	problems = append(problems, c.Engine.Validate()...)

	if err := c.Source.Kind.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Source.Kind == source.KindFile && c.Source.FilePath == "" {
		problems = append(problems, "source.file_path is required for the file source")
	}
	if c.Source.Kind == source.KindPostgres && c.Postgres.Host == "" {
		problems = append(problems, "postgres.host is required for the postgres source")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		problems = append(problems, "redis.address is required when redis is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"server_host":             "server.host",
		"server_port":             "server.port",
		"port":                    "server.port",
		"gin_mode":                "server.mode",
		"server_read_timeout":     "server.read_timeout",
		"server_write_timeout":    "server.write_timeout",
		"server_shutdown_timeout": "server.shutdown_timeout",

		"min_keyword_length":        "engine.min_keyword_length",
		"default_limit":             "engine.default_limit",
		"max_limit":                 "engine.max_limit",
		"default_top_k":             "engine.default_top_k",
		"popularity_default_rating": "engine.popularity.default_rating",
		"popularity_default_count":  "engine.popularity.default_rental_count",
		"budget_default_rating":     "engine.budget_default_rating",
		"unavailable_factor":        "engine.unavailable_factor",
		"cost_resolution":           "engine.cost_resolution",
		"knapsack_table_threshold":  "engine.knapsack_table_threshold",
		"max_budget_units":          "engine.max_budget_units",
		"proximity_threshold_km":    "engine.proximity_threshold_km",

		"catalog_source":           "source.kind",
		"catalog_file":             "source.file_path",
		"catalog_refresh_interval": "source.refresh_interval",

		"postgres_host":           "postgres.host",
		"postgres_port":           "postgres.port",
		"postgres_user":           "postgres.user",
		"postgres_password":       "postgres.password",
		"postgres_db":             "postgres.database",
		"postgres_sslmode":        "postgres.sslmode",
		"postgres_max_conns":      "postgres.max_connections",
		"postgres_items_table":    "postgres.items_table",
		"postgres_bookings_table": "postgres.bookings_table",
		"postgres_query_timeout":  "postgres.query_timeout",

		"redis_enabled":  "redis.enabled",
		"redis_addr":     "redis.address",
		"redis_password": "redis.password",
		"redis_db":       "redis.db",
		"redis_key":      "redis.key",
		"redis_ttl":      "redis.ttl",

		"log_level":     "logging.level",
		"log_format":    "logging.format",
		"log_caller":    "logging.caller",
		"log_timestamp": "logging.timestamp",

		"snapshot_path":            "snapshot.path",
		"snapshot_save_on_refresh": "snapshot.save_on_refresh",

		"job_max_workers": "jobs.max_workers",
		"job_retention":   "jobs.retention",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
