// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Postgres, SQLite, Kafka, Redis, Search, Indexes).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/ngram"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Search   SearchConfig   `yaml:"search"`
	Locales  []string       `yaml:"locales"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Indexes  []IndexConfig  `yaml:"indexes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig selects the index store backend.
type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	ConnectAttempts int           `yaml:"connectAttempts"`
	ConnectBackoff  time.Duration `yaml:"connectBackoff"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig holds the embedded database location and pool limits.
type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	BusyTimeout  time.Duration `yaml:"busyTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`

	// MaxAttempts is how often a failing message is handed to the handler
	// before it is committed anyway.
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Reindex string `yaml:"reindex"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`

	// BreakerThreshold consecutive backend failures open the cache circuit
	// for BreakerReset; searches skip the cache while it is open.
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// SearchConfig controls candidate budgets, result limits and timeouts.
type SearchConfig struct {
	MaxCandidateSetSize int           `yaml:"maxCandidateSetSize"`
	DefaultMaxResults   int           `yaml:"defaultMaxResults"`
	MaxResults          int           `yaml:"maxResults"`
	Concurrency         int           `yaml:"concurrency"`
	Timeout             time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// IndexConfig declares one full-text index over a document class. Tokenizer
// options are inlined; options left out of the file keep ngram.DefaultConfig.
type IndexConfig struct {
	Name               string       `yaml:"name"`
	Class              string       `yaml:"class"`
	Descendants        []string     `yaml:"descendants"`
	Fields             []string     `yaml:"fields"`
	Localized          bool         `yaml:"localized"`
	Filters            []string     `yaml:"filters"`
	UpdateIf           string       `yaml:"updateIf"`
	ReindexImmediately bool         `yaml:"reindexImmediately"`
	StopWordPreset     string       `yaml:"stopWordPreset"`
	Ngram              ngram.Config `yaml:",inline"`
}

func (c *IndexConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain IndexConfig
	p := plain{Ngram: ngram.DefaultConfig(), ReindexImmediately: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = IndexConfig(p)
	return nil
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Search.MaxCandidateSetSize <= 0 {
		return fmt.Errorf("search.maxCandidateSetSize must be > 0, got %d", c.Search.MaxCandidateSetSize)
	}
	if c.Search.DefaultMaxResults <= 0 {
		return fmt.Errorf("search.defaultMaxResults must be > 0, got %d", c.Search.DefaultMaxResults)
	}
	for i, idx := range c.Indexes {
		if idx.Class == "" {
			return fmt.Errorf("indexes[%d]: class is required", i)
		}
		if err := idx.Ngram.Validate(); err != nil {
			return fmt.Errorf("indexes[%d] (%s): %w", i, idx.Class, err)
		}
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver:          DriverMemory,
			ConnectAttempts: 3,
			ConnectBackoff:  500 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ngramsearch",
			User:            "ngramsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path:         "data/fts.db",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 1,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "ngramsearch-indexer",
			Topics: KafkaTopics{
				Reindex: "fts-reindex",
			},
			MaxAttempts:  5,
			RetryBackoff: 200 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			PoolSize:         10,
			CacheTTL:         60 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Search: SearchConfig{
			MaxCandidateSetSize: 1000,
			DefaultMaxResults:   10,
			MaxResults:          100,
			Concurrency:         8,
			Timeout:             5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FTS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FTS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FTS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FTS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FTS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FTS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FTS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FTS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FTS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("FTS_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("FTS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FTS_KAFKA_TOPIC_REINDEX"); v != "" {
		cfg.Kafka.Topics.Reindex = v
	}
	if v := os.Getenv("FTS_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("FTS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FTS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FTS_SEARCH_MAX_CANDIDATE_SET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxCandidateSetSize = n
		}
	}
	if v := os.Getenv("FTS_LOCALES"); v != "" {
		cfg.Locales = strings.Split(v, ",")
	}
	if v := os.Getenv("FTS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FTS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
