// Package config loads process configuration: defaults, then an optional YAML
// file, then CPM_* environment overrides. main converts the result into the
// explicit structs each component takes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

var backends = []string{BackendMemory, BackendDynamoDB, BackendPostgres, BackendRedis}

type Config struct {
	Server     Server         `yaml:"server"`
	Log        Log            `yaml:"log"`
	Storage    Storage        `yaml:"storage"`
	Repository Repository     `yaml:"repository"`
	DynamoDB   DynamoDBConfig `yaml:"dynamodb"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Redis      RedisConfig    `yaml:"redis"`
	Kafka      KafkaConfig    `yaml:"kafka"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	Table   string `yaml:"table"`
}

// Repository mirrors repository.Config. Zero values take the engine defaults.
type Repository struct {
	MaxChunkSize    int           `yaml:"max_chunk_size"`
	BulkBatchSize   int           `yaml:"bulk_batch_size"`
	BulkMaxAttempts int           `yaml:"bulk_max_attempts"`
	BulkBaseDelay   time.Duration `yaml:"bulk_base_delay"`
	BulkMinDelay    time.Duration `yaml:"bulk_min_delay"`
	BulkMaxDelay    time.Duration `yaml:"bulk_max_delay"`
	BulkConcurrency int           `yaml:"bulk_concurrency"`
}

type DynamoDBConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	Prefix       string        `yaml:"prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	Group             string   `yaml:"group"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// Default returns a configuration that runs locally against the in-memory
// backend.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Log:     Log{Level: "info", Format: "json"},
		Storage: Storage{Backend: BackendMemory, Table: "cpm"},
		DynamoDB: DynamoDBConfig{
			Region: "eu-west-2",
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
		},
		Redis: RedisConfig{
			Prefix:       "cpm",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "cpm.events",
			Group:             "cpm-load",
			Partitions:        3,
			ReplicationFactor: 1,
		},
	}
}

// Load reads path (when non-empty) over the defaults and applies environment
// overrides. Unknown YAML fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements of the selected backend.
func (c Config) Validate() error {
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage backend %q (want one of %s)", c.Storage.Backend, strings.Join(backends, ", "))
	}
	if c.Storage.Table == "" {
		return errors.New("storage table is required")
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis url is required for the redis backend")
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("CPM_ADDR", &c.Server.Addr)
	str("CPM_LOG_LEVEL", &c.Log.Level)
	str("CPM_LOG_FORMAT", &c.Log.Format)
	str("CPM_STORAGE_BACKEND", &c.Storage.Backend)
	str("CPM_TABLE", &c.Storage.Table)
	str("CPM_DYNAMODB_REGION", &c.DynamoDB.Region)
	str("CPM_DYNAMODB_ENDPOINT", &c.DynamoDB.Endpoint)
	str("CPM_POSTGRES_DSN", &c.Postgres.DSN)
	str("CPM_REDIS_URL", &c.Redis.URL)
	str("CPM_REDIS_PREFIX", &c.Redis.Prefix)
	str("CPM_KAFKA_TOPIC", &c.Kafka.Topic)
	str("CPM_KAFKA_GROUP", &c.Kafka.Group)
	if v, ok := lookup("CPM_KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	integer("CPM_MAX_CHUNK_SIZE", &c.Repository.MaxChunkSize)
	integer("CPM_BULK_BATCH_SIZE", &c.Repository.BulkBatchSize)
	integer("CPM_BULK_MAX_ATTEMPTS", &c.Repository.BulkMaxAttempts)
	integer("CPM_BULK_CONCURRENCY", &c.Repository.BulkConcurrency)
	duration("CPM_BULK_BASE_DELAY", &c.Repository.BulkBaseDelay)
	duration("CPM_BULK_MIN_DELAY", &c.Repository.BulkMinDelay)
	duration("CPM_BULK_MAX_DELAY", &c.Repository.BulkMaxDelay)
	duration("CPM_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	return errors.Join(errs...)
}
