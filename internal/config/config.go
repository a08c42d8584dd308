package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven setting the worker needs. There are
// no CLI flags for these values: the job queue and persistence store wire
// contracts require them to come from the environment so the same image runs
// unmodified across deployments.
type Config struct {
	MongoURI string
	DBName   string

	RabbitHost     string
	RabbitUser     string
	RabbitPassword string

	LogLevel string

	// Operational tunables not named by any external wire contract.
	PrefetchCount        int
	ReachabilityCacheTTL time.Duration
	SSHConnectTimeout    time.Duration
	SSHCommandTimeout    time.Duration
	ChainedReadTimeout   time.Duration
	ChainedStepTimeout   time.Duration
}

// Load reads configuration from the process environment. MONGO_URI,
// DB_NAME and RABBIT_HOST are required; everything else falls back to a
// sensible operational default.
func Load() (*Config, error) {
	cfg := &Config{
		MongoURI:             os.Getenv("MONGO_URI"),
		DBName:               os.Getenv("DB_NAME"),
		RabbitHost:           os.Getenv("RABBIT_HOST"),
		RabbitUser:           getenvDefault("RABBITMQ_DEFAULT_USER", "guest"),
		RabbitPassword:       getenvDefault("RABBITMQ_DEFAULT_PASS", "guest"),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		PrefetchCount:        1,
		ReachabilityCacheTTL: 300 * time.Second,
		SSHConnectTimeout:    10 * time.Second,
		SSHCommandTimeout:    10 * time.Second,
		ChainedReadTimeout:   20 * time.Second,
		ChainedStepTimeout:   30 * time.Second,
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("load config: MONGO_URI is required")
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("load config: DB_NAME is required")
	}
	if cfg.RabbitHost == "" {
		return nil, fmt.Errorf("load config: RABBIT_HOST is required")
	}

	if v := os.Getenv("WORKER_PREFETCH_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("load config: invalid WORKER_PREFETCH_COUNT: %w", err)
		}
		cfg.PrefetchCount = n
	}

	return cfg, nil
}

// AMQPURL builds the connection URL amqp091-go expects.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s/", c.RabbitUser, c.RabbitPassword, c.RabbitHost)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
