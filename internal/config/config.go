package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN             string
	MySQLMaxOpenConns    int
	MySQLMaxIdleConns    int
	MySQLConnMaxLifetime time.Duration

	RedisAddr      string
	RedisPoolSize  int
	IdempotencyTTL time.Duration

	DefaultShelfLife time.Duration
	LogLevel         logrus.Level
	ShutdownTimeout  time.Duration
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		HTTPAddr:             r.string("HTTP_ADDR", ":8080"),
		GRPCAddr:             r.string("GRPC_ADDR", ":50051"),
		MySQLDSN:             r.dsn("MYSQL_DSN", "root:root@tcp(localhost:3306)/pantry"),
		MySQLMaxOpenConns:    r.int("MYSQL_MAX_OPEN_CONNS", 50),
		MySQLMaxIdleConns:    r.int("MYSQL_MAX_IDLE_CONNS", 25),
		MySQLConnMaxLifetime: r.duration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		RedisAddr:            r.string("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize:        r.int("REDIS_POOL_SIZE", 100),
		IdempotencyTTL:       r.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		DefaultShelfLife:     r.duration("DEFAULT_SHELF_LIFE", 30*24*time.Hour),
		ShutdownTimeout:      r.duration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	level, err := logrus.ParseLevel(r.string("LOG_LEVEL", "info"))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	if cfg.DefaultShelfLife <= 0 {
		r.errs = append(r.errs, errors.New("DEFAULT_SHELF_LIFE: must be positive"))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) string(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

// dsn parses a MySQL DSN and forces DATE columns to scan as UTC time.Time.
func (r *reader) dsn(key, def string) string {
	v := r.string(key, def)
	mc, err := mysql.ParseDSN(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return v
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

func (r *reader) int(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a non-negative integer", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
