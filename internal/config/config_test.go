package config

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	dsn, err := mysql.ParseDSN(cfg.MySQLDSN)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", dsn.Addr)
	assert.Equal(t, "pantry", dsn.DBName)
	assert.True(t, dsn.ParseTime)
	assert.Equal(t, time.UTC, dsn.Loc)
	assert.Equal(t, 50, cfg.MySQLMaxOpenConns)
	assert.Equal(t, 25, cfg.MySQLMaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.MySQLConnMaxLifetime)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 100, cfg.RedisPoolSize)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 720*time.Hour, cfg.DefaultShelfLife)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"HTTP_ADDR":            ":9090",
		"MYSQL_MAX_OPEN_CONNS": "10",
		"IDEMPOTENCY_TTL":      "1h",
		"DEFAULT_SHELF_LIFE":   "168h",
		"LOG_LEVEL":            "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.MySQLMaxOpenConns)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.DefaultShelfLife)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad int", map[string]string{"REDIS_POOL_SIZE": "many"}, "REDIS_POOL_SIZE"},
		{"negative int", map[string]string{"MYSQL_MAX_IDLE_CONNS": "-1"}, "MYSQL_MAX_IDLE_CONNS"},
		{"bad duration", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, "SHUTDOWN_TIMEOUT"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad dsn", map[string]string{"MYSQL_DSN": "not-a-dsn"}, "MYSQL_DSN"},
		{"zero shelf life", map[string]string{"DEFAULT_SHELF_LIFE": "0s"}, "DEFAULT_SHELF_LIFE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromEnv_DSNForcesUTCTime(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"MYSQL_DSN": "app:secret@tcp(db:3306)/pantry?loc=Local&parseTime=false&timeout=5s",
	}))
	require.NoError(t, err)

	dsn, err := mysql.ParseDSN(cfg.MySQLDSN)
	require.NoError(t, err)
	assert.Equal(t, "app", dsn.User)
	assert.Equal(t, "db:3306", dsn.Addr)
	assert.Equal(t, 5*time.Second, dsn.Timeout)
	assert.True(t, dsn.ParseTime)
	assert.Equal(t, time.UTC, dsn.Loc)
}
