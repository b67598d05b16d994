// Package testhelpers provides the MySQL and Redis connections used by
// integration tests.
//
// MySQL comes from MYSQL_DSN when set. Otherwise a throwaway mysql:8.0
// container is started with testcontainers-go and terminated through
// t.Cleanup. Tests are skipped when neither is available.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlPassword = "root"
	mysqlDatabase = "pantry"
)

// MySQL returns an open, pinged connection pool. The schema is not applied.
func MySQL(t *testing.T) *sql.DB {
	t.Helper()

	dsn, timeout := os.Getenv("MYSQL_DSN"), 5*time.Second
	if dsn == "" {
		if testing.Short() {
			t.Skip("MySQL not configured and container tests disabled in short mode")
		}
		dsn, timeout = startMySQLContainer(t), 30*time.Second
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ping(ctx, db); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func startMySQLContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mysqlImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": mysqlPassword,
				"MYSQL_DATABASE":      mysqlDatabase,
			},
			// The entrypoint runs a temporary server first.
			WaitingFor: wait.ForLog("ready for connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("MySQL container not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate mysql container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("mysql container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql container port: %v", err)
	}

	return fmt.Sprintf("root:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=false",
		mysqlPassword, host, port.Port(), mysqlDatabase)
}

func ping(ctx context.Context, db *sql.DB) error {
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Redis returns a client for REDIS_ADDR (default localhost:6379), skipping
// the test when the server does not answer.
func Redis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
