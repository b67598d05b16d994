package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/pantry/internal/adapter/storage"
	"github.com/rl1809/pantry/internal/config"
	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/service"
)

const (
	addRequests     = 50
	retryRequests   = 20
	adjustRequests  = 50
	expirySpreadDay = 5
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	if !run(context.Background(), cfg, log) {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) bool {
	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Error("failed to open mysql")
		return false
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)

	if _, err := storage.Migrate(ctx, db); err != nil {
		log.WithError(err).Error("failed to migrate")
		return false
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Error("failed to connect redis")
		return false
	}
	defer rdb.Close()

	inventory := service.NewInventoryService(
		storage.NewMySQLAdapter(db),
		service.WithIdempotency(storage.NewRedisAdapter(rdb, time.Hour)),
		service.WithLogger(log),
	)

	userID := "stress-" + uuid.NewString()
	zero := 0
	today := domain.Date(time.Now())
	product, err := inventory.CreateProduct(ctx, userID, domain.NewProduct{
		Name:       "Stress product",
		Quantity:   &zero,
		ExpiryDate: &today,
	})
	if err != nil {
		log.WithError(err).Error("failed to create product")
		return false
	}
	defer inventory.DeleteProduct(context.Background(), userID, product.ID)

	ok := true
	start := time.Now()

	// Phase 1: concurrent additions across a few expiry dates.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < addRequests; i++ {
		g.Go(func() error {
			expiry := today.AddDate(0, 0, rand.Intn(expirySpreadDay)+1)
			_, err := inventory.AddBatch(gctx, userID, product.ID, domain.BatchInput{Quantity: 1, ExpiryDate: &expiry})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("add phase failed")
		return false
	}
	ok = check("total after additions", addRequests, total(ctx, inventory, userID, product.ID)) && ok

	// Phase 2: the same purchase retried concurrently applies once.
	var applied, duplicates atomic.Int32
	requestID := uuid.NewString()
	g, gctx = errgroup.WithContext(ctx)
	for i := 0; i < retryRequests; i++ {
		g.Go(func() error {
			_, err := inventory.Replenish(gctx, userID, product.ID, requestID, domain.PurchaseInput{Quantity: 10})
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, domain.ErrDuplicateRequest):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("retry phase failed")
		return false
	}
	ok = check("applied purchases", 1, int(applied.Load())) && ok
	ok = check("rejected retries", retryRequests-1, int(duplicates.Load())) && ok
	ok = check("total after purchase", addRequests+10, total(ctx, inventory, userID, product.ID)) && ok

	// Phase 3: racing absolute adjustments; batches must still sum to the total.
	g, gctx = errgroup.WithContext(ctx)
	for i := 0; i < adjustRequests; i++ {
		g.Go(func() error {
			_, err := inventory.SetTotalQuantity(gctx, userID, product.ID, rand.Intn(addRequests))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("adjust phase failed")
		return false
	}

	final, err := inventory.GetProduct(ctx, userID, product.ID)
	if err != nil {
		log.WithError(err).Error("failed to read product")
		return false
	}
	batches, err := inventory.ListBatches(ctx, userID, product.ID)
	if err != nil {
		log.WithError(err).Error("failed to read batches")
		return false
	}
	agg := domain.ComputeAggregate(batches)
	ok = check("batch sum equals product quantity", agg.Quantity, final.Quantity) && ok
	ok = check("earliest expiry matches", dateString(agg.ExpiryDate), dateString(final.ExpiryDate)) && ok

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Additions:        %d\n", addRequests)
	fmt.Printf("Retried purchase: %d\n", retryRequests)
	fmt.Printf("Adjustments:      %d\n", adjustRequests)
	fmt.Printf("Final quantity:   %d in %d batches\n", final.Quantity, len(batches))
	fmt.Printf("Duration:         %v\n", time.Since(start))
	fmt.Println("==========================================")
	return ok
}

func total(ctx context.Context, inventory *service.InventoryService, userID, productID string) int {
	p, err := inventory.GetProduct(ctx, userID, productID)
	if err != nil {
		return -1
	}
	return p.Quantity
}

func check[T comparable](name string, want, got T) bool {
	if want == got {
		fmt.Printf("PASS: %s (%v)\n", name, got)
		return true
	}
	fmt.Printf("FAIL: %s: expected %v, got %v\n", name, want, got)
	return false
}

func dateString(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(time.DateOnly)
}
