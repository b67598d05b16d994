package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
	"github.com/rl1809/pantry/internal/testhelpers"
)

func getMySQLAdapter(t *testing.T) (*MySQLAdapter, *sql.DB) {
	db := testhelpers.MySQL(t)

	_, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	return NewMySQLAdapter(db), db
}

func date(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedProduct inserts a product with the given batches and a matching
// aggregate, owned by a fresh user.
func seedProduct(t *testing.T, adapter *MySQLAdapter, name string, batches ...domain.Batch) (string, domain.Product) {
	t.Helper()
	ctx := context.Background()
	userID := "user-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	product := domain.Product{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var stored *domain.Product
	err := adapter.WithTx(ctx, func(tx port.Tx) error {
		if err := tx.InsertProduct(ctx, product); err != nil {
			return err
		}
		for _, b := range batches {
			b.ID = uuid.NewString()
			b.ProductID = product.ID
			b.CreatedAt = now
			if err := tx.InsertBatch(ctx, b); err != nil {
				return err
			}
		}
		current, err := tx.ListBatches(ctx, product.ID)
		if err != nil {
			return err
		}
		stored, err = tx.WriteAggregate(ctx, product.ID, domain.ComputeAggregate(current))
		return err
	})
	require.NoError(t, err)
	return userID, *stored
}

func TestMigrate_Idempotent(t *testing.T) {
	_, db := getMySQLAdapter(t)

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.GreaterOrEqual(t, count, 2)
}

func TestWithTx_WritesAggregate(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)

	userID, p := seedProduct(t, adapter, "Milk",
		domain.Batch{Quantity: 2, ExpiryDate: date("2024-06-20")},
		domain.Batch{Quantity: 3, ExpiryDate: date("2024-06-10")},
	)

	assert.Equal(t, 5, p.Quantity)
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, date("2024-06-10"), *p.ExpiryDate)

	got, err := adapter.GetProduct(context.Background(), userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Quantity, got.Quantity)
	assert.Equal(t, "Milk", got.Name)
	assert.Nil(t, got.CategoryID)

	batches, err := adapter.ListProductBatches(context.Background(), userID, p.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, date("2024-06-10"), batches[0].ExpiryDate)
	assert.Equal(t, date("2024-06-20"), batches[1].ExpiryDate)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	userID, p := seedProduct(t, adapter, "Eggs", domain.Batch{Quantity: 6, ExpiryDate: date("2024-07-01")})

	boom := errors.New("boom")
	err := adapter.WithTx(ctx, func(tx port.Tx) error {
		batches, err := tx.LockBatches(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteBatch(ctx, batches[0].ID); err != nil {
			return err
		}
		if _, err := tx.WriteAggregate(ctx, p.ID, domain.Aggregate{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := adapter.GetProduct(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)

	batches, err := adapter.ListProductBatches(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestInsertBatch_DuplicateExpiryRejected(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	_, p := seedProduct(t, adapter, "Rice", domain.Batch{Quantity: 1, ExpiryDate: date("2025-01-01")})

	err := adapter.WithTx(ctx, func(tx port.Tx) error {
		return tx.InsertBatch(ctx, domain.Batch{
			ID:         uuid.NewString(),
			ProductID:  p.ID,
			Quantity:   4,
			ExpiryDate: date("2025-01-01"),
			CreatedAt:  time.Now(),
		})
	})
	assert.Error(t, err)
}

func TestLockProduct_OtherUserNotFound(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	_, p := seedProduct(t, adapter, "Bread", domain.Batch{Quantity: 1, ExpiryDate: date("2024-06-18")})

	err := adapter.WithTx(ctx, func(tx port.Tx) error {
		_, err := tx.LockProduct(ctx, "someone-else", p.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = adapter.GetProduct(ctx, "someone-else", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLockBatchProduct(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	userID, p := seedProduct(t, adapter, "Butter", domain.Batch{Quantity: 2, ExpiryDate: date("2024-08-01")})
	batches, err := adapter.ListProductBatches(ctx, userID, p.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	err = adapter.WithTx(ctx, func(tx port.Tx) error {
		product, batch, err := tx.LockBatchProduct(ctx, userID, batches[0].ID)
		if err != nil {
			return err
		}
		assert.Equal(t, p.ID, product.ID)
		assert.Equal(t, 2, batch.Quantity)

		_, _, err = tx.LockBatchProduct(ctx, "someone-else", batches[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestPurgeEmptyBatches(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	userID, p := seedProduct(t, adapter, "Yogurt",
		domain.Batch{Quantity: 0, ExpiryDate: date("2024-06-01")},
		domain.Batch{Quantity: 4, ExpiryDate: date("2024-06-05")},
	)

	err := adapter.WithTx(ctx, func(tx port.Tx) error {
		return tx.PurgeEmptyBatches(ctx, p.ID)
	})
	require.NoError(t, err)

	batches, err := adapter.ListProductBatches(ctx, userID, p.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 4, batches[0].Quantity)
}

func TestDeleteProduct_CascadesBatches(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	ctx := context.Background()

	userID, p := seedProduct(t, adapter, "Cheese", domain.Batch{Quantity: 1, ExpiryDate: date("2024-09-01")})

	require.NoError(t, adapter.DeleteProduct(ctx, userID, p.ID))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_batches WHERE product_id = ?`, p.ID).Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, adapter.DeleteProduct(ctx, userID, p.ID), domain.ErrNotFound)
}

func TestUpdateProductDetails(t *testing.T) {
	adapter, _ := getMySQLAdapter(t)
	ctx := context.Background()

	userID, p := seedProduct(t, adapter, "Flour", domain.Batch{Quantity: 2, ExpiryDate: date("2025-03-01")})

	category := "baking"
	details := domain.ProductDetails{Name: "Wheat flour", MinQuantity: 1, CategoryID: &category}

	got, err := adapter.UpdateProductDetails(ctx, userID, p.ID, details)
	require.NoError(t, err)
	assert.Equal(t, "Wheat flour", got.Name)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "baking", *got.CategoryID)
	assert.Equal(t, 2, got.Quantity)

	// A no-op update still succeeds.
	_, err = adapter.UpdateProductDetails(ctx, userID, p.ID, details)
	require.NoError(t, err)

	_, err = adapter.UpdateProductDetails(ctx, "someone-else", p.ID, details)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRestockCandidates(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	ctx := context.Background()

	userID, _ := seedProduct(t, adapter, "Pasta", domain.Batch{Quantity: 5, ExpiryDate: date("2030-01-01")})

	_, low := seedProduct(t, adapter, "Coffee", domain.Batch{Quantity: 1, ExpiryDate: date("2030-01-01")})
	_, expired := seedProduct(t, adapter, "Ham", domain.Batch{Quantity: 5, ExpiryDate: date("2024-01-01")})
	_, err := db.ExecContext(ctx, `UPDATE products SET user_id = ?, min_quantity = 1 WHERE id IN (?, ?)`, userID, low.ID, expired.ID)
	require.NoError(t, err)

	got, err := adapter.ListRestockCandidates(ctx, userID, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Coffee", got[0].Name)
	assert.Equal(t, "Ham", got[1].Name)

	all, err := adapter.ListProducts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Ham", all[0].Name)
}
