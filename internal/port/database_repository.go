package port

import (
	"context"
	"time"

	"github.com/rl1809/pantry/internal/core/domain"
)

type Store interface {
	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on any error or panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// GetProduct reads a product owned by userID, domain.ErrNotFound otherwise
	GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error)

	// ListProducts returns the user's products by earliest expiry, undated last
	ListProducts(ctx context.Context, userID string) ([]domain.Product, error)

	// ListProductBatches returns batches of an owned product by expiry ascending
	ListProductBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error)

	// ListRestockCandidates returns products at or below their minimum or
	// holding stock that expired before now, ordered by name
	ListRestockCandidates(ctx context.Context, userID string, now time.Time) ([]domain.Product, error)

	// UpdateProductDetails changes metadata only, scoped to (productID, userID)
	UpdateProductDetails(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error)

	// DeleteProduct removes a product and, by cascade, its batches
	DeleteProduct(ctx context.Context, userID, productID string) error
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// InsertProduct stores a new product with an empty aggregate
	InsertProduct(ctx context.Context, product domain.Product) error

	// LockProduct reads the product with an exclusive row lock
	LockProduct(ctx context.Context, userID, productID string) (*domain.Product, error)

	// LockBatchProduct locks the product owning batchID, returning both
	LockBatchProduct(ctx context.Context, userID, batchID string) (*domain.Product, *domain.Batch, error)

	// ListBatches reads the product's batches, ordered by expiry ascending
	ListBatches(ctx context.Context, productID string) ([]domain.Batch, error)

	// LockBatches reads the product's batches with exclusive row locks
	LockBatches(ctx context.Context, productID string) ([]domain.Batch, error)

	InsertBatch(ctx context.Context, batch domain.Batch) error
	SetBatchQuantity(ctx context.Context, batchID string, quantity int) error
	DeleteBatch(ctx context.Context, batchID string) error

	// PurgeEmptyBatches deletes every batch of the product with quantity <= 0
	PurgeEmptyBatches(ctx context.Context, productID string) error

	// WriteAggregate stores the derived quantity and expiry on the product.
	// Only the aggregate recomputer calls it.
	WriteAggregate(ctx context.Context, productID string, aggregate domain.Aggregate) (*domain.Product, error)
}
