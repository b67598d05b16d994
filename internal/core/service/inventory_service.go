package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

type InventoryService struct {
	store       port.Store
	idempotency port.IdempotencyRepository
	allocator   Allocator
	recomputer  Recomputer
	shelfLife   time.Duration
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func() string
}

type Option func(*InventoryService)

// WithIdempotency enables request-id deduplication for purchases.
func WithIdempotency(repo port.IdempotencyRepository) Option {
	return func(s *InventoryService) { s.idempotency = repo }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *InventoryService) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

// WithShelfLife overrides the expiry assumed for stock added without a date.
func WithShelfLife(d time.Duration) Option {
	return func(s *InventoryService) { s.shelfLife = d }
}

func NewInventoryService(store port.Store, opts ...Option) *InventoryService {
	s := &InventoryService{
		store:     store,
		shelfLife: domain.DefaultShelfLife,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.allocator = NewAllocator(s.shelfLife)
	return s
}

func (s *InventoryService) CreateProduct(ctx context.Context, userID string, in domain.NewProduct) (*domain.Product, error) {
	in, err := in.Validate()
	if err != nil {
		return nil, err
	}

	quantity := 1
	if in.Quantity != nil {
		quantity = *in.Quantity
	}

	now := s.now()
	product := domain.Product{
		ID:                s.newID(),
		UserID:            userID,
		Name:              in.Name,
		Obs:               in.Obs,
		CategoryID:        in.CategoryID,
		StorageLocationID: in.StorageLocationID,
		MinQuantity:       in.MinQuantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var created *domain.Product
	err = s.store.WithTx(ctx, func(tx port.Tx) error {
		if err := tx.InsertProduct(ctx, product); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		err := tx.InsertBatch(ctx, domain.Batch{
			ID:         s.newID(),
			ProductID:  product.ID,
			Quantity:   quantity,
			ExpiryDate: *in.ExpiryDate,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("insert seed batch: %w", err)
		}
		created, err = s.settle(ctx, tx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": created.ID,
		"quantity":   created.Quantity,
	}).Info("product created")
	return created, nil
}

func (s *InventoryService) GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	return s.store.GetProduct(ctx, userID, productID)
}

func (s *InventoryService) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.store.ListProducts(ctx, userID)
}

func (s *InventoryService) ListBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error) {
	return s.store.ListProductBatches(ctx, userID, productID)
}

// UpdateProduct edits metadata only; stock is never written here.
func (s *InventoryService) UpdateProduct(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error) {
	details, err := details.Validate()
	if err != nil {
		return nil, err
	}
	return s.store.UpdateProductDetails(ctx, userID, productID, details)
}

func (s *InventoryService) DeleteProduct(ctx context.Context, userID, productID string) error {
	if err := s.store.DeleteProduct(ctx, userID, productID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": productID}).Info("product deleted")
	return nil
}

// AddBatch adds stock at a given expiry date, merging into an existing batch
// with the same date.
func (s *InventoryService) AddBatch(ctx context.Context, userID, productID string, in domain.BatchInput) (*domain.Product, error) {
	in, err := in.Validate()
	if err != nil {
		return nil, err
	}
	return s.addBatch(ctx, userID, productID, in.Quantity, *in.ExpiryDate)
}

// Replenish records a purchase. A non-empty requestID is claimed first so a
// retried request is applied once.
func (s *InventoryService) Replenish(ctx context.Context, userID, productID, requestID string, in domain.PurchaseInput) (*domain.Product, error) {
	in, err := in.Validate()
	if err != nil {
		return nil, err
	}

	var key string
	if requestID != "" && s.idempotency != nil {
		key = fmt.Sprintf("purchase:%s:%s", userID, requestID)

		ok, err := s.idempotency.Claim(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	product, err := s.addBatch(ctx, userID, productID, in.Quantity, in.ExpiryOrDefault(s.now(), s.shelfLife))
	if err != nil {
		if key != "" {
			if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.log.WithError(relErr).WithField("request_id", requestID).Warn("release idempotency key")
			}
		}
		return nil, err
	}

	if key != "" {
		if err := s.idempotency.Complete(context.WithoutCancel(ctx), key); err != nil {
			s.log.WithError(err).WithField("request_id", requestID).Warn("complete idempotency key")
		}
	}
	return product, nil
}

func (s *InventoryService) addBatch(ctx context.Context, userID, productID string, quantity int, expiry time.Time) (*domain.Product, error) {
	product, err := s.withLockedProduct(ctx, userID, productID, func(tx port.Tx, p *domain.Product) error {
		if err := domain.CheckTotal(p.Quantity, quantity); err != nil {
			return err
		}

		batches, err := tx.LockBatches(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("lock batches: %w", err)
		}

		for _, b := range batches {
			if b.ExpiryDate.Equal(expiry) {
				if err := tx.SetBatchQuantity(ctx, b.ID, b.Quantity+quantity); err != nil {
					return fmt.Errorf("merge batch: %w", err)
				}
				return nil
			}
		}

		err = tx.InsertBatch(ctx, domain.Batch{
			ID:         s.newID(),
			ProductID:  p.ID,
			Quantity:   quantity,
			ExpiryDate: expiry,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"added":      quantity,
		"expiry":     expiry.Format(time.DateOnly),
	}).Info("batch added")
	return product, nil
}

// UpdateBatch sets a batch's quantity; zero or less deletes the batch.
func (s *InventoryService) UpdateBatch(ctx context.Context, userID, productID, batchID string, quantity int) (*domain.Product, error) {
	if quantity > domain.MaxQuantity {
		return nil, domain.CheckQuantity("quantity", quantity)
	}

	return s.withLockedBatch(ctx, userID, productID, batchID, func(tx port.Tx, p *domain.Product, b *domain.Batch) error {
		if quantity <= 0 {
			if err := tx.DeleteBatch(ctx, b.ID); err != nil {
				return fmt.Errorf("delete batch: %w", err)
			}
			return nil
		}
		if err := domain.CheckTotal(p.Quantity-b.Quantity, quantity); err != nil {
			return err
		}
		if err := tx.SetBatchQuantity(ctx, b.ID, quantity); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		return nil
	})
}

func (s *InventoryService) DeleteBatch(ctx context.Context, userID, productID, batchID string) (*domain.Product, error) {
	return s.withLockedBatch(ctx, userID, productID, batchID, func(tx port.Tx, _ *domain.Product, b *domain.Batch) error {
		if err := tx.DeleteBatch(ctx, b.ID); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		return nil
	})
}

// SetTotalQuantity moves the product's total to newTotal, consuming the
// earliest-expiring batches on a decrease and topping up the freshest batch
// on an increase.
func (s *InventoryService) SetTotalQuantity(ctx context.Context, userID, productID string, newTotal int) (*domain.Product, error) {
	if err := domain.CheckQuantity("quantity", newTotal); err != nil {
		return nil, err
	}

	var (
		product  *domain.Product
		previous int
	)
	err := s.store.WithTx(ctx, func(tx port.Tx) error {
		p, err := tx.LockProduct(ctx, userID, productID)
		if err != nil {
			return err
		}
		previous = p.Quantity
		if p.Quantity == newTotal {
			product = p
			return nil
		}

		if err := s.allocator.Allocate(ctx, tx, p.ID, p.Quantity, newTotal, s.now()); err != nil {
			return err
		}
		product, err = s.settle(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if previous != newTotal {
		s.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": productID,
			"from":       previous,
			"to":         product.Quantity,
		}).Info("quantity adjusted")
	}
	return product, nil
}

// ShoppingList returns the user's products that need restocking, by name.
func (s *InventoryService) ShoppingList(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.store.ListRestockCandidates(ctx, userID, s.now())
}

// withLockedProduct runs fn in a transaction holding the product's row lock,
// then purges empty batches and recomputes the aggregate before commit.
func (s *InventoryService) withLockedProduct(ctx context.Context, userID, productID string, fn func(tx port.Tx, p *domain.Product) error) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.WithTx(ctx, func(tx port.Tx) error {
		p, err := tx.LockProduct(ctx, userID, productID)
		if err != nil {
			return err
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		product, err = s.settle(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// withLockedBatch is withLockedProduct addressed through one of the
// product's batches.
func (s *InventoryService) withLockedBatch(ctx context.Context, userID, productID, batchID string, fn func(tx port.Tx, p *domain.Product, b *domain.Batch) error) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.WithTx(ctx, func(tx port.Tx) error {
		p, b, err := tx.LockBatchProduct(ctx, userID, batchID)
		if err != nil {
			return err
		}
		if p.ID != productID {
			return domain.NewNotFoundError("batch", batchID)
		}
		if err := fn(tx, p, b); err != nil {
			return err
		}
		product, err = s.settle(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"batch_id":   batchID,
	}).Info("batch changed")
	return product, nil
}

// settle closes every mutation: empty batches go first so the recomputed
// aggregate is the last write of the transaction.
func (s *InventoryService) settle(ctx context.Context, tx port.Tx, productID string) (*domain.Product, error) {
	if err := s.purgeEmptyBatches(ctx, tx, productID); err != nil {
		return nil, err
	}
	return s.recomputer.Recompute(ctx, tx, productID)
}

func (s *InventoryService) purgeEmptyBatches(ctx context.Context, tx port.Tx, productID string) error {
	if err := tx.PurgeEmptyBatches(ctx, productID); err != nil {
		return fmt.Errorf("purge empty batches: %w", err)
	}
	return nil
}
