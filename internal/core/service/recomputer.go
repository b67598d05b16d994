package service

import (
	"context"
	"fmt"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

// Recomputer refreshes a product's cached quantity and expiry from its
// batches. It must run inside the mutating transaction, after the last
// batch write.
type Recomputer struct{}

func (Recomputer) Recompute(ctx context.Context, tx port.Tx, productID string) (*domain.Product, error) {
	batches, err := tx.ListBatches(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	product, err := tx.WriteAggregate(ctx, productID, domain.ComputeAggregate(batches))
	if err != nil {
		return nil, fmt.Errorf("write aggregate: %w", err)
	}
	return product, nil
}
