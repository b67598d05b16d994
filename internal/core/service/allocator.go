package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

// Allocator spreads a change of a product's total quantity over its batches.
// Decreases consume batches in Consume order; increases go entirely to the
// first batch in Replenish order.
type Allocator struct {
	Consume          domain.BatchOrder
	Replenish        domain.BatchOrder
	DefaultShelfLife time.Duration
}

func NewAllocator(shelfLife time.Duration) Allocator {
	return Allocator{
		Consume:          domain.ByExpiryAscending,
		Replenish:        domain.ByExpiryDescending,
		DefaultShelfLife: shelfLife,
	}
}

type BatchUpdate struct {
	BatchID  string
	Quantity int
}

// Plan lists the batch writes needed to reach a requested total.
type Plan struct {
	Inserts []domain.Batch
	Updates []BatchUpdate
	Deletes []string
}

func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Plan computes the writes for moving from currentTotal to requestedTotal.
// A decrease larger than the stock held in batches removes every batch.
func (a Allocator) Plan(productID string, batches []domain.Batch, currentTotal, requestedTotal int, now time.Time) Plan {
	var plan Plan

	delta := requestedTotal - currentTotal
	switch {
	case delta == 0:
		return plan

	case delta > 0:
		if len(batches) == 0 {
			plan.Inserts = append(plan.Inserts, domain.Batch{
				ID:         uuid.NewString(),
				ProductID:  productID,
				Quantity:   delta,
				ExpiryDate: domain.Date(now).Add(a.DefaultShelfLife),
				CreatedAt:  now,
			})
			return plan
		}
		freshest := a.Replenish.Sorted(batches)[0]
		plan.Updates = append(plan.Updates, BatchUpdate{
			BatchID:  freshest.ID,
			Quantity: freshest.Quantity + delta,
		})
		return plan
	}

	need := -delta
	for _, b := range a.Consume.Sorted(batches) {
		if need == 0 {
			break
		}
		if b.Quantity > need {
			plan.Updates = append(plan.Updates, BatchUpdate{BatchID: b.ID, Quantity: b.Quantity - need})
			need = 0
			break
		}
		plan.Deletes = append(plan.Deletes, b.ID)
		if b.Quantity > 0 {
			need -= b.Quantity
		}
	}
	return plan
}

// Allocate locks the product's batches and applies the plan for the
// requested total. The caller recomputes the aggregate afterwards.
func (a Allocator) Allocate(ctx context.Context, tx port.Tx, productID string, currentTotal, requestedTotal int, now time.Time) error {
	if requestedTotal == currentTotal {
		return nil
	}

	batches, err := tx.LockBatches(ctx, productID)
	if err != nil {
		return fmt.Errorf("lock batches: %w", err)
	}

	plan := a.Plan(productID, batches, currentTotal, requestedTotal, now)
	for _, id := range plan.Deletes {
		if err := tx.DeleteBatch(ctx, id); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
	}
	for _, u := range plan.Updates {
		if err := tx.SetBatchQuantity(ctx, u.BatchID, u.Quantity); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
	}
	for _, b := range plan.Inserts {
		if err := tx.InsertBatch(ctx, b); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	}
	return nil
}
