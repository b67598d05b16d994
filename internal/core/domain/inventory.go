package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxQuantity is the largest stock count a product or batch can hold.
const MaxQuantity = math.MaxInt32

// CheckQuantity rejects a count outside [0, MaxQuantity].
func CheckQuantity(field string, n int) error {
	if n < 0 {
		return NewValidationError(field, strings.ReplaceAll(field, "_", " ")+" must not be negative")
	}
	if n > MaxQuantity {
		return NewValidationError(field, fmt.Sprintf("%s must not exceed %d", strings.ReplaceAll(field, "_", " "), MaxQuantity))
	}
	return nil
}

// CheckTotal rejects a change that would leave a product holding more than
// MaxQuantity units.
func CheckTotal(current, delta int) error {
	if delta > MaxQuantity-current {
		return NewValidationError("quantity", fmt.Sprintf("total quantity must not exceed %d", MaxQuantity))
	}
	return nil
}

// Product is a user's pantry item. Quantity and ExpiryDate are derived from
// the product's batches and are only ever written by the aggregate recomputer.
type Product struct {
	ID                string
	UserID            string
	Name              string
	Obs               string
	CategoryID        *string
	StorageLocationID *string
	MinQuantity       int
	Quantity          int
	ExpiryDate        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NeedsRestock reports whether the product belongs on the shopping list:
// stock at or below the minimum, or an earliest batch that already expired.
func (p Product) NeedsRestock(now time.Time) bool {
	if p.Quantity <= p.MinQuantity {
		return true
	}
	return p.ExpiryDate != nil && p.ExpiryDate.Before(now)
}

// NewProduct carries the fields accepted when a product is created.
type NewProduct struct {
	Name              string
	Obs               string
	Quantity          *int
	MinQuantity       int
	ExpiryDate        *time.Time
	CategoryID        *string
	StorageLocationID *string
}

// Validate checks required fields and returns the normalised input.
func (n NewProduct) Validate() (NewProduct, error) {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return n, NewValidationError("name", "name is required")
	}
	if n.ExpiryDate == nil || n.ExpiryDate.IsZero() {
		return n, NewValidationError("expiry_date", "expiry date is required")
	}
	if n.Quantity != nil {
		if err := CheckQuantity("quantity", *n.Quantity); err != nil {
			return n, err
		}
	}
	if err := CheckQuantity("min_quantity", n.MinQuantity); err != nil {
		return n, err
	}
	expiry := Date(*n.ExpiryDate)
	n.ExpiryDate = &expiry
	return n, nil
}

// ProductDetails is the metadata that may be edited without touching stock.
type ProductDetails struct {
	Name              string
	Obs               string
	MinQuantity       int
	CategoryID        *string
	StorageLocationID *string
}

func (d ProductDetails) Validate() (ProductDetails, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, NewValidationError("name", "name is required")
	}
	if err := CheckQuantity("min_quantity", d.MinQuantity); err != nil {
		return d, err
	}
	return d, nil
}

// Aggregate is the denormalised stock summary cached on a product.
type Aggregate struct {
	Quantity   int
	ExpiryDate *time.Time
}

// ComputeAggregate sums batch quantities and picks the earliest expiry among
// batches that still hold stock.
func ComputeAggregate(batches []Batch) Aggregate {
	var agg Aggregate
	for _, b := range batches {
		agg.Quantity += b.Quantity
		if b.Quantity <= 0 {
			continue
		}
		if agg.ExpiryDate == nil || b.ExpiryDate.Before(*agg.ExpiryDate) {
			expiry := b.ExpiryDate
			agg.ExpiryDate = &expiry
		}
	}
	return agg
}
