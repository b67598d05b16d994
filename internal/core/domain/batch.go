package domain

import (
	"sort"
	"time"
)

// Batch is a dated lot of a product; the true unit of stock.
type Batch struct {
	ID         string
	ProductID  string
	Quantity   int
	ExpiryDate time.Time
	CreatedAt  time.Time
}

// BatchInput is an explicit batch addition.
type BatchInput struct {
	Quantity   int
	ExpiryDate *time.Time
}

func (in BatchInput) Validate() (BatchInput, error) {
	if err := CheckQuantity("quantity", in.Quantity); err != nil {
		return in, err
	}
	if in.ExpiryDate == nil || in.ExpiryDate.IsZero() {
		return in, NewValidationError("expiry_date", "expiry date is required")
	}
	expiry := Date(*in.ExpiryDate)
	in.ExpiryDate = &expiry
	return in, nil
}

// Date truncates t to its calendar date at midnight UTC. Expiry dates are
// compared and stored with day precision.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BatchOrder is a named sort key over batches.
type BatchOrder struct {
	Name string
	less func(a, b Batch) bool
}

// Sort orders batches in place.
func (o BatchOrder) Sort(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return o.less(batches[i], batches[j])
	})
}

// Sorted returns an ordered copy, leaving the input untouched.
func (o BatchOrder) Sorted(batches []Batch) []Batch {
	out := make([]Batch, len(batches))
	copy(out, batches)
	o.Sort(out)
	return out
}

var (
	// ByExpiryAscending puts the earliest-expiring batch first (FEFO).
	ByExpiryAscending = BatchOrder{Name: "expiry_asc", less: func(a, b Batch) bool {
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		return tieBreak(a, b)
	}}

	// ByExpiryDescending puts the freshest batch first.
	ByExpiryDescending = BatchOrder{Name: "expiry_desc", less: func(a, b Batch) bool {
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.After(b.ExpiryDate)
		}
		return tieBreak(a, b)
	}}
)

// tieBreak keeps the order total: older batches first, then by id.
func tieBreak(a, b Batch) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
