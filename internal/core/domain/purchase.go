package domain

import "time"

// DefaultShelfLife is the expiry assumed for stock added without a date.
const DefaultShelfLife = 30 * 24 * time.Hour

// PurchaseInput replenishes a product after a purchase. ExpiryDate may be
// nil, in which case the default shelf life applies.
type PurchaseInput struct {
	Quantity   int
	ExpiryDate *time.Time
}

func (in PurchaseInput) Validate() (PurchaseInput, error) {
	if in.Quantity <= 0 {
		return in, NewValidationError("quantity", "purchased quantity must be positive")
	}
	if err := CheckQuantity("quantity", in.Quantity); err != nil {
		return in, err
	}
	if in.ExpiryDate != nil {
		expiry := Date(*in.ExpiryDate)
		in.ExpiryDate = &expiry
	}
	return in, nil
}

// ExpiryOrDefault resolves the batch expiry for a purchase made at now.
func (in PurchaseInput) ExpiryOrDefault(now time.Time, shelfLife time.Duration) time.Time {
	if in.ExpiryDate != nil {
		return Date(*in.ExpiryDate)
	}
	return Date(now).Add(shelfLife)
}
