package rpc

import (
	"time"

	"github.com/rl1809/pantry/internal/core/domain"
)

type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Obs               string    `json:"obs,omitempty"`
	CategoryID        *string   `json:"category_id,omitempty"`
	StorageLocationID *string   `json:"storage_location_id,omitempty"`
	MinQuantity       int       `json:"min_quantity"`
	Quantity          int       `json:"quantity"`
	ExpiryDate        *string   `json:"expiry_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Batch struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	ExpiryDate string    `json:"expiry_date"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateProductRequest struct {
	Name              string  `json:"name"`
	Obs               string  `json:"obs,omitempty"`
	Quantity          *int    `json:"quantity,omitempty"`
	MinQuantity       int     `json:"min_quantity,omitempty"`
	ExpiryDate        string  `json:"expiry_date"`
	CategoryID        *string `json:"category_id,omitempty"`
	StorageLocationID *string `json:"storage_location_id,omitempty"`
}

type UpdateProductRequest struct {
	ProductID         string  `json:"product_id,omitempty"`
	Name              string  `json:"name"`
	Obs               string  `json:"obs,omitempty"`
	MinQuantity       int     `json:"min_quantity,omitempty"`
	CategoryID        *string `json:"category_id,omitempty"`
	StorageLocationID *string `json:"storage_location_id,omitempty"`
}

type ProductRequest struct {
	ProductID string `json:"product_id"`
}

type ListProductsRequest struct{}

type ShoppingListRequest struct{}

type AddBatchRequest struct {
	ProductID  string `json:"product_id,omitempty"`
	Quantity   *int   `json:"quantity"`
	ExpiryDate string `json:"expiry_date"`
}

type UpdateBatchRequest struct {
	ProductID string `json:"product_id,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
	Quantity  *int   `json:"quantity"`
}

type BatchRequest struct {
	ProductID string `json:"product_id"`
	BatchID   string `json:"batch_id"`
}

type SetTotalQuantityRequest struct {
	ProductID string `json:"product_id,omitempty"`
	Quantity  *int   `json:"quantity"`
}

type ReplenishRequest struct {
	ProductID  string `json:"product_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Quantity   *int   `json:"quantity"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

type ProductResponse struct {
	Product Product `json:"product"`
}

type ProductsResponse struct {
	Products []Product `json:"products"`
}

type BatchesResponse struct {
	Batches []Batch `json:"batches"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

func FromProduct(p domain.Product) Product {
	out := Product{
		ID:                p.ID,
		Name:              p.Name,
		Obs:               p.Obs,
		CategoryID:        p.CategoryID,
		StorageLocationID: p.StorageLocationID,
		MinQuantity:       p.MinQuantity,
		Quantity:          p.Quantity,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.ExpiryDate != nil {
		expiry := p.ExpiryDate.Format(time.DateOnly)
		out.ExpiryDate = &expiry
	}
	return out
}

func FromProducts(products []domain.Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, FromProduct(p))
	}
	return out
}

func FromBatches(batches []domain.Batch) []Batch {
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, Batch{
			ID:         b.ID,
			ProductID:  b.ProductID,
			Quantity:   b.Quantity,
			ExpiryDate: b.ExpiryDate.Format(time.DateOnly),
			CreatedAt:  b.CreatedAt,
		})
	}
	return out
}

// ParseDate reads a YYYY-MM-DD date. An empty string yields nil.
func ParseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, domain.NewValidationError(field, field+" must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func (r CreateProductRequest) Domain() (domain.NewProduct, error) {
	expiry, err := ParseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return domain.NewProduct{}, err
	}
	return domain.NewProduct{
		Name:              r.Name,
		Obs:               r.Obs,
		Quantity:          r.Quantity,
		MinQuantity:       r.MinQuantity,
		ExpiryDate:        expiry,
		CategoryID:        r.CategoryID,
		StorageLocationID: r.StorageLocationID,
	}, nil
}

func (r UpdateProductRequest) Domain() domain.ProductDetails {
	return domain.ProductDetails{
		Name:              r.Name,
		Obs:               r.Obs,
		MinQuantity:       r.MinQuantity,
		CategoryID:        r.CategoryID,
		StorageLocationID: r.StorageLocationID,
	}
}

// requiredQuantity rejects an absent quantity, which would otherwise decode
// as zero and empty the product.
func requiredQuantity(q *int) (int, error) {
	if q == nil {
		return 0, domain.NewValidationError("quantity", "quantity is required")
	}
	return *q, nil
}

func (r AddBatchRequest) Domain() (domain.BatchInput, error) {
	quantity, err := requiredQuantity(r.Quantity)
	if err != nil {
		return domain.BatchInput{}, err
	}
	expiry, err := ParseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return domain.BatchInput{}, err
	}
	return domain.BatchInput{Quantity: quantity, ExpiryDate: expiry}, nil
}

func (r UpdateBatchRequest) Domain() (int, error) {
	return requiredQuantity(r.Quantity)
}

func (r SetTotalQuantityRequest) Domain() (int, error) {
	return requiredQuantity(r.Quantity)
}

func (r ReplenishRequest) Domain() (domain.PurchaseInput, error) {
	quantity, err := requiredQuantity(r.Quantity)
	if err != nil {
		return domain.PurchaseInput{}, err
	}
	expiry, err := ParseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return domain.PurchaseInput{}, err
	}
	return domain.PurchaseInput{Quantity: quantity, ExpiryDate: expiry}, nil
}
