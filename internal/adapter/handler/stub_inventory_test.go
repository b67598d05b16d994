package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/pantry/internal/core/domain"
)

var errDatabase = errors.New("dial tcp 10.0.0.5:3306: connection refused")

// Mock Inventory: records the last call and returns canned results.
type stubInventory struct {
	product  *domain.Product
	products []domain.Product
	batches  []domain.Batch
	err      error

	userID    string
	productID string
	batchID   string
	requestID string
	quantity  int
	newProd   domain.NewProduct
	details   domain.ProductDetails
	batchIn   domain.BatchInput
	purchase  domain.PurchaseInput
}

func sampleProduct() *domain.Product {
	expiry := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:          "p-1",
		UserID:      "u-1",
		Name:        "Milk",
		MinQuantity: 1,
		Quantity:    3,
		ExpiryDate:  &expiry,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func (s *stubInventory) CreateProduct(ctx context.Context, userID string, in domain.NewProduct) (*domain.Product, error) {
	s.userID, s.newProd = userID, in
	return s.product, s.err
}

func (s *stubInventory) GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	s.userID, s.productID = userID, productID
	return s.product, s.err
}

func (s *stubInventory) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	s.userID = userID
	return s.products, s.err
}

func (s *stubInventory) UpdateProduct(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error) {
	s.userID, s.productID, s.details = userID, productID, details
	return s.product, s.err
}

func (s *stubInventory) DeleteProduct(ctx context.Context, userID, productID string) error {
	s.userID, s.productID = userID, productID
	return s.err
}

func (s *stubInventory) ListBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error) {
	s.userID, s.productID = userID, productID
	return s.batches, s.err
}

func (s *stubInventory) AddBatch(ctx context.Context, userID, productID string, in domain.BatchInput) (*domain.Product, error) {
	s.userID, s.productID, s.batchIn = userID, productID, in
	return s.product, s.err
}

func (s *stubInventory) UpdateBatch(ctx context.Context, userID, productID, batchID string, quantity int) (*domain.Product, error) {
	s.userID, s.productID, s.batchID, s.quantity = userID, productID, batchID, quantity
	return s.product, s.err
}

func (s *stubInventory) DeleteBatch(ctx context.Context, userID, productID, batchID string) (*domain.Product, error) {
	s.userID, s.productID, s.batchID = userID, productID, batchID
	return s.product, s.err
}

func (s *stubInventory) SetTotalQuantity(ctx context.Context, userID, productID string, newTotal int) (*domain.Product, error) {
	s.userID, s.productID, s.quantity = userID, productID, newTotal
	return s.product, s.err
}

func (s *stubInventory) Replenish(ctx context.Context, userID, productID, requestID string, in domain.PurchaseInput) (*domain.Product, error) {
	s.userID, s.productID, s.requestID, s.purchase = userID, productID, requestID, in
	return s.product, s.err
}

func (s *stubInventory) ShoppingList(ctx context.Context, userID string) ([]domain.Product, error) {
	s.userID = userID
	return s.products, s.err
}

func intPtr(n int) *int { return &n }
