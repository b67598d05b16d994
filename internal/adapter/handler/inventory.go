package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/service"
)

// Inventory is the use-case surface served by both transports.
type Inventory interface {
	CreateProduct(ctx context.Context, userID string, in domain.NewProduct) (*domain.Product, error)
	GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, userID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error)
	DeleteProduct(ctx context.Context, userID, productID string) error
	ListBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error)
	AddBatch(ctx context.Context, userID, productID string, in domain.BatchInput) (*domain.Product, error)
	UpdateBatch(ctx context.Context, userID, productID, batchID string, quantity int) (*domain.Product, error)
	DeleteBatch(ctx context.Context, userID, productID, batchID string) (*domain.Product, error)
	SetTotalQuantity(ctx context.Context, userID, productID string, newTotal int) (*domain.Product, error)
	Replenish(ctx context.Context, userID, productID, requestID string, in domain.PurchaseInput) (*domain.Product, error)
	ShoppingList(ctx context.Context, userID string) ([]domain.Product, error)
}

var _ Inventory = (*service.InventoryService)(nil)

const internalErrorMessage = "internal error"

// classify maps a service error to its HTTP status, gRPC code and the
// message safe to return to the caller.
func classify(err error) (int, codes.Code, string) {
	var notFound *domain.NotFoundError
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, codes.InvalidArgument, err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, codes.NotFound, notFound.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codes.NotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, codes.AlreadyExists, "duplicate request"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, codes.Unauthenticated, "missing user id"
	default:
		return http.StatusInternalServerError, codes.Internal, internalErrorMessage
	}
}

func logFailure(log logrus.FieldLogger, err error, fields logrus.Fields) {
	if code, _, _ := classify(err); code == http.StatusInternalServerError {
		log.WithFields(fields).WithError(err).Error("request failed")
	}
}
