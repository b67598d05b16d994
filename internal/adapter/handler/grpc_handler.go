package handler

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pantry/internal/adapter/handler/rpc"
	"github.com/rl1809/pantry/internal/core/domain"
)

// UserIDMetadataKey carries the acting user on every gRPC call.
const UserIDMetadataKey = "x-user-id"

var _ rpc.InventoryServer = (*GRPCHandler)(nil)

type GRPCHandler struct {
	inventory Inventory
	log       logrus.FieldLogger
}

func NewGRPCHandler(inventory Inventory, log logrus.FieldLogger) *GRPCHandler {
	return &GRPCHandler{inventory: inventory, log: log}
}

// UnaryInterceptor rejects calls without a user id and turns service errors
// into status codes.
func (h *GRPCHandler) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	ids := md.Get(UserIDMetadataKey)
	if len(ids) == 0 || ids[0] == "" {
		return nil, h.toStatus(info.FullMethod, domain.ErrUnauthenticated)
	}

	resp, err := handler(context.WithValue(ctx, userIDKey{}, ids[0]), req)
	if err != nil {
		return nil, h.toStatus(info.FullMethod, err)
	}
	return resp, nil
}

func (h *GRPCHandler) toStatus(method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	_, code, message := classify(err)
	logFailure(h.log, err, logrus.Fields{"method": method})
	return status.Error(code, message)
}

func grpcUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func productResponse(p *domain.Product, err error) (*rpc.ProductResponse, error) {
	if err != nil {
		return nil, err
	}
	return &rpc.ProductResponse{Product: rpc.FromProduct(*p)}, nil
}

func productsResponse(products []domain.Product, err error) (*rpc.ProductsResponse, error) {
	if err != nil {
		return nil, err
	}
	return &rpc.ProductsResponse{Products: rpc.FromProducts(products)}, nil
}

func (h *GRPCHandler) CreateProduct(ctx context.Context, req *rpc.CreateProductRequest) (*rpc.ProductResponse, error) {
	in, err := req.Domain()
	if err != nil {
		return nil, err
	}
	return productResponse(h.inventory.CreateProduct(ctx, grpcUserID(ctx), in))
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *rpc.ProductRequest) (*rpc.ProductResponse, error) {
	return productResponse(h.inventory.GetProduct(ctx, grpcUserID(ctx), req.ProductID))
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *rpc.ListProductsRequest) (*rpc.ProductsResponse, error) {
	return productsResponse(h.inventory.ListProducts(ctx, grpcUserID(ctx)))
}

func (h *GRPCHandler) UpdateProduct(ctx context.Context, req *rpc.UpdateProductRequest) (*rpc.ProductResponse, error) {
	return productResponse(h.inventory.UpdateProduct(ctx, grpcUserID(ctx), req.ProductID, req.Domain()))
}

func (h *GRPCHandler) DeleteProduct(ctx context.Context, req *rpc.ProductRequest) (*rpc.DeleteResponse, error) {
	if err := h.inventory.DeleteProduct(ctx, grpcUserID(ctx), req.ProductID); err != nil {
		return nil, err
	}
	return &rpc.DeleteResponse{Message: "product deleted"}, nil
}

func (h *GRPCHandler) ListBatches(ctx context.Context, req *rpc.ProductRequest) (*rpc.BatchesResponse, error) {
	batches, err := h.inventory.ListBatches(ctx, grpcUserID(ctx), req.ProductID)
	if err != nil {
		return nil, err
	}
	return &rpc.BatchesResponse{Batches: rpc.FromBatches(batches)}, nil
}

func (h *GRPCHandler) AddBatch(ctx context.Context, req *rpc.AddBatchRequest) (*rpc.ProductResponse, error) {
	in, err := req.Domain()
	if err != nil {
		return nil, err
	}
	return productResponse(h.inventory.AddBatch(ctx, grpcUserID(ctx), req.ProductID, in))
}

func (h *GRPCHandler) UpdateBatch(ctx context.Context, req *rpc.UpdateBatchRequest) (*rpc.ProductResponse, error) {
	quantity, err := req.Domain()
	if err != nil {
		return nil, err
	}
	return productResponse(h.inventory.UpdateBatch(ctx, grpcUserID(ctx), req.ProductID, req.BatchID, quantity))
}

func (h *GRPCHandler) DeleteBatch(ctx context.Context, req *rpc.BatchRequest) (*rpc.ProductResponse, error) {
	return productResponse(h.inventory.DeleteBatch(ctx, grpcUserID(ctx), req.ProductID, req.BatchID))
}

func (h *GRPCHandler) SetTotalQuantity(ctx context.Context, req *rpc.SetTotalQuantityRequest) (*rpc.ProductResponse, error) {
	quantity, err := req.Domain()
	if err != nil {
		return nil, err
	}
	return productResponse(h.inventory.SetTotalQuantity(ctx, grpcUserID(ctx), req.ProductID, quantity))
}

func (h *GRPCHandler) Replenish(ctx context.Context, req *rpc.ReplenishRequest) (*rpc.ProductResponse, error) {
	in, err := req.Domain()
	if err != nil {
		return nil, err
	}
	return productResponse(h.inventory.Replenish(ctx, grpcUserID(ctx), req.ProductID, req.RequestID, in))
}

func (h *GRPCHandler) ShoppingList(ctx context.Context, req *rpc.ShoppingListRequest) (*rpc.ProductsResponse, error) {
	return productsResponse(h.inventory.ShoppingList(ctx, grpcUserID(ctx)))
}
