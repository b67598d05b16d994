package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "pantry.v1.Inventory"

const (
	MethodCreateProduct    = "CreateProduct"
	MethodGetProduct       = "GetProduct"
	MethodListProducts     = "ListProducts"
	MethodUpdateProduct    = "UpdateProduct"
	MethodDeleteProduct    = "DeleteProduct"
	MethodListBatches      = "ListBatches"
	MethodAddBatch         = "AddBatch"
	MethodUpdateBatch      = "UpdateBatch"
	MethodDeleteBatch      = "DeleteBatch"
	MethodSetTotalQuantity = "SetTotalQuantity"
	MethodReplenish        = "Replenish"
	MethodShoppingList     = "ShoppingList"
)

// InventoryServer is the server API for the pantry.v1.Inventory service.
type InventoryServer interface {
	CreateProduct(context.Context, *CreateProductRequest) (*ProductResponse, error)
	GetProduct(context.Context, *ProductRequest) (*ProductResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ProductsResponse, error)
	UpdateProduct(context.Context, *UpdateProductRequest) (*ProductResponse, error)
	DeleteProduct(context.Context, *ProductRequest) (*DeleteResponse, error)
	ListBatches(context.Context, *ProductRequest) (*BatchesResponse, error)
	AddBatch(context.Context, *AddBatchRequest) (*ProductResponse, error)
	UpdateBatch(context.Context, *UpdateBatchRequest) (*ProductResponse, error)
	DeleteBatch(context.Context, *BatchRequest) (*ProductResponse, error)
	SetTotalQuantity(context.Context, *SetTotalQuantityRequest) (*ProductResponse, error)
	Replenish(context.Context, *ReplenishRequest) (*ProductResponse, error)
	ShoppingList(context.Context, *ShoppingListRequest) (*ProductsResponse, error)
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

// unary builds a MethodDesc that decodes Req and dispatches to call.
func unary[Req any, Resp any](name string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InventoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(InventoryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateProduct, InventoryServer.CreateProduct),
		unary(MethodGetProduct, InventoryServer.GetProduct),
		unary(MethodListProducts, InventoryServer.ListProducts),
		unary(MethodUpdateProduct, InventoryServer.UpdateProduct),
		unary(MethodDeleteProduct, InventoryServer.DeleteProduct),
		unary(MethodListBatches, InventoryServer.ListBatches),
		unary(MethodAddBatch, InventoryServer.AddBatch),
		unary(MethodUpdateBatch, InventoryServer.UpdateBatch),
		unary(MethodDeleteBatch, InventoryServer.DeleteBatch),
		unary(MethodSetTotalQuantity, InventoryServer.SetTotalQuantity),
		unary(MethodReplenish, InventoryServer.Replenish),
		unary(MethodShoppingList, InventoryServer.ShoppingList),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/inventory.proto",
}

// InventoryClient calls pantry.v1.Inventory with the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) CreateProduct(ctx context.Context, in *CreateProductRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodCreateProduct, in, opts)
}

func (c *InventoryClient) GetProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodGetProduct, in, opts)
}

func (c *InventoryClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ProductsResponse, error) {
	return invoke[ProductsResponse](ctx, c.cc, MethodListProducts, in, opts)
}

func (c *InventoryClient) UpdateProduct(ctx context.Context, in *UpdateProductRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodUpdateProduct, in, opts)
}

func (c *InventoryClient) DeleteProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, MethodDeleteProduct, in, opts)
}

func (c *InventoryClient) ListBatches(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*BatchesResponse, error) {
	return invoke[BatchesResponse](ctx, c.cc, MethodListBatches, in, opts)
}

func (c *InventoryClient) AddBatch(ctx context.Context, in *AddBatchRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodAddBatch, in, opts)
}

func (c *InventoryClient) UpdateBatch(ctx context.Context, in *UpdateBatchRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodUpdateBatch, in, opts)
}

func (c *InventoryClient) DeleteBatch(ctx context.Context, in *BatchRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodDeleteBatch, in, opts)
}

func (c *InventoryClient) SetTotalQuantity(ctx context.Context, in *SetTotalQuantityRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodSetTotalQuantity, in, opts)
}

func (c *InventoryClient) Replenish(ctx context.Context, in *ReplenishRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodReplenish, in, opts)
}

func (c *InventoryClient) ShoppingList(ctx context.Context, in *ShoppingListRequest, opts ...grpc.CallOption) (*ProductsResponse, error) {
	return invoke[ProductsResponse](ctx, c.cc, MethodShoppingList, in, opts)
}
