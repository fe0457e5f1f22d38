package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName полное имя gRPC-сервиса витрины.
const ServiceName = "farmstand.v1.Storefront"

const (
	MethodListStock    = "/" + ServiceName + "/ListStock"
	MethodGetCart      = "/" + ServiceName + "/GetCart"
	MethodAddItem      = "/" + ServiceName + "/AddItem"
	MethodRemoveItem   = "/" + ServiceName + "/RemoveItem"
	MethodClearCart    = "/" + ServiceName + "/ClearCart"
	MethodSubmitOrder  = "/" + ServiceName + "/SubmitOrder"
	MethodRefreshStock = "/" + ServiceName + "/RefreshStock"
)

// StorefrontServer серверная часть farmstand.v1.Storefront.
// Сообщения описаны well-known типами, поэтому сгенерированный код не нужен.
type StorefrontServer interface {
	ListStock(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SubmitOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshStock(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterStorefrontServer регистрирует реализацию на сервере.
func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&StorefrontServiceDesc, srv)
}

// StorefrontServiceDesc описание сервиса для grpc.Server и reflection-клиентов.
var StorefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListStock", Handler: unaryHandler(MethodListStock, newEmpty, StorefrontServer.ListStock)},
		{MethodName: "GetCart", Handler: unaryHandler(MethodGetCart, newEmpty, StorefrontServer.GetCart)},
		{MethodName: "AddItem", Handler: unaryHandler(MethodAddItem, newStruct, StorefrontServer.AddItem)},
		{MethodName: "RemoveItem", Handler: unaryHandler(MethodRemoveItem, newStruct, StorefrontServer.RemoveItem)},
		{MethodName: "ClearCart", Handler: unaryHandler(MethodClearCart, newEmpty, StorefrontServer.ClearCart)},
		{MethodName: "SubmitOrder", Handler: unaryHandler(MethodSubmitOrder, newStruct, StorefrontServer.SubmitOrder)},
		{MethodName: "RefreshStock", Handler: unaryHandler(MethodRefreshStock, newEmpty, StorefrontServer.RefreshStock)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "farmstand/v1/storefront.proto",
}

func newEmpty() *emptypb.Empty   { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }

// unaryHandler повторяет то, что protoc-gen-go-grpc генерирует для каждого unary-метода.
func unaryHandler[Req proto.Message](
	fullMethod string,
	newReq func() Req,
	call func(StorefrontServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StorefrontServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StorefrontServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
