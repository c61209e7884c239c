package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bonus.v1.BonusPanel"

const (
	methodGetPanel         = "/" + ServiceName + "/GetPanel"
	methodGetFilterOptions = "/" + ServiceName + "/GetFilterOptions"
)

// BonusPanelServer serves the bonus panel. Requests and responses are
// google.protobuf.Struct messages.
type BonusPanelServer interface {
	GetPanel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetFilterOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(BonusPanelServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BonusPanelServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BonusPanelServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BonusPanelServiceDesc describes the service for grpc.Server.RegisterService.
var BonusPanelServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BonusPanelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPanel",
			Handler: unaryHandler(methodGetPanel, func(s BonusPanelServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.GetPanel(ctx, req)
			}),
		},
		{
			MethodName: "GetFilterOptions",
			Handler: unaryHandler(methodGetFilterOptions, func(s BonusPanelServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.GetFilterOptions(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bonus/v1/bonus_panel.proto",
}

func RegisterBonusPanelServer(s grpc.ServiceRegistrar, srv BonusPanelServer) {
	s.RegisterService(&BonusPanelServiceDesc, srv)
}

// BonusPanelClient calls a remote BonusPanel service.
type BonusPanelClient struct {
	cc grpc.ClientConnInterface
}

func NewBonusPanelClient(cc grpc.ClientConnInterface) *BonusPanelClient {
	return &BonusPanelClient{cc: cc}
}

func (c *BonusPanelClient) GetPanel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetPanel, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BonusPanelClient) GetFilterOptions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetFilterOptions, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
