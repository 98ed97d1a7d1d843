package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "shortener.MappingService"

// Full method names, as seen by interceptors.
const (
	MappingService_Shorten_FullMethodName  = "/" + ServiceName + "/Shorten"
	MappingService_Resolve_FullMethodName  = "/" + ServiceName + "/Resolve"
	MappingService_ListMine_FullMethodName = "/" + ServiceName + "/ListMine"
	MappingService_Update_FullMethodName   = "/" + ServiceName + "/Update"
	MappingService_Delete_FullMethodName   = "/" + ServiceName + "/Delete"
)

// MappingServiceServer is the server API for MappingService service.
type MappingServiceServer interface {
	Shorten(context.Context, *ShortenRequest) (*ShortenResponse, error)
	Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error)
	ListMine(context.Context, *emptypb.Empty) (*ListMineResponse, error)
	Update(context.Context, *UpdateRequest) (*UpdateResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
}

// UnimplementedMappingServiceServer can be embedded to have forward compatible implementations.
type UnimplementedMappingServiceServer struct{}

func (UnimplementedMappingServiceServer) Shorten(context.Context, *ShortenRequest) (*ShortenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Shorten not implemented")
}
func (UnimplementedMappingServiceServer) Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Resolve not implemented")
}
func (UnimplementedMappingServiceServer) ListMine(context.Context, *emptypb.Empty) (*ListMineResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMine not implemented")
}
func (UnimplementedMappingServiceServer) Update(context.Context, *UpdateRequest) (*UpdateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedMappingServiceServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}

func RegisterMappingServiceServer(s grpc.ServiceRegistrar, srv MappingServiceServer) {
	s.RegisterService(&MappingService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(MappingServiceServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MappingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MappingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var MappingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MappingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Shorten",
			Handler:    unaryHandler(MappingService_Shorten_FullMethodName, MappingServiceServer.Shorten),
		},
		{
			MethodName: "Resolve",
			Handler:    unaryHandler(MappingService_Resolve_FullMethodName, MappingServiceServer.Resolve),
		},
		{
			MethodName: "ListMine",
			Handler:    unaryHandler(MappingService_ListMine_FullMethodName, MappingServiceServer.ListMine),
		},
		{
			MethodName: "Update",
			Handler:    unaryHandler(MappingService_Update_FullMethodName, MappingServiceServer.Update),
		},
		{
			MethodName: "Delete",
			Handler:    unaryHandler(MappingService_Delete_FullMethodName, MappingServiceServer.Delete),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shortener.proto",
}
