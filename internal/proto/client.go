package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// MappingServiceClient is the client API for MappingService service.
type MappingServiceClient interface {
	Shorten(ctx context.Context, in *ShortenRequest, opts ...grpc.CallOption) (*ShortenResponse, error)
	Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	ListMine(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListMineResponse, error)
	Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*UpdateResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
}

type mappingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMappingServiceClient returns a client that speaks the JSON codec.
func NewMappingServiceClient(cc grpc.ClientConnInterface) MappingServiceClient {
	return &mappingServiceClient{cc: cc}
}

func (c *mappingServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *mappingServiceClient) Shorten(ctx context.Context, in *ShortenRequest, opts ...grpc.CallOption) (*ShortenResponse, error) {
	out := new(ShortenResponse)
	if err := c.invoke(ctx, MappingService_Shorten_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mappingServiceClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	out := new(ResolveResponse)
	if err := c.invoke(ctx, MappingService_Resolve_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mappingServiceClient) ListMine(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListMineResponse, error) {
	out := new(ListMineResponse)
	if err := c.invoke(ctx, MappingService_ListMine_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mappingServiceClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*UpdateResponse, error) {
	out := new(UpdateResponse)
	if err := c.invoke(ctx, MappingService_Update_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mappingServiceClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.invoke(ctx, MappingService_Delete_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
