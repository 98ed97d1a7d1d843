package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/MikhailRaia/codekeeper/internal/middleware"
	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/proto"
	"github.com/MikhailRaia/codekeeper/internal/service"
	"github.com/MikhailRaia/codekeeper/internal/validation"
)

// MappingGRPCServer exposes the mapping operations over gRPC.
type MappingGRPCServer struct {
	proto.UnimplementedMappingServiceServer
	mappings MappingService
	baseURL  string
}

func NewMappingGRPCServer(mappings MappingService, baseURL string) *MappingGRPCServer {
	return &MappingGRPCServer{
		mappings: mappings,
		baseURL:  baseURL,
	}
}

func (s *MappingGRPCServer) Shorten(ctx context.Context, req *proto.ShortenRequest) (*proto.ShortenResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	m, err := s.mappings.Shorten(ctx, userID, service.ShortenInput{URL: req.Url, Code: req.Code})
	if err != nil {
		return nil, grpcError(err)
	}

	return &proto.ShortenResponse{Mapping: s.toProto(m)}, nil
}

func (s *MappingGRPCServer) Resolve(ctx context.Context, req *proto.ResolveRequest) (*proto.ResolveResponse, error) {
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	target, err := s.mappings.Resolve(ctx, req.Code)
	if err != nil {
		return nil, grpcError(err)
	}

	return &proto.ResolveResponse{TargetUrl: target}, nil
}

func (s *MappingGRPCServer) ListMine(ctx context.Context, _ *emptypb.Empty) (*proto.ListMineResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	mappings, err := s.mappings.ListMine(ctx, userID)
	if err != nil {
		return nil, grpcError(err)
	}

	resp := &proto.ListMineResponse{
		Codes: make([]*proto.Mapping, 0, len(mappings)),
	}
	for _, m := range mappings {
		resp.Codes = append(resp.Codes, s.toProto(m))
	}

	return resp, nil
}

func (s *MappingGRPCServer) Update(ctx context.Context, req *proto.UpdateRequest) (*proto.UpdateResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	m, err := s.mappings.Update(ctx, req.Id, userID, service.UpdateInput{URL: req.Url, Code: req.Code})
	if err != nil {
		return nil, grpcError(err)
	}

	return &proto.UpdateResponse{Message: "Short code updated", Updated: s.toProto(m)}, nil
}

func (s *MappingGRPCServer) Delete(ctx context.Context, req *proto.DeleteRequest) (*proto.DeleteResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user not authenticated")
	}

	if err := s.mappings.Delete(ctx, req.Id, userID); err != nil {
		return nil, grpcError(err)
	}

	return &proto.DeleteResponse{Deleted: true}, nil
}

func (s *MappingGRPCServer) toProto(m model.URLMapping) *proto.Mapping {
	return &proto.Mapping{
		Id:        m.ID,
		ShortCode: m.ShortCode,
		TargetUrl: m.TargetURL,
		ShortUrl:  shortURL(s.baseURL, m.ShortCode),
		OwnerId:   m.OwnerID,
		CreatedAt: timestamppb.New(m.CreatedAt),
		UpdatedAt: timestamppb.New(m.UpdatedAt),
	}
}

func grpcError(err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, service.ErrCodeTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrNotFoundOrUnauthorized), errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		log.Error().Err(err).Msg("gRPC call failed")
		return status.Error(codes.Internal, "internal error")
	}
}
