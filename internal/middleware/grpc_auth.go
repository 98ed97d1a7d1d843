package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCAuthMiddleware authenticates unary calls from the authorization
// metadata.
type GRPCAuthMiddleware struct {
	tokens TokenValidator
	public map[string]bool
}

// NewGRPCAuthMiddleware creates the interceptor. Calls to publicMethods
// (full method names) are let through without a token.
func NewGRPCAuthMiddleware(tokens TokenValidator, publicMethods ...string) *GRPCAuthMiddleware {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}
	return &GRPCAuthMiddleware{
		tokens: tokens,
		public: public,
	}
}

func (m *GRPCAuthMiddleware) UnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if m.public[info.FullMethod] {
		return handler(ctx, req)
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is missing")
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
	}

	token := values[0]
	if bearer, ok := bearerToken(token); ok {
		token = bearer
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(WithUserID(ctx, claims.UserID), req)
}
