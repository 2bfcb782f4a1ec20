package grpc

import (
	"context"
	"errors"
	"net"
	"path"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/rpc"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// RequestIDHeader is echoed back in the response header of every call.
const RequestIDHeader = "x-request-id"

var protectedMethods = map[string]bool{
	rpc.MethodUpdateProfile: true,
	rpc.MethodDeleteObject:  true,
	rpc.MethodLogout:        true,
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := metadataValue(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := s.users.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

func requestID(ctx context.Context) string {
	if id := metadataValue(ctx, RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := requestID(ctx)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", path.Base(info.FullMethod), "code", code.String(),
		"duration", time.Since(start), "request_id", id}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "rpc failed", append(args, "error", err)...)
	} else {
		s.logger.Info(ctx, "rpc", args...)
	}
	return resp, err
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.RecordRPC(path.Base(info.FullMethod), status.Code(err).String(), time.Since(start))
	return resp, err
}

// peerKey identifies the caller by remote host, ignoring the port.
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !s.limiter.allow(peerKey(ctx)) {
		s.metrics.RecordRateLimited(path.Base(info.FullMethod))
		return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) streamLoggingInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := ss.Context()
	id := requestID(ctx)
	_ = ss.SetHeader(metadata.Pairs(RequestIDHeader, id))

	s.logger.Info(ctx, "stream opened", "method", path.Base(info.FullMethod), "request_id", id)
	start := time.Now()
	err := handler(srv, ss)
	s.logger.Info(ctx, "stream closed", "method", path.Base(info.FullMethod), "code", status.Code(err).String(),
		"duration", time.Since(start), "request_id", id)
	return err
}

func (s *GRPCServer) streamRateLimitInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if !s.limiter.allow(peerKey(ss.Context())) {
		s.metrics.RecordRateLimited(path.Base(info.FullMethod))
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return handler(srv, ss)
}
