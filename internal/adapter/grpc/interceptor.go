package grpc

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Methods under these prefixes are served without a token
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

func isPublic(fullMethod string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// Health checks pass without a token.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		token := strings.TrimPrefix(authHeaders[0], "Bearer ")
		if token != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its status code and duration.
// Server-side failures are logged at error level.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("grpc")
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		}
		switch code {
		case codes.OK:
			logger.Info("request handled", fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			logger.Error("request failed", append(fields, zap.Error(err))...)
		default:
			logger.Warn("request rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// RateLimitInterceptor limits calls per client IP
func RateLimitInterceptor(l *limiter.Limiter, logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("ratelimit")
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		ip := peerIP(ctx)
		limitCtx, err := l.Get(ctx, ip)
		if err != nil {
			logger.Error("failed to get rate limit context", zap.String("ip", ip), zap.Error(err))
			return nil, status.Error(codes.Internal, "rate limit check failed")
		}

		if limitCtx.Reached {
			logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.Int64("limit", limitCtx.Limit),
				zap.Int64("remaining_requests", limitCtx.Remaining),
			)
			return nil, status.Error(codes.ResourceExhausted, "too many requests, please try again later")
		}

		return handler(ctx, req)
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

func peerIP(ctx context.Context) string {
	addr := peerAddr(ctx)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
