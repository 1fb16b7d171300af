package interceptors

import (
	"context"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	// RequestIDKey is the key used to store/retrieve the request id from context
	RequestIDKey contextKey = "request_id"

	// RequestIDHeader is the incoming metadata key honoured before generating one.
	RequestIDHeader = "x-request-id"
)

// NewStreamRequestIDInterceptor tags every stream with a request id.
func NewStreamRequestIDInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		// [ENRICHMENT] Inject the id into the context for downstream handlers
		newCtx := withRequestID(ss.Context())

		// [STREAM_WRAPPING] Override the context of the original stream
		wrapped := &wrappedStream{
			ServerStream: ss,
			ctx:          newCtx,
		}

		return handler(srv, wrapped)
	}
}

func NewUnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(withRequestID(ctx), req)
	}
}

// wrappedStream is a thin wrapper to inject a new context into a gRPC stream.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// GetRequestID is a helper to extract the request id from context safely.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok
}

// LoggingFields feeds the request id into go-grpc-middleware log lines.
func LoggingFields(ctx context.Context) logging.Fields {
	if id, ok := GetRequestID(ctx); ok {
		return logging.Fields{"request_id", id}
	}
	return nil
}

func withRequestID(ctx context.Context) context.Context {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDHeader); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, RequestIDKey, id)
}
