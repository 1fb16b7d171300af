package interceptors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type stubStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubStream) Context() context.Context { return s.ctx }

func TestStreamRequestID_HonoursIncomingHeader(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "req-42"))

	var got string
	err := NewStreamRequestIDInterceptor()(nil, &stubStream{ctx: ctx}, &grpc.StreamServerInfo{},
		func(_ any, ss grpc.ServerStream) error {
			got, _ = GetRequestID(ss.Context())
			return nil
		})

	require.NoError(t, err)
	require.Equal(t, "req-42", got)
}

func TestUnaryRequestID_GeneratesWhenMissing(t *testing.T) {
	t.Parallel()

	var got string
	_, err := NewUnaryRequestIDInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, _ any) (any, error) {
			got, _ = GetRequestID(ctx)
			return nil, nil
		})

	require.NoError(t, err)
	_, perr := uuid.Parse(got)
	require.NoError(t, perr)

	require.Nil(t, LoggingFields(context.Background()))
}
