package redispubsub

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_KeepsUUIDAndMetadata(t *testing.T) {
	t.Parallel()

	in := message.NewMessage("6f1c9a1e-3a7e-4a59-9b1e-1f0b8f2d7c11", []byte(`{"sku":"A-1"}`))
	in.Metadata.Set("trace_id", "abc")

	data, err := marshal(in)
	require.NoError(t, err)

	out := unmarshal(data)
	require.Equal(t, in.UUID, out.UUID)
	require.Equal(t, in.Payload, out.Payload)
	require.Equal(t, "abc", out.Metadata.Get("trace_id"))
}

func TestEnvelope_PlainPublishIsPassedThrough(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"sku":"A-1"}`, "not json at all", ""} {
		out := unmarshal([]byte(raw))
		require.NotEmpty(t, out.UUID)
		require.Equal(t, raw, string(out.Payload))
	}
}
