package ssemarshaller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

func TestMarshallEvent_Frame(t *testing.T) {
	t.Parallel()

	ev := model.NewEvent(42, model.Inbound{Topic: "products", Payload: []byte("line one\r\nline two\n")})
	data, err := MarshallEvent(ev)
	require.NoError(t, err)

	require.Equal(t, "id: 42\nevent: products\ndata: line one\ndata: line two\ndata: \n\n", string(data))
}

func TestMarshallEvent_DefaultsEventName(t *testing.T) {
	t.Parallel()

	ev := model.NewEvent(1, model.Inbound{Payload: []byte(`{"a":1}`)})
	data, err := MarshallEvent(ev)
	require.NoError(t, err)

	require.Equal(t, "id: 1\nevent: message\ndata: {\"a\":1}\n\n", string(data))
}

func TestMarshallControl(t *testing.T) {
	t.Parallel()

	require.Equal(t, "event: connected\ndata: {\"id\":\"x\"}\n\n",
		string(MarshallControl("connected", []byte("{\"id\":\"x\"}\n"))))
}
