package marshaller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

func TestMarshallEvent_EmbedsJSONAndQuotesTheRest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"json object", `{"sku":"A-1","price":10}`, `{"sku":"A-1","price":10}`},
		{"malformed", `{"sku":`, `"{\"sku\":"`},
		{"plain text", "hello", `"hello"`},
		{"empty", "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ev := model.NewEvent(7, model.Inbound{ID: "m-1", Topic: "products", Payload: []byte(tt.payload)})
			data, err := MarshallEvent(ev)
			require.NoError(t, err)

			var out EventJSON
			require.NoError(t, json.Unmarshal(data, &out))
			require.Equal(t, uint64(7), out.Seq)
			require.Equal(t, "products", out.Topic)
			require.JSONEq(t, tt.want, string(out.Payload))
		})
	}
}

func TestMarshallEvent_IsCachedPerEvent(t *testing.T) {
	t.Parallel()

	ev := model.NewEvent(1, model.Inbound{Payload: []byte(`{}`)})
	a, err := MarshallEvent(ev)
	require.NoError(t, err)
	b, err := MarshallEvent(ev)
	require.NoError(t, err)

	require.Same(t, &a[0], &b[0])
}
