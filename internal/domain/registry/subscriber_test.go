package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/internal/domain/model"
)

func event(seq uint64) *model.Event {
	return model.NewEvent(seq, model.Inbound{})
}

func TestSubscriber_OfferOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		policy    model.OverflowPolicy
		want      model.EnqueueOutcome
		displaced uint64
		buffered  []uint64
		state     model.SubscriberState
	}{
		{"drop oldest", model.DropOldest, model.Accepted, 1, []uint64{2, 3}, model.StateActive},
		{"drop newest", model.DropNewest, model.Dropped, 0, []uint64{1, 2}, model.StateActive},
		{"disconnect", model.Disconnect, model.Evicted, 0, []uint64{1, 2}, model.StateDraining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sub := newSubscriber(model.SubscriberMeta{}, 2, tt.policy, 0)
			for seq := uint64(1); seq <= 2; seq++ {
				res, ok := sub.offer(event(seq))
				require.True(t, ok)
				require.Equal(t, model.Accepted, res.Outcome)
			}

			res, ok := sub.offer(event(3))
			require.True(t, ok)
			require.Equal(t, tt.want, res.Outcome)
			require.Equal(t, tt.displaced, res.Displaced)
			require.Equal(t, tt.state, sub.State())
			require.Equal(t, tt.buffered, seqs(drainBuffered(sub)))
		})
	}
}

func TestSubscriber_OfferSkipsInactive(t *testing.T) {
	t.Parallel()

	sub := newSubscriber(model.SubscriberMeta{}, 1, model.Disconnect, 0)
	sub.offer(event(1))
	sub.offer(event(2)) // evicts

	_, ok := sub.offer(event(3))
	require.False(t, ok)

	require.True(t, sub.close())
	require.False(t, sub.close())

	_, ok = sub.offer(event(4))
	require.False(t, ok)
}

func TestSubscriber_RingWrapsAround(t *testing.T) {
	t.Parallel()

	sub := newSubscriber(model.SubscriberMeta{}, 3, model.DropNewest, 0)

	var got []uint64
	for seq := uint64(1); seq <= 10; seq++ {
		_, ok := sub.offer(event(seq))
		require.True(t, ok)
		if seq%2 == 0 {
			got = append(got, seqs(drainBuffered(sub))...)
		}
	}

	require.Equal(t, seqRange(1, 10), got)

	info := sub.Info()
	require.Zero(t, info.Buffered)
	require.Zero(t, info.DroppedCount)
	require.Equal(t, uint64(10), info.LastDeliveredSeq)
	require.Equal(t, 3, info.Capacity)
	require.Equal(t, model.DropNewest, info.Policy)
}
