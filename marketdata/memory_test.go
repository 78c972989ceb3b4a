package marketdata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptonstudio/crypton-exchange-core/marketdata"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
)

func encode(updates ...matching.MarketUpdate) [][]byte {
	frames := make([][]byte, len(updates))
	for i := range updates {
		frames[i] = protocol.AppendMarketUpdate(nil, &updates[i])
	}
	return frames
}

func send(t *testing.T, s marketdata.Sender, updates ...matching.MarketUpdate) {
	t.Helper()
	for _, frame := range encode(updates...) {
		require.NoError(t, s.Send(frame))
	}
}

func received(t *testing.T, r marketdata.Receiver) []matching.MarketUpdate {
	t.Helper()
	var result []matching.MarketUpdate
	p := protocol.NewMarketUpdateProcessor(func(update matching.MarketUpdate) error {
		result = append(result, update)
		return nil
	})
	require.NoError(t, r.Poll(p.ProcessChunk))
	require.Zero(t, p.Pending())
	return result
}

func seqNums(updates []matching.MarketUpdate) []uint64 {
	result := make([]uint64, len(updates))
	for i, u := range updates {
		result[i] = u.SeqNum
	}
	return result
}

func newChannel(t *testing.T, capacity int, joined bool) *marketdata.MemoryChannel {
	t.Helper()
	ch, err := marketdata.NewMemoryChannel(t.Name(), capacity, joined)
	require.NoError(t, err)
	return ch
}

func TestMemoryChannel(t *testing.T) {
	_, err := marketdata.NewMemoryChannel("bad", 3, true)
	require.Error(t, err)

	t.Run("invalid frame", func(t *testing.T) {
		ch := newChannel(t, 4, true)
		require.ErrorIs(t, ch.Send(make([]byte, 3)), marketdata.ErrInvalidFrame)
	})

	t.Run("delivers in order", func(t *testing.T) {
		ch := newChannel(t, 4, true)
		send(t, ch, incremental(1), incremental(2), incremental(3))
		require.Equal(t, []uint64{1, 2, 3}, seqNums(received(t, ch)))
		require.Empty(t, received(t, ch))
		require.Zero(t, ch.Dropped())
	})

	t.Run("not joined loses everything", func(t *testing.T) {
		ch := newChannel(t, 4, false)
		send(t, ch, incremental(1), incremental(2))
		require.Empty(t, received(t, ch))

		require.NoError(t, ch.Subscribe())
		require.True(t, ch.Joined())
		send(t, ch, incremental(3))
		require.Equal(t, []uint64{3}, seqNums(received(t, ch)))

		send(t, ch, incremental(4))
		require.NoError(t, ch.Unsubscribe())
		require.False(t, ch.Joined())
		require.Empty(t, received(t, ch))
	})

	t.Run("overflow loses frames", func(t *testing.T) {
		ch := newChannel(t, 2, true)
		send(t, ch, incremental(1), incremental(2), incremental(3))
		require.Equal(t, uint64(1), ch.Dropped())
		require.Equal(t, []uint64{1, 2}, seqNums(received(t, ch)))
	})

	t.Run("loss injection", func(t *testing.T) {
		ch := newChannel(t, 16, true)
		ch.SetDrop(marketdata.DropEvery(3))
		for seq := uint64(1); seq <= 7; seq++ {
			send(t, ch, incremental(seq))
		}
		require.Equal(t, []uint64{1, 2, 4, 5, 7}, seqNums(received(t, ch)))
		require.Equal(t, uint64(2), ch.Dropped())
		require.Nil(t, marketdata.DropEvery(0))
	})

	t.Run("poll stops on handler error", func(t *testing.T) {
		ch := newChannel(t, 4, true)
		send(t, ch, incremental(1), incremental(2))
		calls := 0
		err := ch.Poll(func([]byte) error {
			calls++
			return marketdata.ErrInvalidFrame
		})
		require.ErrorIs(t, err, marketdata.ErrInvalidFrame)
		require.Equal(t, 1, calls)
		require.Equal(t, []uint64{2}, seqNums(received(t, ch)))
	})

	t.Run("handler leaves channel while polling", func(t *testing.T) {
		ch := newChannel(t, 4, true)
		send(t, ch, incremental(1), incremental(2), incremental(3))
		var polled []uint64
		p := protocol.NewMarketUpdateProcessor(func(update matching.MarketUpdate) error {
			polled = append(polled, update.SeqNum)
			return ch.Unsubscribe()
		})
		require.NotPanics(t, func() { require.NoError(t, ch.Poll(p.ProcessChunk)) })
		require.Equal(t, []uint64{1}, polled)
		require.False(t, ch.Joined())

		require.NoError(t, ch.Subscribe())
		send(t, ch, incremental(4))
		require.Equal(t, []uint64{4}, seqNums(received(t, ch)))
	})
}
