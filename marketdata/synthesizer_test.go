package marketdata_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cryptonstudio/crypton-exchange-core/marketdata"
	mockmarketdata "github.com/cryptonstudio/crypton-exchange-core/marketdata/mocks"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

func newSynthesizer(t *testing.T, snapshot marketdata.Sender, instruments ...matching.InstrumentID) (*marketdata.SnapshotSynthesizer, *ring.Queue[matching.MarketUpdate]) {
	t.Helper()
	updates := ring.MustNew[matching.MarketUpdate](64)
	s, err := marketdata.NewSnapshotSynthesizer(instruments, updates, snapshot, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, updates
}

func sequenced(seq uint64, u matching.MarketUpdate) matching.MarketUpdate {
	u.SeqNum = seq
	return u
}

func TestSnapshotSynthesizer_Setup(t *testing.T) {
	_, err := marketdata.NewSnapshotSynthesizer(nil, nil, nil, time.Second, nil)
	require.ErrorIs(t, err, marketdata.ErrInvalidSnapshotSetup)
	_, err = marketdata.NewSnapshotSynthesizer([]matching.InstrumentID{1}, nil, nil, 0, nil)
	require.ErrorIs(t, err, marketdata.ErrInvalidSnapshotSetup)
}

func TestSnapshotSynthesizer_Apply(t *testing.T) {
	s, _ := newSynthesizer(t, newChannel(t, 4, true), instrumentID)

	a := add(1, 1, matching.OrderSideBuy, 100, 10)
	b := add(2, 2, matching.OrderSideBuy, 100, 5)
	require.NoError(t, s.Apply(ptr(sequenced(1, a))))
	require.NoError(t, s.Apply(ptr(sequenced(2, b))))
	require.NoError(t, s.Apply(ptr(sequenced(3, trade(matching.OrderSideSell, 100, 4)))))
	require.NoError(t, s.Apply(ptr(sequenced(4, modify(a, 6)))))
	require.Equal(t, 2, s.Orders(instrumentID))
	require.NoError(t, s.Apply(ptr(sequenced(5, cancel(b)))))
	require.Equal(t, 1, s.Orders(instrumentID))
	require.Equal(t, uint64(5), s.SeqNum())
	require.Zero(t, s.Orders(42))

	t.Run("gap", func(t *testing.T) {
		err := s.Apply(ptr(sequenced(7, add(3, 3, matching.OrderSideSell, 101, 1))))
		require.ErrorIs(t, err, marketdata.ErrSequenceGap)
	})

	t.Run("inconsistent", func(t *testing.T) {
		s, _ := newSynthesizer(t, newChannel(t, 4, true), instrumentID)
		require.ErrorIs(t, s.Apply(ptr(sequenced(1, cancel(a)))), marketdata.ErrInconsistentUpdate)

		s, _ = newSynthesizer(t, newChannel(t, 4, true), instrumentID)
		require.NoError(t, s.Apply(ptr(sequenced(1, a))))
		require.ErrorIs(t, s.Apply(ptr(sequenced(2, a))), marketdata.ErrInconsistentUpdate)

		other := a
		other.MarketOrderID = 9
		s, _ = newSynthesizer(t, newChannel(t, 4, true), instrumentID)
		require.NoError(t, s.Apply(ptr(sequenced(1, a))))
		require.ErrorIs(t, s.Apply(ptr(sequenced(2, modify(other, 1)))), marketdata.ErrInconsistentUpdate)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		s, _ := newSynthesizer(t, newChannel(t, 4, true), instrumentID)
		u := a
		u.InstrumentID = 42
		require.ErrorIs(t, s.Apply(ptr(sequenced(1, u))), marketdata.ErrUnknownInstrument)
	})
}

func TestSnapshotSynthesizer_Publish(t *testing.T) {
	feed := newChannel(t, 64, true)
	s, updates := newSynthesizer(t, feed, 2, instrumentID)

	a := add(1, 1, matching.OrderSideBuy, 100, 10)
	b := add(2, 2, matching.OrderSideBuy, 100, 5)
	c := add(3, 1, matching.OrderSideSell, 200, 7)
	c.InstrumentID = 2
	d := add(4, 3, matching.OrderSideSell, 101, 3)
	for i, u := range []matching.MarketUpdate{a, b, c, modify(a, 8), d, cancel(b)} {
		require.True(t, updates.Push(sequenced(uint64(i+1), u)))
	}
	n, err := s.ApplyPending()
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.NoError(t, s.Publish())

	snapshot := received(t, feed)
	require.Equal(t, []matching.MarketUpdateType{
		matching.MarketUpdateTypeSnapshotStart,
		matching.MarketUpdateTypeClear,
		matching.MarketUpdateTypeAdd,
		matching.MarketUpdateTypeAdd,
		matching.MarketUpdateTypeClear,
		matching.MarketUpdateTypeAdd,
		matching.MarketUpdateTypeSnapshotEnd,
	}, types(snapshot))
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6}, seqNums(snapshot))

	require.Equal(t, matching.OrderID(6), snapshot[0].MarketOrderID)
	require.Equal(t, matching.OrderID(6), snapshot[6].MarketOrderID)
	require.Equal(t, matching.InstrumentID(instrumentID), snapshot[1].InstrumentID)
	// orders follow their priority
	require.Equal(t, matching.OrderID(1), snapshot[2].MarketOrderID)
	require.Equal(t, matching.Quantity(8), snapshot[2].Quantity)
	require.Equal(t, matching.OrderID(4), snapshot[3].MarketOrderID)
	require.Equal(t, matching.InstrumentID(2), snapshot[4].InstrumentID)
	require.Equal(t, matching.OrderID(3), snapshot[5].MarketOrderID)
}

func TestSnapshotSynthesizer_PublishError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mockmarketdata.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any()).Return(nil)
	sender.EXPECT().Send(gomock.Any()).Return(errors.New("network is down"))

	s, _ := newSynthesizer(t, sender, instrumentID)
	require.Error(t, s.Publish())
}

func TestSnapshotSynthesizer_RunStopsOnGap(t *testing.T) {
	s, updates := newSynthesizer(t, newChannel(t, 64, true), instrumentID)
	updates.Push(sequenced(1, add(1, 1, matching.OrderSideBuy, 100, 1)))
	updates.Push(sequenced(3, add(2, 2, matching.OrderSideBuy, 100, 1)))

	require.ErrorIs(t, s.Run(), marketdata.ErrSequenceGap)
	require.ErrorIs(t, s.Err(), marketdata.ErrSequenceGap)
	require.ErrorIs(t, s.Stop(), marketdata.ErrSequenceGap)
	require.Equal(t, 1, s.Orders(instrumentID))
}

func TestSnapshotSynthesizer_PeriodicSnapshots(t *testing.T) {
	feed := newChannel(t, 1024, true)
	updates := ring.MustNew[matching.MarketUpdate](64)
	s, err := marketdata.NewSnapshotSynthesizer([]matching.InstrumentID{instrumentID}, updates, feed, time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)
	updates.Push(sequenced(1, add(1, 1, matching.OrderSideBuy, 100, 1)))

	require.NoError(t, s.Start())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())
	<-s.Done()

	// every snapshot is start, clear, the order, end
	snapshot := received(t, feed)
	require.NotEmpty(t, snapshot)
	require.Zero(t, len(snapshot)%4)
	require.Equal(t, matching.MarketUpdateTypeSnapshotStart, snapshot[0].Type)
	require.Equal(t, matching.MarketUpdateTypeSnapshotEnd, snapshot[len(snapshot)-1].Type)
}
