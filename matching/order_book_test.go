package matching_test

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	matching "github.com/cryptonstudio/crypton-exchange-core/matching"
	mockmatching "github.com/cryptonstudio/crypton-exchange-core/matching/mocks"
)

const instrumentID matching.InstrumentID = 7

type recorder struct {
	responses []matching.ClientResponse
	updates   []matching.MarketUpdate
}

func (r *recorder) OnClientResponse(response matching.ClientResponse) {
	r.responses = append(r.responses, response)
}

func (r *recorder) OnMarketUpdate(update matching.MarketUpdate) {
	r.updates = append(r.updates, update)
}

func (r *recorder) reset() {
	r.responses = nil
	r.updates = nil
}

func newBook(t *testing.T, limits matching.Limits) (*matching.OrderBook, *recorder) {
	t.Helper()
	r := &recorder{}
	ob, err := matching.NewOrderBook(matching.NewInstrument(instrumentID, "TEST"), limits, nil, r)
	require.NoError(t, err)
	return ob, r
}

func add(t *testing.T, ob *matching.OrderBook, client matching.ClientID, coid matching.OrderID, side matching.OrderSide, price matching.Price, qty matching.Quantity) matching.OrderID {
	t.Helper()
	moid, err := ob.Add(client, coid, instrumentID, side, price, qty)
	require.NoError(t, err)
	return moid
}

type testingT interface {
	require.TestingT
	Helper()
}

// checkBook verifies the structural invariants of the book.
func checkBook(t testingT, ob *matching.OrderBook) {
	t.Helper()
	orders := 0
	checkSide := func(side matching.OrderSide) func(level *matching.PriceLevel) bool {
		var prev *matching.PriceLevel
		return func(level *matching.PriceLevel) bool {
			require.Equal(t, side, level.Side())
			if prev != nil {
				if side == matching.OrderSideBuy {
					require.Greater(t, prev.Price(), level.Price())
				} else {
					require.Less(t, prev.Price(), level.Price())
				}
			}
			prev = level

			require.Positive(t, level.Orders())
			var volume uint64
			var priority matching.Priority
			it := level.Iterator()
			for it.Next() {
				o := it.Value()
				require.Equal(t, level.Price(), o.Price())
				require.Equal(t, side, o.Side())
				require.Positive(t, o.Quantity())
				require.Greater(t, o.Priority(), priority)
				priority = o.Priority()
				volume += uint64(o.Quantity())
				require.Same(t, o, ob.Order(o.MarketOrderID()))
				require.Same(t, o, ob.OrderByClient(o.ClientID(), o.ClientOrderID()))
				orders++
			}
			require.Equal(t, volume, level.Volume())
			return false
		}
	}
	ob.Bids(checkSide(matching.OrderSideBuy))
	ob.Asks(checkSide(matching.OrderSideSell))
	require.Equal(t, orders, ob.Size())

	if bid, ask := ob.TopBid(), ob.TopAsk(); bid != nil && ask != nil {
		require.Less(t, bid.Price(), ask.Price(), "book is crossed")
	}
}

func TestNewOrderBook(t *testing.T) {
	_, err := matching.NewOrderBook(matching.NewInstrument(matching.InstrumentIDInvalid, ""), matching.DefaultLimits(), nil, &recorder{})
	require.ErrorIs(t, err, matching.ErrInvalidInstrument)
	_, err = matching.NewOrderBook(matching.NewInstrument(1, ""), matching.Limits{MaxOrders: 1}, nil, &recorder{})
	require.ErrorIs(t, err, matching.ErrInvalidLimits)
}

//nolint:maintidx
func TestOrderBook(t *testing.T) {
	t.Run("new order rests on empty book", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		moid := add(t, ob, 1, 10, matching.OrderSideBuy, 100, 10)
		require.Equal(t, matching.OrderID(1), moid)

		require.Equal(t, []matching.ClientResponse{{
			Type:           matching.ClientResponseTypeAccepted,
			ClientID:       1,
			InstrumentID:   instrumentID,
			ClientOrderID:  10,
			MarketOrderID:  moid,
			Side:           matching.OrderSideBuy,
			Price:          100,
			ExecQuantity:   0,
			LeavesQuantity: 10,
		}}, r.responses)
		require.Equal(t, []matching.MarketUpdate{{
			Type:          matching.MarketUpdateTypeAdd,
			InstrumentID:  instrumentID,
			Side:          matching.OrderSideBuy,
			Price:         100,
			Quantity:      10,
			MarketOrderID: moid,
			Priority:      1,
		}}, r.updates)

		level := ob.TopBid()
		require.NotNil(t, level)
		require.Equal(t, matching.Price(100), level.Price())
		require.Equal(t, uint64(10), level.Volume())
		require.Equal(t, 1, level.Orders())
		require.Nil(t, ob.TopAsk())
		checkBook(t, ob)
	})

	t.Run("partial fill of resting order", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		buy := add(t, ob, 1, 10, matching.OrderSideBuy, 100, 10)
		r.reset()

		sell := add(t, ob, 2, 20, matching.OrderSideSell, 100, 4)
		require.Equal(t, []matching.ClientResponse{
			{
				Type: matching.ClientResponseTypeAccepted, ClientID: 2, InstrumentID: instrumentID,
				ClientOrderID: 20, MarketOrderID: sell, Side: matching.OrderSideSell, Price: 100,
				ExecQuantity: 0, LeavesQuantity: 4,
			},
			{
				Type: matching.ClientResponseTypeFilled, ClientID: 2, InstrumentID: instrumentID,
				ClientOrderID: 20, MarketOrderID: sell, Side: matching.OrderSideSell, Price: 100,
				ExecQuantity: 4, LeavesQuantity: 0,
			},
			{
				Type: matching.ClientResponseTypeFilled, ClientID: 1, InstrumentID: instrumentID,
				ClientOrderID: 10, MarketOrderID: buy, Side: matching.OrderSideBuy, Price: 100,
				ExecQuantity: 4, LeavesQuantity: 6,
			},
		}, r.responses)
		require.Equal(t, []matching.MarketUpdate{
			{
				Type: matching.MarketUpdateTypeTrade, InstrumentID: instrumentID, Side: matching.OrderSideSell,
				Price: 100, Quantity: 4, MarketOrderID: matching.OrderIDInvalid, Priority: matching.PriorityInvalid,
			},
			{
				Type: matching.MarketUpdateTypeModify, InstrumentID: instrumentID, Side: matching.OrderSideBuy,
				Price: 100, Quantity: 6, MarketOrderID: buy, Priority: 1,
			},
		}, r.updates)

		require.Nil(t, ob.Order(sell))
		require.Nil(t, ob.TopAsk())
		require.Equal(t, uint64(6), ob.TopBid().Volume())
		require.Equal(t, matching.Quantity(6), ob.Order(buy).Quantity())
		checkBook(t, ob)
	})

	t.Run("time priority within price level", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		a := add(t, ob, 1, 1, matching.OrderSideBuy, 100, 5)
		b := add(t, ob, 2, 1, matching.OrderSideBuy, 100, 5)
		r.reset()

		add(t, ob, 3, 1, matching.OrderSideSell, 100, 7)
		fills := map[matching.OrderID]matching.ClientResponse{}
		for _, resp := range r.responses {
			if resp.Type == matching.ClientResponseTypeFilled && resp.ClientID != 3 {
				fills[resp.MarketOrderID] = resp
			}
		}
		require.Len(t, fills, 2)
		require.Equal(t, matching.Quantity(5), fills[a].ExecQuantity)
		require.Equal(t, matching.Quantity(0), fills[a].LeavesQuantity)
		require.Equal(t, matching.Quantity(2), fills[b].ExecQuantity)
		require.Equal(t, matching.Quantity(3), fills[b].LeavesQuantity)

		require.Equal(t, []matching.MarketUpdateType{
			matching.MarketUpdateTypeTrade,
			matching.MarketUpdateTypeCancel,
			matching.MarketUpdateTypeTrade,
			matching.MarketUpdateTypeModify,
		}, updateTypes(r.updates))
		require.Equal(t, a, r.updates[1].MarketOrderID)

		require.Nil(t, ob.Order(a))
		require.Equal(t, matching.Quantity(3), ob.Order(b).Quantity())
		require.Equal(t, uint64(3), ob.TopBid().Volume())
		checkBook(t, ob)
	})

	t.Run("cancel of unknown order", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		add(t, ob, 1, 1, matching.OrderSideSell, 105, 3)
		r.reset()

		err := ob.Cancel(1, 999, instrumentID)
		require.ErrorIs(t, err, matching.ErrOrderNotFound)
		require.Equal(t, []matching.ClientResponse{{
			Type:           matching.ClientResponseTypeCancelRejected,
			ClientID:       1,
			InstrumentID:   instrumentID,
			ClientOrderID:  999,
			MarketOrderID:  matching.OrderIDInvalid,
			Side:           matching.OrderSideInvalid,
			Price:          matching.PriceInvalid,
			ExecQuantity:   matching.QuantityInvalid,
			LeavesQuantity: matching.QuantityInvalid,
		}}, r.responses)
		require.Empty(t, r.updates)
		require.Equal(t, 1, ob.Size())
		require.Equal(t, uint64(3), ob.TopAsk().Volume())
	})

	t.Run("cancel of another client order", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		add(t, ob, 1, 1, matching.OrderSideSell, 105, 3)
		r.reset()

		require.ErrorIs(t, ob.Cancel(2, 1, instrumentID), matching.ErrOrderNotFound)
		require.Len(t, r.responses, 1)
		require.Equal(t, matching.ClientResponseTypeCancelRejected, r.responses[0].Type)
		require.Equal(t, 1, ob.Size())
	})

	t.Run("cancel of live order", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		first := add(t, ob, 1, 1, matching.OrderSideSell, 105, 3)
		add(t, ob, 1, 2, matching.OrderSideSell, 105, 4)
		r.reset()

		require.NoError(t, ob.Cancel(1, 1, instrumentID))
		require.Equal(t, []matching.ClientResponse{{
			Type:           matching.ClientResponseTypeCanceled,
			ClientID:       1,
			InstrumentID:   instrumentID,
			ClientOrderID:  1,
			MarketOrderID:  first,
			Side:           matching.OrderSideSell,
			Price:          105,
			ExecQuantity:   matching.QuantityInvalid,
			LeavesQuantity: 3,
		}}, r.responses)
		require.Equal(t, []matching.MarketUpdate{{
			Type:          matching.MarketUpdateTypeCancel,
			InstrumentID:  instrumentID,
			Side:          matching.OrderSideSell,
			Price:         105,
			Quantity:      3,
			MarketOrderID: first,
			Priority:      1,
		}}, r.updates)
		require.Nil(t, ob.Order(first))
		require.Nil(t, ob.OrderByClient(1, 1))
		require.Equal(t, uint64(4), ob.TopAsk().Volume())
		checkBook(t, ob)

		// client order id can be reused once the order is gone
		require.NoError(t, ob.Cancel(1, 2, instrumentID))
		require.Nil(t, ob.TopAsk())
		require.True(t, ob.IsEmpty())
		add(t, ob, 1, 1, matching.OrderSideSell, 106, 1)
		checkBook(t, ob)
	})

	t.Run("trade at resting price", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		add(t, ob, 1, 1, matching.OrderSideSell, 100, 5)
		r.reset()

		add(t, ob, 2, 1, matching.OrderSideBuy, 105, 5)
		for _, resp := range r.responses[1:] {
			require.Equal(t, matching.ClientResponseTypeFilled, resp.Type)
			require.Equal(t, matching.Price(100), resp.Price)
		}
		require.Equal(t, matching.Price(100), r.updates[0].Price)
		require.Equal(t, matching.OrderSideBuy, r.updates[0].Side)
		require.True(t, ob.IsEmpty())
	})

	t.Run("sweep several levels and rest remainder", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		add(t, ob, 1, 1, matching.OrderSideSell, 102, 2)
		add(t, ob, 1, 2, matching.OrderSideSell, 101, 3)
		add(t, ob, 1, 3, matching.OrderSideSell, 104, 4)
		r.reset()

		buy := add(t, ob, 2, 1, matching.OrderSideBuy, 103, 10)
		var prices []matching.Price
		for _, u := range r.updates {
			if u.Type == matching.MarketUpdateTypeTrade {
				prices = append(prices, u.Price)
			}
		}
		require.Equal(t, []matching.Price{101, 102}, prices)

		last := r.updates[len(r.updates)-1]
		require.Equal(t, matching.MarketUpdateTypeAdd, last.Type)
		require.Equal(t, buy, last.MarketOrderID)
		require.Equal(t, matching.Quantity(5), last.Quantity)
		require.Equal(t, matching.Priority(4), last.Priority)

		require.Equal(t, matching.Price(103), ob.TopBid().Price())
		require.Equal(t, matching.Price(104), ob.TopAsk().Price())
		checkBook(t, ob)

		stats := ob.Stats()
		require.Equal(t, uint64(2), stats.Trades)
		require.Equal(t, uint64(5), stats.TradedQuantity)
		require.Equal(t, uint64(3*101+2*102), stats.TradedNotional.Lo)
		require.Equal(t, matching.Price(102), stats.LastPrice)
		require.Equal(t, uint64(101), stats.AveragePrice())
	})

	t.Run("non crossing orders rest", func(t *testing.T) {
		ob, _ := newBook(t, matching.DefaultLimits())
		add(t, ob, 1, 1, matching.OrderSideBuy, 99, 1)
		add(t, ob, 1, 2, matching.OrderSideBuy, 98, 1)
		add(t, ob, 1, 3, matching.OrderSideSell, 100, 1)
		add(t, ob, 1, 4, matching.OrderSideSell, 101, 1)
		require.Equal(t, 4, ob.Size())
		require.Equal(t, matching.Price(99), ob.TopBid().Price())
		require.Equal(t, matching.Price(100), ob.TopAsk().Price())
		require.NotNil(t, ob.GetBid(98))
		require.Nil(t, ob.GetBid(100))
		require.NotNil(t, ob.GetAsk(101))
		require.Zero(t, ob.Stats().Trades)
		checkBook(t, ob)
	})
}

func TestOrderBook_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		client matching.ClientID
		coid   matching.OrderID
		side   matching.OrderSide
		price  matching.Price
		qty    matching.Quantity
		err    error
	}{
		{name: "zero price", client: 1, coid: 2, side: matching.OrderSideBuy, price: 0, qty: 1, err: matching.ErrInvalidOrderPrice},
		{name: "negative price", client: 1, coid: 2, side: matching.OrderSideBuy, price: -5, qty: 1, err: matching.ErrInvalidOrderPrice},
		{name: "invalid price", client: 1, coid: 2, side: matching.OrderSideBuy, price: matching.PriceInvalid, qty: 1, err: matching.ErrInvalidOrderPrice},
		{name: "zero quantity", client: 1, coid: 2, side: matching.OrderSideSell, price: 10, qty: 0, err: matching.ErrInvalidOrderQuantity},
		{name: "invalid quantity", client: 1, coid: 2, side: matching.OrderSideSell, price: 10, qty: matching.QuantityInvalid, err: matching.ErrInvalidOrderQuantity},
		{name: "invalid side", client: 1, coid: 2, side: matching.OrderSideInvalid, price: 10, qty: 1, err: matching.ErrInvalidOrderSide},
		{name: "invalid order id", client: 1, coid: matching.OrderIDInvalid, side: matching.OrderSideBuy, price: 10, qty: 1, err: matching.ErrInvalidOrderID},
		{name: "duplicate order id", client: 1, coid: 1, side: matching.OrderSideBuy, price: 10, qty: 1, err: matching.ErrOrderDuplicate},
		{name: "invalid client id", client: matching.ClientIDInvalid, coid: 2, side: matching.OrderSideBuy, price: 10, qty: 1, err: matching.ErrInvalidClientID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ob, r := newBook(t, matching.DefaultLimits())
			add(t, ob, 1, 1, matching.OrderSideSell, 50, 1)
			r.reset()

			moid, err := ob.Add(tc.client, tc.coid, instrumentID, tc.side, tc.price, tc.qty)
			require.ErrorIs(t, err, tc.err)
			require.False(t, matching.IsFatal(err))
			require.Equal(t, matching.OrderIDInvalid, moid)
			require.Len(t, r.responses, 1)
			require.Equal(t, matching.ClientResponseTypeRejected, r.responses[0].Type)
			require.Equal(t, tc.coid, r.responses[0].ClientOrderID)
			require.Empty(t, r.updates)
			require.Equal(t, 1, ob.Size())
		})
	}

	t.Run("wrong instrument is fatal", func(t *testing.T) {
		ob, r := newBook(t, matching.DefaultLimits())
		_, err := ob.Add(1, 1, instrumentID+1, matching.OrderSideBuy, 10, 1)
		require.True(t, matching.IsFatal(err))
		require.ErrorIs(t, err, matching.ErrInvalidInstrument)
		require.True(t, matching.IsFatal(ob.Cancel(1, 1, instrumentID+1)))
		require.Empty(t, r.responses)
	})

	t.Run("capacity", func(t *testing.T) {
		ob, r := newBook(t, matching.Limits{MaxOrders: 2, MaxPriceLevels: 1})
		add(t, ob, 1, 1, matching.OrderSideBuy, 10, 1)
		_, err := ob.Add(1, 2, instrumentID, matching.OrderSideBuy, 11, 1)
		require.ErrorIs(t, err, matching.ErrOrderBookFull)
		add(t, ob, 1, 3, matching.OrderSideBuy, 10, 1)
		_, err = ob.Add(1, 4, instrumentID, matching.OrderSideBuy, 10, 1)
		require.ErrorIs(t, err, matching.ErrOrderBookFull)
		require.Equal(t, matching.ClientResponseTypeRejected, r.responses[len(r.responses)-1].Type)
		checkBook(t, ob)
	})
}

func TestOrderBook_SharedOrderIDs(t *testing.T) {
	ids := &matching.OrderIDSequence{}
	r := &recorder{}
	first, err := matching.NewOrderBook(matching.NewInstrument(1, "A"), matching.DefaultLimits(), ids, r)
	require.NoError(t, err)
	second, err := matching.NewOrderBook(matching.NewInstrument(2, "B"), matching.DefaultLimits(), ids, r)
	require.NoError(t, err)

	a, err := first.Add(1, 1, 1, matching.OrderSideBuy, 10, 1)
	require.NoError(t, err)
	b, err := second.Add(1, 1, 2, matching.OrderSideBuy, 10, 1)
	require.NoError(t, err)
	require.Equal(t, matching.OrderID(1), a)
	require.Equal(t, matching.OrderID(2), b)
	require.Equal(t, b, ids.Last())

	// priorities are per book
	require.Equal(t, matching.Priority(1), first.Order(a).Priority())
	require.Equal(t, matching.Priority(1), second.Order(b).Priority())
}

func TestOrderBook_Handler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := mockmatching.NewMockHandler(ctrl)
	ob, err := matching.NewOrderBook(matching.NewInstrument(instrumentID, "TEST"), matching.DefaultLimits(), nil, handler)
	require.NoError(t, err)

	isType := func(typ matching.ClientResponseType) gomock.Matcher {
		return typeMatcher{typ.String(), func(x any) bool {
			r, ok := x.(matching.ClientResponse)
			return ok && r.Type == typ
		}}
	}
	isUpdate := func(typ matching.MarketUpdateType) gomock.Matcher {
		return typeMatcher{typ.String(), func(x any) bool {
			u, ok := x.(matching.MarketUpdate)
			return ok && u.Type == typ
		}}
	}

	gomock.InOrder(
		handler.EXPECT().OnClientResponse(isType(matching.ClientResponseTypeAccepted)),
		handler.EXPECT().OnMarketUpdate(isUpdate(matching.MarketUpdateTypeAdd)),
	)
	add(t, ob, 1, 1, matching.OrderSideSell, 100, 2)

	gomock.InOrder(
		handler.EXPECT().OnClientResponse(isType(matching.ClientResponseTypeAccepted)),
		handler.EXPECT().OnClientResponse(isType(matching.ClientResponseTypeFilled)).Times(2),
		handler.EXPECT().OnMarketUpdate(isUpdate(matching.MarketUpdateTypeTrade)),
		handler.EXPECT().OnMarketUpdate(isUpdate(matching.MarketUpdateTypeCancel)),
		handler.EXPECT().OnMarketUpdate(isUpdate(matching.MarketUpdateTypeAdd)),
	)
	add(t, ob, 2, 1, matching.OrderSideBuy, 101, 3)

	gomock.InOrder(
		handler.EXPECT().OnClientResponse(isType(matching.ClientResponseTypeCanceled)),
		handler.EXPECT().OnMarketUpdate(isUpdate(matching.MarketUpdateTypeCancel)),
	)
	require.NoError(t, ob.Cancel(2, 1, instrumentID))
	require.True(t, ob.IsEmpty())
}

type typeMatcher struct {
	name    string
	matches func(x any) bool
}

func (m typeMatcher) Matches(x any) bool { return m.matches(x) }
func (m typeMatcher) String() string     { return "has type " + m.name }

func updateTypes(updates []matching.MarketUpdate) []matching.MarketUpdateType {
	result := make([]matching.MarketUpdateType, 0, len(updates))
	for _, u := range updates {
		result = append(result, u.Type)
	}
	return result
}
