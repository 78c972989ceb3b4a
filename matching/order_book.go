package matching

import (
	"fmt"

	"github.com/tidwall/hashmap"

	"github.com/cryptonstudio/crypton-exchange-core/types/avl"
	"github.com/cryptonstudio/crypton-exchange-core/types/list"
)

type clientOrderKey struct {
	clientID      ClientID
	clientOrderID OrderID
}

// Order book is used to store buy and sell orders in a price level order
// and to match incoming orders against them by price-time priority.
// NOTE: Not thread-safe.
type OrderBook struct {
	instrument Instrument
	limits     Limits
	handler    Handler
	orderIDs   *OrderIDSequence

	// Bid/Ask price levels, the best level of each side is the most left one
	bids *avl.Tree[Price, PriceLevel]
	asks *avl.Tree[Price, PriceLevel]

	// Resting orders storage shared by all price levels of the book
	orders         *list.Arena[Order]
	ordersByID     *hashmap.Map[OrderID, list.Handle]
	ordersByClient *hashmap.Map[clientOrderKey, OrderID]

	// Last assigned time priority
	priority Priority

	stats Stats
}

// NewOrderBook creates new order book for the instrument.
// Market order ids are taken from the given sequence which may be shared by several books.
func NewOrderBook(instrument Instrument, limits Limits, orderIDs *OrderIDSequence, handler Handler) (*OrderBook, error) {
	if instrument.ID() == InstrumentIDInvalid {
		return nil, ErrInvalidInstrument
	}
	if !limits.Valid() {
		return nil, ErrInvalidLimits
	}
	if orderIDs == nil {
		orderIDs = &OrderIDSequence{}
	}
	return &OrderBook{
		instrument:     instrument,
		limits:         limits,
		handler:        handler,
		orderIDs:       orderIDs,
		bids:           avl.NewTree[Price, PriceLevel](compareBids, limits.MaxPriceLevels),
		asks:           avl.NewOrderedTree[Price, PriceLevel](limits.MaxPriceLevels),
		orders:         list.NewArena[Order](limits.MaxOrders),
		ordersByID:     hashmap.New[OrderID, list.Handle](limits.MaxOrders),
		ordersByClient: hashmap.New[clientOrderKey, OrderID](limits.MaxOrders),
	}, nil
}

func compareBids(a, b Price) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// Instrument returns the order book instrument.
func (ob *OrderBook) Instrument() Instrument {
	return ob.instrument
}

// Limits returns the order book limits.
func (ob *OrderBook) Limits() Limits {
	return ob.limits
}

// Size returns the number of resting orders.
func (ob *OrderBook) Size() int {
	return ob.orders.Len()
}

// IsEmpty returns true if no order rests in the book.
func (ob *OrderBook) IsEmpty() bool {
	return ob.orders.Len() == 0
}

// Stats returns the trading statistics of the book.
func (ob *OrderBook) Stats() Stats {
	return ob.stats
}

// Order returns the resting order with the market order id or nil.
func (ob *OrderBook) Order(id OrderID) *Order {
	h, ok := ob.ordersByID.Get(id)
	if !ok {
		return nil
	}
	return ob.orders.Get(h)
}

// OrderByClient returns the resting order with the client order id or nil.
func (ob *OrderBook) OrderByClient(clientID ClientID, clientOrderID OrderID) *Order {
	id, ok := ob.ordersByClient.Get(clientOrderKey{clientID, clientOrderID})
	if !ok {
		return nil
	}
	return ob.Order(id)
}

// TopBid returns the best bid price level or nil.
func (ob *OrderBook) TopBid() *PriceLevel {
	return ob.bids.Value(ob.bids.MostLeft())
}

// TopAsk returns the best ask price level or nil.
func (ob *OrderBook) TopAsk() *PriceLevel {
	return ob.asks.Value(ob.asks.MostLeft())
}

// GetBid returns the bid price level with the price or nil.
func (ob *OrderBook) GetBid(price Price) *PriceLevel {
	return ob.bids.Value(ob.bids.Find(price))
}

// GetAsk returns the ask price level with the price or nil.
func (ob *OrderBook) GetAsk(price Price) *PriceLevel {
	return ob.asks.Value(ob.asks.Find(price))
}

// Bids visits bid price levels from the best to the worst until f returns true.
func (ob *OrderBook) Bids(f func(level *PriceLevel) bool) {
	ob.bids.IterateInOrder(func(_ Price, level *PriceLevel) bool { return f(level) })
}

// Asks visits ask price levels from the best to the worst until f returns true.
func (ob *OrderBook) Asks(f func(level *PriceLevel) bool) {
	ob.asks.IterateInOrder(func(_ Price, level *PriceLevel) bool { return f(level) })
}

// Add processes a new limit order: it is matched against the opposite side
// and its remainder, if any, rests in the book.
// On validation failure a REJECTED response is emitted and the error is returned.
func (ob *OrderBook) Add(
	clientID ClientID,
	clientOrderID OrderID,
	instrumentID InstrumentID,
	side OrderSide,
	price Price,
	quantity Quantity,
) (OrderID, error) {
	if instrumentID != ob.instrument.id {
		return OrderIDInvalid, fmt.Errorf("%w: order for instrument %d routed to book %d: %w",
			ErrFatal, instrumentID, ob.instrument.id, ErrInvalidInstrument)
	}

	if err := ob.validate(clientID, clientOrderID, side, price, quantity); err != nil {
		ob.handler.OnClientResponse(ClientResponse{
			Type:           ClientResponseTypeRejected,
			ClientID:       clientID,
			InstrumentID:   instrumentID,
			ClientOrderID:  clientOrderID,
			MarketOrderID:  OrderIDInvalid,
			Side:           side,
			Price:          price,
			ExecQuantity:   QuantityInvalid,
			LeavesQuantity: quantity,
		})
		return OrderIDInvalid, err
	}

	marketOrderID := ob.orderIDs.Next()
	ob.handler.OnClientResponse(ClientResponse{
		Type:           ClientResponseTypeAccepted,
		ClientID:       clientID,
		InstrumentID:   instrumentID,
		ClientOrderID:  clientOrderID,
		MarketOrderID:  marketOrderID,
		Side:           side,
		Price:          price,
		ExecQuantity:   0,
		LeavesQuantity: quantity,
	})

	leaves := ob.match(clientID, clientOrderID, marketOrderID, side, price, quantity)
	if leaves > 0 {
		ob.priority++
		ob.rest(Order{
			instrumentID:  instrumentID,
			clientID:      clientID,
			clientOrderID: clientOrderID,
			marketOrderID: marketOrderID,
			side:          side,
			price:         price,
			quantity:      leaves,
			priority:      ob.priority,
		})
	}

	return marketOrderID, nil
}

// Cancel removes the resting order of the client.
// If no such order rests in the book a CANCEL_REJECTED response is emitted and ErrOrderNotFound is returned.
func (ob *OrderBook) Cancel(clientID ClientID, clientOrderID OrderID, instrumentID InstrumentID) error {
	if instrumentID != ob.instrument.id {
		return fmt.Errorf("%w: cancel for instrument %d routed to book %d: %w",
			ErrFatal, instrumentID, ob.instrument.id, ErrInvalidInstrument)
	}

	var h list.Handle
	id, ok := ob.ordersByClient.Get(clientOrderKey{clientID, clientOrderID})
	if ok {
		h, ok = ob.ordersByID.Get(id)
	}
	if !ok || ob.orders.Get(h).clientID != clientID {
		ob.handler.OnClientResponse(ClientResponse{
			Type:           ClientResponseTypeCancelRejected,
			ClientID:       clientID,
			InstrumentID:   instrumentID,
			ClientOrderID:  clientOrderID,
			MarketOrderID:  OrderIDInvalid,
			Side:           OrderSideInvalid,
			Price:          PriceInvalid,
			ExecQuantity:   QuantityInvalid,
			LeavesQuantity: QuantityInvalid,
		})
		return ErrOrderNotFound
	}

	order := ob.deleteOrder(h)
	ob.handler.OnClientResponse(ClientResponse{
		Type:           ClientResponseTypeCanceled,
		ClientID:       clientID,
		InstrumentID:   instrumentID,
		ClientOrderID:  clientOrderID,
		MarketOrderID:  order.marketOrderID,
		Side:           order.side,
		Price:          order.price,
		ExecQuantity:   QuantityInvalid,
		LeavesQuantity: order.quantity,
	})
	ob.handler.OnMarketUpdate(MarketUpdate{
		Type:          MarketUpdateTypeCancel,
		InstrumentID:  instrumentID,
		Side:          order.side,
		Price:         order.price,
		Quantity:      order.quantity,
		MarketOrderID: order.marketOrderID,
		Priority:      order.priority,
	})
	return nil
}

func (ob *OrderBook) validate(clientID ClientID, clientOrderID OrderID, side OrderSide, price Price, quantity Quantity) error {
	switch {
	case clientID == ClientIDInvalid:
		return ErrInvalidClientID
	case clientOrderID == OrderIDInvalid:
		return ErrInvalidOrderID
	case !side.Valid():
		return ErrInvalidOrderSide
	case price <= 0 || price == PriceInvalid:
		return ErrInvalidOrderPrice
	case quantity == 0 || quantity == QuantityInvalid:
		return ErrInvalidOrderQuantity
	}
	if _, ok := ob.ordersByClient.Get(clientOrderKey{clientID, clientOrderID}); ok {
		return ErrOrderDuplicate
	}
	// The remainder of the order must be able to rest without evicting anything.
	if ob.orders.Full() {
		return ErrOrderBookFull
	}
	if levels := ob.levels(side); levels.Full() && levels.Find(price) == avl.Nil {
		return ErrOrderBookFull
	}
	return nil
}

func (ob *OrderBook) levels(side OrderSide) *avl.Tree[Price, PriceLevel] {
	if side == OrderSideBuy {
		return ob.bids
	}
	return ob.asks
}

func crosses(side OrderSide, limit, resting Price) bool {
	if side == OrderSideBuy {
		return limit >= resting
	}
	return limit <= resting
}

// match executes the aggressive order against the opposite side and returns its remaining quantity.
func (ob *OrderBook) match(
	clientID ClientID,
	clientOrderID OrderID,
	marketOrderID OrderID,
	side OrderSide,
	price Price,
	quantity Quantity,
) Quantity {
	levels := ob.levels(side.Opposite())
	leaves := quantity

	for leaves > 0 {
		top := levels.MostLeft()
		if top == avl.Nil {
			break
		}
		level := levels.Value(top)
		if !crosses(side, price, level.price) {
			break
		}

		h := level.queue.Front()
		resting := ob.orders.Get(h)
		fill := min(leaves, resting.quantity)
		leaves -= fill
		resting.quantity -= fill
		level.volume -= uint64(fill)
		ob.stats.addTrade(level.price, fill)

		ob.handler.OnClientResponse(ClientResponse{
			Type:           ClientResponseTypeFilled,
			ClientID:       clientID,
			InstrumentID:   ob.instrument.id,
			ClientOrderID:  clientOrderID,
			MarketOrderID:  marketOrderID,
			Side:           side,
			Price:          level.price,
			ExecQuantity:   fill,
			LeavesQuantity: leaves,
		})
		ob.handler.OnClientResponse(ClientResponse{
			Type:           ClientResponseTypeFilled,
			ClientID:       resting.clientID,
			InstrumentID:   ob.instrument.id,
			ClientOrderID:  resting.clientOrderID,
			MarketOrderID:  resting.marketOrderID,
			Side:           resting.side,
			Price:          level.price,
			ExecQuantity:   fill,
			LeavesQuantity: resting.quantity,
		})
		ob.handler.OnMarketUpdate(MarketUpdate{
			Type:          MarketUpdateTypeTrade,
			InstrumentID:  ob.instrument.id,
			Side:          side,
			Price:         level.price,
			Quantity:      fill,
			MarketOrderID: OrderIDInvalid,
			Priority:      PriorityInvalid,
		})

		if resting.quantity == 0 {
			order := ob.deleteOrder(h)
			ob.handler.OnMarketUpdate(MarketUpdate{
				Type:          MarketUpdateTypeCancel,
				InstrumentID:  ob.instrument.id,
				Side:          order.side,
				Price:         order.price,
				Quantity:      0,
				MarketOrderID: order.marketOrderID,
				Priority:      order.priority,
			})
			continue
		}

		ob.handler.OnMarketUpdate(MarketUpdate{
			Type:          MarketUpdateTypeModify,
			InstrumentID:  ob.instrument.id,
			Side:          resting.side,
			Price:         resting.price,
			Quantity:      resting.quantity,
			MarketOrderID: resting.marketOrderID,
			Priority:      resting.priority,
		})
	}

	return leaves
}

// rest appends the order to the end of its price level queue, creating the level if needed.
// Capacity is checked by validate before any matching happens.
func (ob *OrderBook) rest(order Order) {
	levels := ob.levels(order.side)
	lh := levels.Find(order.price)
	if lh == avl.Nil {
		var err error
		lh, err = levels.Add(order.price, PriceLevel{side: order.side, price: order.price})
		if err != nil {
			panic(fmt.Sprintf("matching: add price level %d: %v", order.price, err))
		}
		levels.Value(lh).queue.Init(ob.orders)
	}
	level := levels.Value(lh)

	order.level = lh
	h, err := level.queue.PushBack(order)
	if err != nil {
		panic(fmt.Sprintf("matching: queue order %d: %v", order.marketOrderID, err))
	}
	level.volume += uint64(order.quantity)
	ob.ordersByID.Set(order.marketOrderID, h)
	ob.ordersByClient.Set(clientOrderKey{order.clientID, order.clientOrderID}, order.marketOrderID)

	ob.handler.OnMarketUpdate(MarketUpdate{
		Type:          MarketUpdateTypeAdd,
		InstrumentID:  order.instrumentID,
		Side:          order.side,
		Price:         order.price,
		Quantity:      order.quantity,
		MarketOrderID: order.marketOrderID,
		Priority:      order.priority,
	})
}

// deleteOrder unlinks the resting order from its level and indices and returns its last state.
// The price level is removed when its last order leaves.
func (ob *OrderBook) deleteOrder(h list.Handle) Order {
	order := *ob.orders.Get(h)
	levels := ob.levels(order.side)
	level := levels.Value(order.level)

	level.volume -= uint64(order.quantity)
	if _, err := level.queue.Remove(h); err != nil {
		panic(fmt.Sprintf("matching: remove order %d: %v", order.marketOrderID, err))
	}
	if level.queue.Len() == 0 {
		if _, err := levels.Remove(order.price); err != nil {
			panic(fmt.Sprintf("matching: remove price level %d: %v", order.price, err))
		}
	}

	ob.ordersByID.Delete(order.marketOrderID)
	ob.ordersByClient.Delete(clientOrderKey{order.clientID, order.clientOrderID})
	return order
}
