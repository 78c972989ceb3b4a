package matching

import (
	"github.com/cryptonstudio/crypton-exchange-core/types/avl"
)

// Order is a resting limit order.
type Order struct {
	instrumentID  InstrumentID
	clientID      ClientID
	clientOrderID OrderID
	marketOrderID OrderID
	side          OrderSide
	price         Price
	quantity      Quantity // remaining quantity
	priority      Priority

	level avl.Handle // price level queuing the order
}

// InstrumentID returns the order instrument id.
func (o *Order) InstrumentID() InstrumentID {
	return o.instrumentID
}

// ClientID returns the id of the client owning the order.
func (o *Order) ClientID() ClientID {
	return o.clientID
}

// ClientOrderID returns the client assigned order id.
func (o *Order) ClientOrderID() OrderID {
	return o.clientOrderID
}

// MarketOrderID returns the exchange assigned order id.
func (o *Order) MarketOrderID() OrderID {
	return o.marketOrderID
}

// Side returns the order side.
func (o *Order) Side() OrderSide {
	return o.side
}

// IsBuy returns true if the order is a buy order.
func (o *Order) IsBuy() bool {
	return o.side == OrderSideBuy
}

// Price returns the order limit price.
func (o *Order) Price() Price {
	return o.price
}

// Quantity returns the remaining order quantity.
func (o *Order) Quantity() Quantity {
	return o.quantity
}

// Priority returns the order position in the time queue of its price level.
func (o *Order) Priority() Priority {
	return o.priority
}
