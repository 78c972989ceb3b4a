package matching

import (
	"math"
)

type (
	// ClientID identifies a trading client.
	ClientID uint64
	// InstrumentID identifies a traded instrument and its order book.
	InstrumentID uint32
	// OrderID is either a client-assigned or an exchange-assigned (market) order id.
	OrderID uint64
	// Price is an integer count of price ticks.
	Price int64
	// Quantity is an integer count of lots.
	Quantity uint32
	// Priority is the position of an order in the time queue of its price level.
	Priority uint64
)

// Sentinel values marking an absent field.
const (
	ClientIDInvalid     ClientID     = math.MaxUint64
	InstrumentIDInvalid InstrumentID = math.MaxUint32
	OrderIDInvalid      OrderID      = math.MaxUint64
	PriceInvalid        Price        = math.MaxInt64
	QuantityInvalid     Quantity     = math.MaxUint32
	PriorityInvalid     Priority     = math.MaxUint64
)

// OrderIDSequence generates exchange-wide unique market order ids starting from 1.
// NOTE: Not thread-safe, it is owned by the matching goroutine.
type OrderIDSequence struct {
	last OrderID
}

// Next returns the next market order id.
func (s *OrderIDSequence) Next() OrderID {
	s.last++
	return s.last
}

// Last returns the last generated market order id.
func (s *OrderIDSequence) Last() OrderID {
	return s.last
}
