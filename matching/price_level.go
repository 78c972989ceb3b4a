package matching

import (
	"github.com/cryptonstudio/crypton-exchange-core/types/list"
)

// PriceLevel is a FIFO queue of resting orders sharing one side and one price.
type PriceLevel struct {
	side   OrderSide
	price  Price
	volume uint64 // total remaining quantity of the queued orders
	queue  list.List[Order]
}

// Side returns the price level side.
func (pl *PriceLevel) Side() OrderSide {
	return pl.side
}

// Price returns the price level price.
func (pl *PriceLevel) Price() Price {
	return pl.price
}

// Volume returns the total remaining quantity of the queued orders.
func (pl *PriceLevel) Volume() uint64 {
	return pl.volume
}

// Orders returns the number of queued orders.
func (pl *PriceLevel) Orders() int {
	return pl.queue.Len()
}

// Front returns the oldest queued order or nil.
func (pl *PriceLevel) Front() *Order {
	return pl.queue.Value(pl.queue.Front())
}

// Iterator returns an iterator over the queued orders from the oldest to the newest.
func (pl *PriceLevel) Iterator() list.Iterator[Order] {
	return pl.queue.Iterator()
}
