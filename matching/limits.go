package matching

// Limits bounds the memory preallocated by a single order book.
type Limits struct {
	MaxOrders      int // resting orders in the book
	MaxPriceLevels int // price levels on each side
}

// DefaultLimits returns limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxOrders:      defaultMaxOrders,
		MaxPriceLevels: defaultMaxPriceLevels,
	}
}

// Valid returns true if both limits are positive.
func (l Limits) Valid() bool {
	return l.MaxOrders > 0 && l.MaxPriceLevels > 0
}
