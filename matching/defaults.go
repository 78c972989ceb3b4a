package matching

const (
	// defaultMaxOrders specifies how many resting orders a single order book can hold.
	defaultMaxOrders = 1 << 16

	// defaultMaxPriceLevels specifies how many price levels each side of a single order book can hold.
	defaultMaxPriceLevels = 1 << 12

	// defaultReservedOrderBookSlots specifies initial size of array storing order books by instrument id.
	defaultReservedOrderBookSlots = 16

	// maxOrderBookSlots bounds instrument ids accepted by the engine.
	maxOrderBookSlots = 1 << 16
)
