package matching

// OrderSide is an enumeration of possible trading sides (buy/sell).
// Buy and sell are encoded as +1 and -1 so the side can be used as a sign.
type OrderSide int8

const (
	// OrderSideInvalid represents unknown or missing side.
	OrderSideInvalid OrderSide = 0
	// OrderSideBuy represents market side which includes only buy orders (bids).
	OrderSideBuy OrderSide = 1
	// OrderSideSell represents market side which includes only sell orders (asks).
	OrderSideSell OrderSide = -1
)

// Valid returns true for buy and sell sides.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Opposite returns the side orders of s are matched against.
func (s OrderSide) Opposite() OrderSide {
	return -s
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "invalid"
	}
}
