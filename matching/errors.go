package matching

import (
	"errors"
)

// Errors used by the package.
var (
	ErrOrderBookDuplicate   = errors.New("order book is duplicated")
	ErrOrderBookNotFound    = errors.New("order book is not found")
	ErrOrderBookFull        = errors.New("order book is full")
	ErrOrderDuplicate       = errors.New("order is duplicated")
	ErrOrderNotFound        = errors.New("order is not found")
	ErrInvalidInstrument    = errors.New("invalid instrument")
	ErrInvalidLimits        = errors.New("invalid order book limits")
	ErrInvalidClientID      = errors.New("invalid client id")
	ErrInvalidOrderID       = errors.New("invalid order id")
	ErrInvalidOrderSide     = errors.New("invalid order side")
	ErrInvalidOrderPrice    = errors.New("invalid order price")
	ErrInvalidOrderQuantity = errors.New("invalid order quantity")
	ErrInvalidRequestType   = errors.New("invalid client request type")
	ErrEngineRunning        = errors.New("matching engine is running")

	// ErrFatal marks errors after which the matching engine must not continue.
	ErrFatal = errors.New("fatal matching error")
)

// IsFatal returns true if err must stop the matching engine.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
