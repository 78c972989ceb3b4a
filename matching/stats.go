package matching

import (
	"lukechampine.com/uint128"
)

// Stats accumulates trading statistics of an order book.
type Stats struct {
	Trades         uint64
	TradedQuantity uint64
	TradedNotional uint128.Uint128 // sum of price*quantity over all trades
	LastPrice      Price
}

func (s *Stats) addTrade(price Price, quantity Quantity) {
	s.Trades++
	s.TradedQuantity += uint64(quantity)
	s.TradedNotional = s.TradedNotional.Add(uint128.From64(uint64(price)).Mul64(uint64(quantity)))
	s.LastPrice = price
}

// AveragePrice returns the volume weighted average trade price in ticks, rounded down.
func (s Stats) AveragePrice() uint64 {
	if s.TradedQuantity == 0 {
		return 0
	}
	return s.TradedNotional.Div64(s.TradedQuantity).Lo
}
