package main

import (
	"math"
	"math/rand/v2"

	"github.com/cryptonstudio/crypton-exchange-core/config"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// generator produces a synthetic client order flow around a base price.
type generator struct {
	cfg         config.GeneratorConfig
	rand        *rand.Rand
	instruments []matching.InstrumentID
	// last client order id per client
	orderIDs []matching.OrderIDSequence
}

func newGenerator(cfg config.GeneratorConfig, instruments []matching.InstrumentID) *generator {
	return &generator{
		cfg:         cfg,
		rand:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		instruments: instruments,
		orderIDs:    make([]matching.OrderIDSequence, cfg.Clients),
	}
}

func (g *generator) randomChoice(n int) int {
	return g.rand.IntN(n)
}

// randomNorm returns a normally distributed value cut to [down; up].
func (g *generator) randomNorm(down, up float64) float64 {
	std := (up - down) / (2.0 * 5) // range = [-5*std; +5*std]
	mean := (up + down) / 2.0
	return math.Min(math.Max(g.rand.NormFloat64()*std+mean, down), up)
}

// next returns the next request. Cancels target an earlier order of the same client,
// possibly already filled or canceled.
func (g *generator) next() matching.ClientRequest {
	client := g.randomChoice(g.cfg.Clients)
	request := matching.ClientRequest{
		ClientID:     matching.ClientID(client + 1),
		InstrumentID: g.instruments[g.randomChoice(len(g.instruments))],
	}

	orderIDs := &g.orderIDs[client]
	if last := orderIDs.Last(); last > 0 && g.rand.Float64() < g.cfg.CancelRatio {
		request.Type = matching.ClientRequestTypeCancel
		request.OrderID = matching.OrderID(g.rand.Uint64N(uint64(last)) + 1)
		return request
	}

	request.Type = matching.ClientRequestTypeNew
	request.OrderID = orderIDs.Next()
	request.Side = matching.OrderSideBuy
	if g.rand.IntN(2) == 1 {
		request.Side = matching.OrderSideSell
	}
	spread := float64(g.cfg.PriceRange)
	request.Price = matching.Price(g.cfg.BasePrice + int64(math.Round(g.randomNorm(-spread, spread))))
	request.Quantity = matching.Quantity(g.rand.Uint32N(g.cfg.MaxQuantity) + 1)
	return request
}
