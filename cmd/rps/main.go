package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// nolint
func main() {
	var symCount, ordersCount int
	var cancelRatio float64
	var norm, heavy bool
	var seed uint64
	flag.IntVar(&symCount, "s", 3, "Symbols count")
	flag.IntVar(&ordersCount, "i", 5_000_000, "Input orders count")
	flag.Float64Var(&cancelRatio, "c", 0.2, "Share of cancel requests")
	flag.BoolVar(&norm, "n", false, "Use normal distribution for price and quantity")
	flag.BoolVar(&heavy, "heavy", false, "Generate heavy sides for orderbook")
	flag.Uint64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	symbols := []matching.InstrumentID{}
	handler := &Matcher{}
	orderIDs := &matching.OrderIDSequence{}
	orderBooks := make(map[matching.InstrumentID]*matching.OrderBook, symCount)
	limits := matching.Limits{MaxOrders: 1 << 20, MaxPriceLevels: 1 << 14}
	for i := range symCount {
		sym := matching.InstrumentID(i + 1)
		symbols = append(symbols, sym)
		ob, err := matching.NewOrderBook(matching.NewInstrument(sym, strconv.FormatUint(uint64(sym), 10)), limits, orderIDs, handler)
		if err != nil {
			panic(err)
		}
		orderBooks[sym] = ob
	}

	fmt.Println("prepare input")

	inp := generateInput(newSource(seed, norm), ordersCount, cancelRatio, heavy, symbols)

	fmt.Println("start execution")

	s := time.Now()
	for _, r := range inp {
		ob := orderBooks[r.InstrumentID]
		var err error
		switch r.Type {
		case matching.ClientRequestTypeNew:
			_, err = ob.Add(r.ClientID, r.OrderID, r.InstrumentID, r.Side, r.Price, r.Quantity)
		case matching.ClientRequestTypeCancel:
			err = ob.Cancel(r.ClientID, r.OrderID, r.InstrumentID)
		}
		if err != nil {
			handler.OnError(err)
		}
	}
	e := time.Now()

	handler.PrintStatistics()
	for _, sym := range symbols {
		stats := orderBooks[sym].Stats()
		fmt.Printf("Symbol %d: %d resting orders, %d trades, average price %d\n",
			sym, orderBooks[sym].Size(), stats.Trades, stats.AveragePrice())
	}

	rps := float64(ordersCount) * float64(time.Second) / float64(e.Sub(s))

	fmt.Printf("RPS: %.5f\n", rps)
}

// source draws benchmark input from a seeded generator so runs are repeatable.
type source struct {
	rnd  *rand.Rand
	norm bool
}

func newSource(seed uint64, norm bool) *source {
	return &source{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), norm: norm}
}

// price returns a value in [lo, hi] rounded to prec decimals.
// With norm set values cluster around the middle of the range, 5 deviations each way.
func (s *source) price(lo, hi float64, prec int) float64 {
	v := s.rnd.Float64()*(hi-lo) + lo
	if s.norm {
		v = min(max(s.rnd.NormFloat64()*(hi-lo)/10+(hi+lo)/2, lo), hi)
	}
	pow := math.Pow10(prec)
	return math.Round(v*pow) / pow
}

func pick[T any](s *source, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[s.rnd.IntN(len(items))]
}

// ticks converts a price with two decimals to an integer amount of 0.01 ticks.
func ticks(price float64) matching.Price {
	return matching.Price(math.Round(price * 100))
}

func generateInput(src *source, ordersCount int, cancelRatio float64, heavy bool, symbols []matching.InstrumentID) []matching.ClientRequest {
	sides := []matching.OrderSide{matching.OrderSideBuy, matching.OrderSideSell}
	inp := make([]matching.ClientRequest, 0, ordersCount)
	for i := range ordersCount {
		sym := pick(src, symbols)
		client := matching.ClientID(src.rnd.IntN(16) + 1)

		if i > 0 && src.rnd.Float64() < cancelRatio {
			inp = append(inp, matching.ClientRequest{
				Type:         matching.ClientRequestTypeCancel,
				ClientID:     client,
				InstrumentID: sym,
				OrderID:      matching.OrderID(src.rnd.IntN(i) + 1),
			})
			continue
		}

		// heavy mode fills both sides without crossing during the first half
		lo, hi := 1.0, 100.0
		side := pick(src, sides)
		if heavy && i < ordersCount/2 {
			if side == matching.OrderSideBuy {
				hi = 50
			} else {
				lo = 51
			}
		}
		price := src.price(lo, hi, 2)
		quant := src.price(1, 100, 0)

		inp = append(inp, matching.ClientRequest{
			Type:         matching.ClientRequestTypeNew,
			ClientID:     client,
			InstrumentID: sym,
			OrderID:      matching.OrderID(i + 1),
			Side:         side,
			Price:        ticks(price),
			Quantity:     matching.Quantity(quant),
		})
	}

	return inp
}
