package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptonstudio/crypton-exchange-core/config"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// gateway counts client responses by type.
type gateway struct {
	responses [matching.ClientResponseTypeRejected + 1]uint64
	total     uint64
}

func (g *gateway) onResponse(response matching.ClientResponse) {
	if response.Type <= matching.ClientResponseTypeRejected {
		g.responses[response.Type]++
	}
	g.total++
}

// downstream counts the recovered market updates and tracks the live orders they describe.
type downstream struct {
	updates [matching.MarketUpdateTypeSnapshotEnd + 1]uint64
	total   uint64
	orders  map[matching.InstrumentID]map[matching.OrderID]struct{}
}

func newDownstream() *downstream {
	return &downstream{orders: make(map[matching.InstrumentID]map[matching.OrderID]struct{})}
}

func (d *downstream) onUpdate(update matching.MarketUpdate) {
	if update.Type <= matching.MarketUpdateTypeSnapshotEnd {
		d.updates[update.Type]++
	}
	d.total++

	orders := d.orders[update.InstrumentID]
	if orders == nil {
		orders = make(map[matching.OrderID]struct{})
		d.orders[update.InstrumentID] = orders
	}
	switch update.Type {
	case matching.MarketUpdateTypeClear:
		clear(orders)
	case matching.MarketUpdateTypeAdd:
		orders[update.MarketOrderID] = struct{}{}
	case matching.MarketUpdateTypeCancel:
		delete(orders, update.MarketOrderID)
	}
}

func printStatistics(cfg *config.Config, p *pipeline, gw *gateway, ds *downstream, submitted uint64, elapsed time.Duration) {
	fmt.Printf("MATCHING ENGINE:\n")
	fmt.Printf("Requests submitted %10d\n", submitted)
	for t := matching.ClientResponseTypeAccepted; t <= matching.ClientResponseTypeRejected; t++ {
		fmt.Printf("%-18s %10d\n", t, gw.responses[t])
	}
	fmt.Printf("Total responses %13d\n", gw.total)
	fmt.Printf("Resting orders %14d\n", p.engine.Orders())
	fmt.Println()

	for _, instrument := range cfg.Engine.Instruments {
		ob := p.engine.OrderBook(matching.InstrumentID(instrument.ID))
		if ob == nil {
			continue
		}
		tick := instrument.Tick()
		stats := ob.Stats()
		fmt.Printf("%s:\n", instrument.Name)
		fmt.Printf("  Trades %20d\n", stats.Trades)
		fmt.Printf("  Traded quantity %11d\n", stats.TradedQuantity)
		fmt.Printf("  Traded notional %11s\n", decimal.NewFromBigInt(stats.TradedNotional.Big(), 0).Mul(tick))
		fmt.Printf("  Last price %16s\n", ticks(stats.LastPrice, tick))
		fmt.Printf("  Average price %13s\n", decimal.NewFromUint64(stats.AveragePrice()).Mul(tick))
		if level := ob.TopBid(); level != nil {
			fmt.Printf("  Best bid %18s x %d\n", ticks(level.Price(), tick), level.Volume())
		}
		if level := ob.TopAsk(); level != nil {
			fmt.Printf("  Best ask %18s x %d\n", ticks(level.Price(), tick), level.Volume())
		}
		fmt.Printf("  Resting orders %12d, downstream %d\n", ob.Size(), len(ds.orders[matching.InstrumentID(instrument.ID)]))
	}
	fmt.Println()

	fmt.Printf("MARKET DATA:\n")
	fmt.Printf("Published %19d\n", p.publisher.SeqNum())
	for t := matching.MarketUpdateTypeClear; t <= matching.MarketUpdateTypeTrade; t++ {
		fmt.Printf("%-18s %10d\n", t, ds.updates[t])
	}
	fmt.Printf("Forwarded %19d\n", ds.total)
	fmt.Printf("Gaps %24d\n", p.consumer.Gaps())
	fmt.Printf("Recoveries %18d\n", p.consumer.Recoveries())
	fmt.Printf("Consumer state %14s\n", p.consumer.State())
	fmt.Println()

	fmt.Printf("Time elapsed: %f seconds\n", elapsed.Seconds())
	if elapsed > 0 {
		fmt.Printf("RPS: %.2f\n", float64(submitted)/elapsed.Seconds())
	}
}

func ticks(price matching.Price, tick decimal.Decimal) string {
	if price == matching.PriceInvalid || price == 0 {
		return "-"
	}
	return decimal.NewFromInt(int64(price)).Mul(tick).String()
}
