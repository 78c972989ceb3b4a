package main

import (
	"fmt"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

// Matcher counts everything the order books emit.
type Matcher struct {
	responses    [matching.ClientResponseTypeRejected + 1]uint64
	updates      [matching.MarketUpdateTypeSnapshotEnd + 1]uint64
	errors       uint64
	totalUpdates uint64
}

var _ matching.Handler = (*Matcher)(nil)

func (m *Matcher) OnClientResponse(response matching.ClientResponse) {
	if response.Type <= matching.ClientResponseTypeRejected {
		m.responses[response.Type]++
	}
	m.totalUpdates++
}

func (m *Matcher) OnMarketUpdate(update matching.MarketUpdate) {
	if update.Type <= matching.MarketUpdateTypeSnapshotEnd {
		m.updates[update.Type]++
	}
	m.totalUpdates++
}

func (m *Matcher) OnError(err error) {
	m.errors++
}

func (m *Matcher) PrintStatistics() {
	fmt.Printf("MATCHING ENGINE HANDLER:\n")
	fmt.Printf("Accepted %20d\n", m.responses[matching.ClientResponseTypeAccepted])
	fmt.Printf("Canceled %20d\n", m.responses[matching.ClientResponseTypeCanceled])
	fmt.Printf("Filled %22d\n", m.responses[matching.ClientResponseTypeFilled])
	fmt.Printf("Cancel rejected %13d\n", m.responses[matching.ClientResponseTypeCancelRejected])
	fmt.Printf("Rejected %20d\n", m.responses[matching.ClientResponseTypeRejected])
	fmt.Printf("Order adds %18d\n", m.updates[matching.MarketUpdateTypeAdd])
	fmt.Printf("Order modifies %14d\n", m.updates[matching.MarketUpdateTypeModify])
	fmt.Printf("Order cancels %15d\n", m.updates[matching.MarketUpdateTypeCancel])
	fmt.Printf("Trades %22d\n", m.updates[matching.MarketUpdateTypeTrade])
	fmt.Printf("Errors %22d\n", m.errors)
	fmt.Printf("Total calls %17d\n", m.totalUpdates)
}
