package matching

// Handler receives everything an order book emits while processing requests.
// Handler methods are called synchronously from the matching goroutine.
//
//go:generate mockgen -destination=mocks/interfaces.go -package=mockmatching . Handler
type Handler interface {
	// Private execution reports
	OnClientResponse(response ClientResponse)

	// Public order book events
	OnMarketUpdate(update MarketUpdate)
}
