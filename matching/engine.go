package matching

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// Engine owns the order books and processes client requests one at a time.
//
// Requests are read from the inbound queue, responses and market updates are written
// to the outbound queues. The engine is the only consumer of the inbound queue and the only
// producer of both outbound queues. An engine runs once: after Stop it cannot be restarted.
type Engine struct {
	logger *zap.Logger

	// Order books indexed by instrument id
	orderBooks      []*OrderBook
	orderBooksCount int

	// Market order ids are unique across all order books
	orderIDs OrderIDSequence

	requests  *ring.Queue[ClientRequest]
	responses *ring.Queue[ClientResponse]
	updates   *ring.Queue[MarketUpdate]

	running  atomic.Bool
	stopping atomic.Bool
	done     chan struct{}
	err      atomic.Pointer[error]

	counters engineCounters
}

type engineCounters struct {
	requests         [ClientRequestTypeCancel + 1]prometheus.Counter
	responses        [ClientResponseTypeRejected + 1]prometheus.Counter
	updates          [MarketUpdateTypeSnapshotEnd + 1]prometheus.Counter
	fatal            prometheus.Counter
	rejected         prometheus.Counter
	responsesWait    prometheus.Counter
	updatesWait      prometheus.Counter
	responsesDropped prometheus.Counter
	updatesDropped   prometheus.Counter
}

func newEngineCounters() engineCounters {
	var c engineCounters
	for i := range c.requests {
		c.requests[i] = metrics.EngineRequests.WithLabelValues(ClientRequestType(i).String())
	}
	for i := range c.responses {
		c.responses[i] = metrics.EngineResponses.WithLabelValues(ClientResponseType(i).String())
	}
	for i := range c.updates {
		c.updates[i] = metrics.EngineMarketUpdates.WithLabelValues(MarketUpdateType(i).String())
	}
	c.fatal = metrics.EngineRequestErrors.WithLabelValues("fatal")
	c.rejected = metrics.EngineRequestErrors.WithLabelValues("rejected")
	c.responsesWait = metrics.QueueBackpressure.WithLabelValues("responses")
	c.updatesWait = metrics.QueueBackpressure.WithLabelValues("market_updates")
	c.responsesDropped = metrics.QueueDropped.WithLabelValues("responses")
	c.updatesDropped = metrics.QueueDropped.WithLabelValues("market_updates")
	return c
}

// NewEngine creates and returns new Engine instance connected to the given queues.
func NewEngine(
	requests *ring.Queue[ClientRequest],
	responses *ring.Queue[ClientResponse],
	updates *ring.Queue[MarketUpdate],
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:     logger.Named("engine"),
		orderBooks: make([]*OrderBook, defaultReservedOrderBookSlots),
		requests:   requests,
		responses:  responses,
		updates:    updates,
		done:       make(chan struct{}),
		counters:   newEngineCounters(),
	}
}

////////////////////////////////////////////////////////////////
// Engine common
////////////////////////////////////////////////////////////////

// OrderBook returns the order book with given instrument id.
func (e *Engine) OrderBook(id InstrumentID) *OrderBook {
	if int(id) >= len(e.orderBooks) {
		return nil
	}
	return e.orderBooks[id]
}

// OrderBooks returns total amount of currently existing order books.
func (e *Engine) OrderBooks() int {
	return e.orderBooksCount
}

// Orders returns total amount of currently resting orders.
func (e *Engine) Orders() int {
	orders := 0
	for _, ob := range e.orderBooks {
		if ob != nil {
			orders += ob.Size()
		}
	}
	return orders
}

// AddOrderBook creates new order book and adds it to the engine.
// Order books can only be added before the engine starts running.
func (e *Engine) AddOrderBook(instrument Instrument, limits Limits) (*OrderBook, error) {
	if e.running.Load() {
		return nil, ErrEngineRunning
	}
	id := instrument.ID()
	if id >= maxOrderBookSlots {
		return nil, fmt.Errorf("instrument %d: %w", id, ErrInvalidInstrument)
	}
	if e.OrderBook(id) != nil {
		return nil, fmt.Errorf("instrument %d: %w", id, ErrOrderBookDuplicate)
	}

	orderBook, err := NewOrderBook(instrument, limits, &e.orderIDs, engineHandler{e})
	if err != nil {
		return nil, err
	}

	// Grow the order books slots if needed
	if int(id) >= len(e.orderBooks) {
		size := len(e.orderBooks)
		for size <= int(id) {
			size *= 2
		}
		orderBooks := make([]*OrderBook, size)
		copy(orderBooks, e.orderBooks)
		e.orderBooks = orderBooks
	}
	e.orderBooks[id] = orderBook
	e.orderBooksCount++

	e.logger.Info("order book added",
		zap.Uint32("instrument", uint32(id)),
		zap.String("name", instrument.Name()),
		zap.Int("max_orders", limits.MaxOrders),
		zap.Int("max_price_levels", limits.MaxPriceLevels),
	)
	return orderBook, nil
}

////////////////////////////////////////////////////////////////
// Requests processing
////////////////////////////////////////////////////////////////

// Submit appends the request to the inbound queue.
// It must be called from a single producer goroutine and returns ring.ErrQueueFull when the queue is full.
func (e *Engine) Submit(request ClientRequest) error {
	if !e.requests.Push(request) {
		return ring.ErrQueueFull
	}
	return nil
}

// Process applies a single client request to its order book.
// Errors wrapping ErrFatal mean the engine state can no longer be trusted,
// other errors are already reported to the client with a response.
func (e *Engine) Process(request *ClientRequest) error {
	if ce := e.logger.Check(zapcore.DebugLevel, "processing request"); ce != nil {
		ce.Write(zap.Stringer("request", request))
	}
	if request.Type <= ClientRequestTypeCancel {
		e.counters.requests[request.Type].Inc()
	}

	orderBook := e.OrderBook(request.InstrumentID)
	if orderBook == nil {
		return fmt.Errorf("%w: instrument %d: %w", ErrFatal, request.InstrumentID, ErrOrderBookNotFound)
	}

	switch request.Type {
	case ClientRequestTypeNew:
		_, err := orderBook.Add(request.ClientID, request.OrderID, request.InstrumentID, request.Side, request.Price, request.Quantity)
		return err
	case ClientRequestTypeCancel:
		return orderBook.Cancel(request.ClientID, request.OrderID, request.InstrumentID)
	default:
		return fmt.Errorf("%w: %s: %w", ErrFatal, request.Type, ErrInvalidRequestType)
	}
}

// Start runs the engine loop in a separate goroutine locked to its OS thread.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = e.run()
	}()
	return nil
}

// Run runs the engine loop in the calling goroutine until Stop is called or a fatal error happens.
func (e *Engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	return e.run()
}

func (e *Engine) run() error {
	defer close(e.done)

	e.logger.Info("matching engine started", zap.Int("order_books", e.orderBooksCount))
	for !e.stopping.Load() {
		request := e.requests.NextToRead()
		if request == nil {
			runtime.Gosched()
			continue
		}

		err := e.Process(request)
		e.requests.CommitRead()
		if err == nil {
			continue
		}
		if IsFatal(err) {
			e.counters.fatal.Inc()
			e.logger.Error("fatal request error, stopping matching engine", zap.Error(err))
			e.err.Store(&err)
			return err
		}
		e.counters.rejected.Inc()
		if ce := e.logger.Check(zapcore.DebugLevel, "request rejected"); ce != nil {
			ce.Write(zap.Error(err))
		}
	}
	e.logger.Info("matching engine stopped", zap.Int("resting_orders", e.Orders()))
	return nil
}

// Stop asks the engine loop to finish after the request in progress
// and waits for it. It returns the fatal error the loop stopped with, if any.
func (e *Engine) Stop() error {
	e.stopping.Store(true)
	if e.running.Load() {
		<-e.done
	}
	return e.Err()
}

// Done returns a channel closed when the engine loop returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the fatal error the engine loop stopped with or nil.
func (e *Engine) Err() error {
	if err := e.err.Load(); err != nil {
		return *err
	}
	return nil
}

////////////////////////////////////////////////////////////////
// Outbound queues
////////////////////////////////////////////////////////////////

// engineHandler forwards everything order books emit to the engine outbound queues.
type engineHandler struct {
	e *Engine
}

func (h engineHandler) OnClientResponse(response ClientResponse) {
	c := &h.e.counters
	if response.Type <= ClientResponseTypeRejected {
		c.responses[response.Type].Inc()
	}
	publish(h.e, h.e.responses, response, c.responsesWait, c.responsesDropped)
}

func (h engineHandler) OnMarketUpdate(update MarketUpdate) {
	c := &h.e.counters
	if update.Type <= MarketUpdateTypeSnapshotEnd {
		c.updates[update.Type].Inc()
	}
	publish(h.e, h.e.updates, update, c.updatesWait, c.updatesDropped)
}

// publish writes v to the queue, waiting for a free slot while the engine is not stopping.
// Once stop is requested a value that cannot be queued is dropped.
func publish[T any](e *Engine, q *ring.Queue[T], v T, wait, dropped prometheus.Counter) {
	slot := q.NextToWrite()
	if slot == nil {
		wait.Inc()
		for slot == nil {
			if e.stopping.Load() {
				dropped.Inc()
				e.logger.Warn("outbound queue is full during shutdown, message dropped")
				return
			}
			runtime.Gosched()
			slot = q.NextToWrite()
		}
	}
	*slot = v
	q.CommitWrite()
}
