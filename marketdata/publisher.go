package marketdata

import (
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// Publisher drains the engine market updates queue, stamps sequence numbers
// and sends every update on the incremental feed.
// Stamped updates are also forwarded to the snapshot synthesizer queue when it is set.
type Publisher struct {
	logger *zap.Logger

	updates     *ring.Queue[matching.MarketUpdate]
	synthesizer *ring.Queue[matching.MarketUpdate]
	incremental Sender

	seqNum atomic.Uint64
	frame  [protocol.MarketUpdateSize]byte

	runner

	published   prometheus.Counter
	sendErrors  prometheus.Counter
	forwardWait prometheus.Counter
	forwardDrop prometheus.Counter
}

// NewPublisher creates new Publisher. The synthesizer queue may be nil.
func NewPublisher(
	updates *ring.Queue[matching.MarketUpdate],
	synthesizer *ring.Queue[matching.MarketUpdate],
	incremental Sender,
	logger *zap.Logger,
) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		logger:      logger.Named("publisher"),
		updates:     updates,
		synthesizer: synthesizer,
		incremental: incremental,
		runner:      newRunner(),
		published:   metrics.MarketDataPublished,
		sendErrors:  metrics.MarketDataSendErrors.WithLabelValues("incremental"),
		forwardWait: metrics.QueueBackpressure.WithLabelValues("snapshot_updates"),
		forwardDrop: metrics.QueueDropped.WithLabelValues("snapshot_updates"),
	}
}

// SeqNum returns the sequence number of the last published update.
// It is safe to call from any goroutine.
func (p *Publisher) SeqNum() uint64 {
	return p.seqNum.Load()
}

// PublishPending publishes every update queued so far and returns how many were published.
// A failed send loses the update for the receivers, it is still forwarded to the synthesizer.
func (p *Publisher) PublishPending() int {
	n := 0
	for update := p.updates.NextToRead(); update != nil; update = p.updates.NextToRead() {
		update.SeqNum = p.seqNum.Add(1)
		if ce := p.logger.Check(zapcore.DebugLevel, "publishing market update"); ce != nil {
			ce.Write(zap.Stringer("update", update))
		}

		protocol.PutMarketUpdate(p.frame[:], update)
		if err := p.incremental.Send(p.frame[:]); err != nil {
			p.sendErrors.Inc()
			p.logger.Error("failed to send incremental update", zap.Uint64("seq_num", update.SeqNum), zap.Error(err))
		}
		p.published.Inc()

		if p.synthesizer != nil {
			push(&p.runner, p.synthesizer, *update, p.forwardWait, p.forwardDrop)
		}
		p.updates.CommitRead()
		n++
	}
	return n
}

// Start runs the publisher loop in a separate goroutine locked to its OS thread.
func (p *Publisher) Start() error {
	return p.start(p.loop)
}

// Run runs the publisher loop in the calling goroutine until Stop is called.
func (p *Publisher) Run() error {
	return p.run(p.loop)
}

// Stop asks the publisher loop to finish and waits for it.
// Updates already queued when the loop notices the request are published.
func (p *Publisher) Stop() error {
	return p.stop()
}

// Done returns a channel closed when the publisher loop returns.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

func (p *Publisher) loop() error {
	p.logger.Info("market data publisher started")
	for !p.stopping.Load() {
		if p.PublishPending() == 0 {
			runtime.Gosched()
		}
	}
	p.PublishPending()
	p.logger.Info("market data publisher stopped", zap.Uint64("seq_num", p.seqNum.Load()))
	return nil
}
