package marketdata

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// State is the consumer sequencing state.
type State uint8

const (
	StateNormal State = iota
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateRecovering:
		return "RECOVERING"
	default:
		return "UNKNOWN"
	}
}

// Consumer reads the incremental feed and forwards a gap free stream of market updates.
//
// On a sequence gap it joins the snapshot feed and buffers both feeds until a complete
// snapshot and the incremental updates following it can be reconciled. The snapshot events
// are then forwarded stamped with the sequence number the snapshot was taken at,
// followed by the buffered incremental updates.
type Consumer struct {
	logger *zap.Logger

	incremental Receiver
	snapshot    SnapshotReceiver
	output      *ring.Queue[matching.MarketUpdate]

	incrementalFrames *protocol.Processor
	snapshotFrames    *protocol.Processor

	state      State
	subscribed bool
	nextSeqNum uint64
	progress   atomic.Uint64

	snapshotQueue    btree.Map[uint64, matching.MarketUpdate]
	incrementalQueue btree.Map[uint64, matching.MarketUpdate]
	replay           []matching.MarketUpdate

	forwarded  atomic.Uint64
	gaps       atomic.Uint64
	recoveries atomic.Uint64

	runner

	counters consumerCounters
}

type consumerCounters struct {
	forwarded           prometheus.Counter
	gaps                prometheus.Counter
	recoveries          prometheus.Counter
	unexpectedSnapshots prometheus.Counter
	incrementalErrors   prometheus.Counter
	snapshotErrors      prometheus.Counter
	outputWait          prometheus.Counter
	outputDropped       prometheus.Counter
	recovering          prometheus.Gauge
}

// NewConsumer creates new Consumer writing recovered updates to the output queue.
func NewConsumer(
	incremental Receiver,
	snapshot SnapshotReceiver,
	output *ring.Queue[matching.MarketUpdate],
	logger *zap.Logger,
) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{
		logger:      logger.Named("consumer"),
		incremental: incremental,
		snapshot:    snapshot,
		output:      output,
		nextSeqNum:  1,
		runner:      newRunner(),
		counters: consumerCounters{
			forwarded:           metrics.ConsumerForwarded,
			gaps:                metrics.ConsumerGaps,
			recoveries:          metrics.ConsumerRecoveries,
			unexpectedSnapshots: metrics.ConsumerUnexpectedSnapshots,
			incrementalErrors:   metrics.ConsumerPollErrors.WithLabelValues("incremental"),
			snapshotErrors:      metrics.ConsumerPollErrors.WithLabelValues("snapshot"),
			outputWait:          metrics.QueueBackpressure.WithLabelValues("consumer_updates"),
			outputDropped:       metrics.QueueDropped.WithLabelValues("consumer_updates"),
			recovering:          metrics.ConsumerRecovering,
		},
	}
	c.progress.Store(c.nextSeqNum)
	c.incrementalFrames = protocol.NewMarketUpdateProcessor(func(update matching.MarketUpdate) error {
		c.onIncremental(update)
		return nil
	})
	c.snapshotFrames = protocol.NewMarketUpdateProcessor(func(update matching.MarketUpdate) error {
		c.onSnapshot(update)
		return nil
	})
	return c
}

// State returns the current sequencing state.
func (c *Consumer) State() State {
	return c.state
}

// NextSeqNum returns the next expected incremental sequence number.
// It is safe to call from any goroutine.
func (c *Consumer) NextSeqNum() uint64 {
	return c.progress.Load()
}

// Forwarded returns the amount of updates forwarded downstream.
func (c *Consumer) Forwarded() uint64 {
	return c.forwarded.Load()
}

// Gaps returns the amount of detected sequence gaps.
func (c *Consumer) Gaps() uint64 {
	return c.gaps.Load()
}

// Recoveries returns the amount of completed recoveries.
func (c *Consumer) Recoveries() uint64 {
	return c.recoveries.Load()
}

// Poll processes everything both feeds received so far.
func (c *Consumer) Poll() error {
	var errs []error
	if err := c.incremental.Poll(c.incrementalFrames.ProcessChunk); err != nil {
		c.counters.incrementalErrors.Inc()
		errs = append(errs, fmt.Errorf("poll incremental feed: %w", err))
	}
	if c.state == StateRecovering && !c.subscribed {
		c.subscribe()
	}
	if err := c.snapshot.Poll(c.snapshotFrames.ProcessChunk); err != nil {
		c.counters.snapshotErrors.Inc()
		errs = append(errs, fmt.Errorf("poll snapshot feed: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Consumer) onIncremental(update matching.MarketUpdate) {
	if c.state == StateNormal {
		if update.SeqNum == c.nextSeqNum {
			c.forward(update)
			c.nextSeqNum++
			c.progress.Store(c.nextSeqNum)
			return
		}
		c.logger.Warn("sequence gap detected",
			zap.Uint64("expected", c.nextSeqNum),
			zap.Uint64("received", update.SeqNum),
		)
		c.gaps.Add(1)
		c.counters.gaps.Inc()
		c.startRecovery()
	}
	c.incrementalQueue.Set(update.SeqNum, update)
	c.checkSnapshotSync()
}

func (c *Consumer) onSnapshot(update matching.MarketUpdate) {
	if c.state != StateRecovering {
		c.counters.unexpectedSnapshots.Inc()
		c.logger.Warn("unexpected snapshot message while not recovering", zap.Stringer("update", update))
		return
	}
	if _, ok := c.snapshotQueue.Get(update.SeqNum); ok {
		c.logger.Warn("received snapshot message already buffered, restarting snapshot",
			zap.Uint64("seq_num", update.SeqNum),
			zap.Int("buffered", c.snapshotQueue.Len()),
		)
		c.snapshotQueue.Clear()
	}
	c.snapshotQueue.Set(update.SeqNum, update)
	c.checkSnapshotSync()
}

func (c *Consumer) startRecovery() {
	c.state = StateRecovering
	c.counters.recovering.Set(1)
	c.snapshotQueue.Clear()
	c.incrementalQueue.Clear()
	c.subscribe()
}

func (c *Consumer) subscribe() {
	if err := c.snapshot.Subscribe(); err != nil {
		c.counters.snapshotErrors.Inc()
		c.logger.Error("failed to join snapshot feed", zap.Error(err))
		return
	}
	c.snapshotFrames.Reset()
	c.subscribed = true
}

// checkSnapshotSync completes the recovery once the snapshot buffer holds a whole snapshot
// and the incremental buffer holds every update after it without gaps.
func (c *Consumer) checkSnapshotSync() {
	if c.snapshotQueue.Len() == 0 {
		return
	}
	_, first, _ := c.snapshotQueue.Min()
	if first.Type != matching.MarketUpdateTypeSnapshotStart {
		c.snapshotQueue.Clear()
		return
	}

	c.replay = c.replay[:0]
	var (
		last     matching.MarketUpdate
		expected uint64
		gap      bool
		complete bool
	)
	c.snapshotQueue.Scan(func(seqNum uint64, update matching.MarketUpdate) bool {
		if seqNum != expected {
			gap = true
			return false
		}
		expected++
		switch update.Type {
		case matching.MarketUpdateTypeSnapshotStart:
		case matching.MarketUpdateTypeSnapshotEnd:
			last = update
			complete = true
			return false
		default:
			c.replay = append(c.replay, update)
		}
		return true
	})
	if gap {
		c.logger.Warn("detected gap in snapshot stream",
			zap.Uint64("expected", expected),
			zap.Int("buffered", c.snapshotQueue.Len()),
		)
		c.snapshotQueue.Clear()
		return
	}
	if !complete {
		return
	}

	anchor := uint64(first.MarketOrderID)
	if uint64(last.MarketOrderID) != anchor {
		c.logger.Warn("snapshot end does not match its start",
			zap.Uint64("start", anchor),
			zap.Uint64("end", uint64(last.MarketOrderID)),
		)
		c.snapshotQueue.Clear()
		return
	}
	// Updates up to nextSeqNum-1 are already downstream, an older snapshot would rewind them.
	if anchor < c.nextSeqNum {
		c.logger.Warn("snapshot is older than forwarded updates, waiting for the next one",
			zap.Uint64("anchor", anchor),
			zap.Uint64("next_seq_num", c.nextSeqNum),
		)
		c.snapshotQueue.Clear()
		return
	}
	snapshotEvents := len(c.replay)

	expected = anchor + 1
	c.incrementalQueue.Scan(func(seqNum uint64, update matching.MarketUpdate) bool {
		if seqNum < expected {
			return true
		}
		if seqNum != expected {
			gap = true
			return false
		}
		c.replay = append(c.replay, update)
		expected++
		return true
	})
	if gap {
		c.logger.Warn("detected gap in incremental stream after snapshot",
			zap.Uint64("expected", expected),
			zap.Uint64("anchor", anchor),
		)
		c.snapshotQueue.Clear()
		return
	}

	for i := range c.replay {
		if i < snapshotEvents {
			c.replay[i].SeqNum = anchor
		}
		c.forward(c.replay[i])
	}
	c.nextSeqNum = expected
	c.progress.Store(c.nextSeqNum)
	c.snapshotQueue.Clear()
	c.incrementalQueue.Clear()
	c.state = StateNormal
	c.counters.recovering.Set(0)
	c.recoveries.Add(1)
	c.counters.recoveries.Inc()

	if c.subscribed {
		if err := c.snapshot.Unsubscribe(); err != nil {
			c.logger.Error("failed to leave snapshot feed", zap.Error(err))
		}
		c.subscribed = false
	}

	c.logger.Info("recovered from snapshot",
		zap.Uint64("anchor", anchor),
		zap.Int("snapshot_events", snapshotEvents),
		zap.Int("incremental_events", len(c.replay)-snapshotEvents),
		zap.Uint64("next_seq_num", c.nextSeqNum),
	)
}

func (c *Consumer) forward(update matching.MarketUpdate) {
	if push(&c.runner, c.output, update, c.counters.outputWait, c.counters.outputDropped) {
		c.forwarded.Add(1)
		c.counters.forwarded.Inc()
	}
}

// Start runs the consumer loop in a separate goroutine locked to its OS thread.
func (c *Consumer) Start() error {
	return c.start(c.loop)
}

// Run runs the consumer loop in the calling goroutine until Stop is called.
func (c *Consumer) Run() error {
	return c.run(c.loop)
}

// Stop asks the consumer loop to finish and waits for it.
func (c *Consumer) Stop() error {
	return c.stop()
}

// Done returns a channel closed when the consumer loop returns.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) loop() error {
	c.logger.Info("market data consumer started")
	for !c.stopping.Load() {
		before := c.forwarded.Load()
		if err := c.Poll(); err != nil {
			c.logger.Warn("market data poll failed", zap.Error(err))
		}
		if c.forwarded.Load() == before {
			runtime.Gosched()
		}
	}
	c.logger.Info("market data consumer stopped",
		zap.Uint64("next_seq_num", c.nextSeqNum),
		zap.Uint64("gaps", c.gaps.Load()),
		zap.Uint64("recoveries", c.recoveries.Load()),
	)
	return nil
}
