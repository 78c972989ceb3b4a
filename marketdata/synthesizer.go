package marketdata

import (
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// SnapshotSynthesizer rebuilds the live orders of every instrument from the
// sequenced incremental stream and periodically publishes them as a full snapshot.
type SnapshotSynthesizer struct {
	logger *zap.Logger

	updates  *ring.Queue[matching.MarketUpdate]
	snapshot Sender
	interval time.Duration

	instruments []matching.InstrumentID
	// live orders per instrument keyed by priority
	orders     map[matching.InstrumentID]*btree.Map[matching.Priority, matching.MarketUpdate]
	seqNum     uint64
	snapshotAt time.Time

	frame [protocol.MarketUpdateSize]byte

	runner

	snapshots  prometheus.Counter
	sendErrors prometheus.Counter
}

// NewSnapshotSynthesizer creates new SnapshotSynthesizer for the given instruments.
func NewSnapshotSynthesizer(
	instruments []matching.InstrumentID,
	updates *ring.Queue[matching.MarketUpdate],
	snapshot Sender,
	interval time.Duration,
	logger *zap.Logger,
) (*SnapshotSynthesizer, error) {
	if len(instruments) == 0 || interval <= 0 {
		return nil, ErrInvalidSnapshotSetup
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SnapshotSynthesizer{
		logger:      logger.Named("synthesizer"),
		updates:     updates,
		snapshot:    snapshot,
		interval:    interval,
		instruments: slices.Clone(instruments),
		orders:      make(map[matching.InstrumentID]*btree.Map[matching.Priority, matching.MarketUpdate], len(instruments)),
		runner:      newRunner(),
		snapshots:   metrics.MarketDataSnapshots,
		sendErrors:  metrics.MarketDataSendErrors.WithLabelValues("snapshot"),
	}
	slices.Sort(s.instruments)
	s.instruments = slices.Compact(s.instruments)
	for _, id := range s.instruments {
		s.orders[id] = new(btree.Map[matching.Priority, matching.MarketUpdate])
	}
	return s, nil
}

// SeqNum returns the sequence number of the last applied update.
func (s *SnapshotSynthesizer) SeqNum() uint64 {
	return s.seqNum
}

// Orders returns the amount of live orders known for the instrument.
func (s *SnapshotSynthesizer) Orders(instrument matching.InstrumentID) int {
	orders, ok := s.orders[instrument]
	if !ok {
		return 0
	}
	return orders.Len()
}

// Apply applies the sequenced update to the live orders.
// Any returned error means the synthesized state diverged from the engine.
func (s *SnapshotSynthesizer) Apply(update *matching.MarketUpdate) error {
	if update.SeqNum != s.seqNum+1 {
		return fmt.Errorf("expected %d, received %d: %w", s.seqNum+1, update.SeqNum, ErrSequenceGap)
	}
	s.seqNum = update.SeqNum

	switch update.Type {
	case matching.MarketUpdateTypeAdd, matching.MarketUpdateTypeModify, matching.MarketUpdateTypeCancel:
	default:
		return nil
	}

	orders, ok := s.orders[update.InstrumentID]
	if !ok {
		return fmt.Errorf("instrument %d: %w", update.InstrumentID, ErrUnknownInstrument)
	}
	known, found := orders.Get(update.Priority)
	if found != (update.Type != matching.MarketUpdateTypeAdd) ||
		(found && known.MarketOrderID != update.MarketOrderID) {
		return fmt.Errorf("%s: %w", update, ErrInconsistentUpdate)
	}

	switch update.Type {
	case matching.MarketUpdateTypeAdd:
		orders.Set(update.Priority, *update)
	case matching.MarketUpdateTypeModify:
		known.Quantity = update.Quantity
		known.Price = update.Price
		orders.Set(update.Priority, known)
	case matching.MarketUpdateTypeCancel:
		orders.Delete(update.Priority)
	}
	return nil
}

// ApplyPending applies every update queued so far and returns how many were applied.
func (s *SnapshotSynthesizer) ApplyPending() (int, error) {
	n := 0
	for update := s.updates.NextToRead(); update != nil; update = s.updates.NextToRead() {
		err := s.Apply(update)
		s.updates.CommitRead()
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Publish sends a full snapshot of the live orders on the snapshot feed.
// Snapshot messages are numbered from 0, the start and end messages carry
// the sequence number of the last incremental update the snapshot includes.
func (s *SnapshotSynthesizer) Publish() error {
	var seqNum uint64
	send := func(update matching.MarketUpdate) error {
		update.SeqNum = seqNum
		seqNum++
		protocol.PutMarketUpdate(s.frame[:], &update)
		if err := s.snapshot.Send(s.frame[:]); err != nil {
			s.sendErrors.Inc()
			return fmt.Errorf("send snapshot message %d: %w", update.SeqNum, err)
		}
		return nil
	}

	marker := marketUpdateMarker(matching.MarketUpdateTypeSnapshotStart, matching.InstrumentIDInvalid)
	marker.MarketOrderID = matching.OrderID(s.seqNum)
	if err := send(marker); err != nil {
		return err
	}

	orders := 0
	for _, id := range s.instruments {
		if err := send(marketUpdateMarker(matching.MarketUpdateTypeClear, id)); err != nil {
			return err
		}
		var err error
		s.orders[id].Scan(func(_ matching.Priority, update matching.MarketUpdate) bool {
			update.Type = matching.MarketUpdateTypeAdd
			err = send(update)
			orders++
			return err == nil
		})
		if err != nil {
			return err
		}
	}

	marker.Type = matching.MarketUpdateTypeSnapshotEnd
	if err := send(marker); err != nil {
		return err
	}

	s.snapshots.Inc()
	s.snapshotAt = time.Now()
	s.logger.Debug("snapshot published",
		zap.Uint64("seq_num", s.seqNum),
		zap.Int("orders", orders),
		zap.Uint64("messages", seqNum),
	)
	return nil
}

func marketUpdateMarker(typ matching.MarketUpdateType, instrument matching.InstrumentID) matching.MarketUpdate {
	return matching.MarketUpdate{
		Type:          typ,
		InstrumentID:  instrument,
		Side:          matching.OrderSideInvalid,
		Price:         matching.PriceInvalid,
		Quantity:      matching.QuantityInvalid,
		MarketOrderID: matching.OrderIDInvalid,
		Priority:      matching.PriorityInvalid,
	}
}

// Start runs the synthesizer loop in a separate goroutine locked to its OS thread.
func (s *SnapshotSynthesizer) Start() error {
	return s.start(s.loop)
}

// Run runs the synthesizer loop in the calling goroutine until Stop is called or the state diverges.
func (s *SnapshotSynthesizer) Run() error {
	return s.run(s.loop)
}

// Stop asks the synthesizer loop to finish, waits for it and returns the error it stopped with.
func (s *SnapshotSynthesizer) Stop() error {
	return s.stop()
}

// Done returns a channel closed when the synthesizer loop returns.
func (s *SnapshotSynthesizer) Done() <-chan struct{} {
	return s.done
}

// Err returns the error the synthesizer loop stopped with or nil.
func (s *SnapshotSynthesizer) Err() error {
	return s.error()
}

func (s *SnapshotSynthesizer) loop() error {
	s.logger.Info("snapshot synthesizer started", zap.Duration("interval", s.interval))
	s.snapshotAt = time.Now()
	for !s.stopping.Load() {
		n, err := s.ApplyPending()
		if err != nil {
			s.logger.Error("snapshot state diverged, stopping snapshot synthesizer", zap.Error(err))
			return err
		}
		if time.Since(s.snapshotAt) >= s.interval {
			if err := s.Publish(); err != nil {
				s.logger.Error("failed to publish snapshot", zap.Error(err))
				s.snapshotAt = time.Now()
			}
			continue
		}
		if n == 0 {
			runtime.Gosched()
		}
	}
	s.logger.Info("snapshot synthesizer stopped", zap.Uint64("seq_num", s.seqNum))
	return nil
}
