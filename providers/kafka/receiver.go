package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cryptonstudio/crypton-exchange-core/marketdata"
	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

const retryDelay = 100 * time.Millisecond

// MessageReader is the part of kafka-go Reader used by Receiver.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	SetOffset(offset int64) error
	Close() error
}

// Receiver reads a Kafka topic partition in a background goroutine while subscribed.
// Messages are handed over through a ring queue, Poll never blocks.
// Messages that do not fit into the queue are lost as datagrams would be.
type Receiver struct {
	logger    *zap.Logger
	cfg       Config
	newReader func() MessageReader

	messages *ring.Queue[[]byte]
	cancel   context.CancelFunc
	done     chan struct{}

	errMu sync.Mutex
	err   error

	dropped prometheus.Counter
}

var _ marketdata.SnapshotReceiver = (*Receiver)(nil)

// NewReceiver creates new unsubscribed Receiver reading with kafka-go.
func NewReceiver(cfg Config, logger *zap.Logger) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewReceiverWithReader(cfg, func() MessageReader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:   cfg.Brokers,
			Topic:     cfg.Topic,
			Partition: cfg.Partition,
			MinBytes:  1,
			MaxBytes:  10e6,
			MaxWait:   10 * time.Millisecond,
		})
	}, logger)
}

// NewReceiverWithReader creates new unsubscribed Receiver using readers made by newReader.
func NewReceiverWithReader(cfg Config, newReader func() MessageReader, logger *zap.Logger) (*Receiver, error) {
	messages, err := ring.New[[]byte](cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{
		logger:    logger.Named("kafka").With(zap.String("topic", cfg.Topic)),
		cfg:       cfg,
		newReader: newReader,
		messages:  messages,
		dropped:   metrics.QueueDropped.WithLabelValues("kafka_" + cfg.Topic),
	}, nil
}

// Subscribe starts reading from the configured start offset.
// Messages left from a previous subscription are discarded.
func (r *Receiver) Subscribe() error {
	if r.cancel != nil {
		return nil
	}
	reader := r.newReader()
	if err := reader.SetOffset(r.cfg.StartOffset); err != nil {
		return errors.Join(err, reader.Close())
	}
	r.discard()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.read(ctx, reader, r.done)
	r.logger.Debug("subscribed")
	return nil
}

// Unsubscribe stops reading and discards the messages not polled yet.
func (r *Receiver) Unsubscribe() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.discard()
	r.logger.Debug("unsubscribed")
	return nil
}

// Poll calls fn for every message received so far.
// It also returns the last read error reported by the background reader.
func (r *Receiver) Poll(fn func(data []byte) error) error {
	for msg := r.messages.NextToRead(); msg != nil; msg = r.messages.NextToRead() {
		data := *msg
		*msg = nil
		r.messages.CommitRead()
		if err := fn(data); err != nil {
			return err
		}
	}
	r.errMu.Lock()
	err := r.err
	r.err = nil
	r.errMu.Unlock()
	return err
}

func (r *Receiver) read(ctx context.Context, reader MessageReader, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := reader.Close(); err != nil {
			r.logger.Warn("failed to close reader", zap.Error(err))
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.errMu.Lock()
			r.err = err
			r.errMu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		slot := r.messages.NextToWrite()
		if slot == nil {
			r.dropped.Inc()
			continue
		}
		*slot = msg.Value
		r.messages.CommitWrite()
	}
}

func (r *Receiver) discard() {
	for msg := r.messages.NextToRead(); msg != nil; msg = r.messages.NextToRead() {
		*msg = nil
		r.messages.CommitRead()
	}
}
