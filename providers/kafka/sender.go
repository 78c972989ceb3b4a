package kafka

import (
	"bytes"
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cryptonstudio/crypton-exchange-core/marketdata"
)

// MessageWriter is the part of kafka-go Writer used by Sender.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Sender publishes market data frames to a Kafka topic, one frame per message.
type Sender struct {
	logger *zap.Logger
	writer MessageWriter
}

var _ marketdata.Sender = (*Sender)(nil)

// NewSender creates new Sender with an asynchronous kafka-go writer.
func NewSender(cfg Config, logger *zap.Logger) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("kafka").With(zap.String("topic", cfg.Topic))
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Error("failed to publish frames", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return NewSenderWithWriter(writer, logger), nil
}

// NewSenderWithWriter creates new Sender on top of the given writer.
func NewSenderWithWriter(writer MessageWriter, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger, writer: writer}
}

// Send queues a copy of the frame. The writer is asynchronous, delivery errors are only logged.
func (s *Sender) Send(frame []byte) error {
	return s.writer.WriteMessages(context.Background(), kafkago.Message{Value: bytes.Clone(frame)})
}

// Close flushes pending messages and closes the writer.
func (s *Sender) Close() error {
	return s.writer.Close()
}
