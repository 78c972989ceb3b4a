package kafka

import (
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

var (
	ErrNoBrokers = errors.New("kafka brokers are not set")
	ErrNoTopic   = errors.New("kafka topic is not set")
)

// Config describes a single partition feed.
type Config struct {
	Brokers      []string
	Topic        string
	Partition    int
	BatchTimeout time.Duration
	// Offset a receiver starts from on every Subscribe,
	// kafka-go FirstOffset or LastOffset.
	StartOffset int64
	// Messages buffered by a receiver between polls, a power of two.
	BufferSize int
}

// DefaultConfig returns the feed defaults for the topic.
func DefaultConfig(brokers []string, topic string) Config {
	return Config{
		Brokers:      brokers,
		Topic:        topic,
		BatchTimeout: time.Millisecond,
		StartOffset:  kafkago.LastOffset,
		BufferSize:   1 << 14,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Topic == "" {
		return ErrNoTopic
	}
	return nil
}
