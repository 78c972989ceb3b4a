package main

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cryptonstudio/crypton-exchange-core/config"
	"github.com/cryptonstudio/crypton-exchange-core/marketdata"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/providers/kafka"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

// pipeline wires the engine to the market data publisher, the snapshot synthesizer and the consumer.
type pipeline struct {
	logger *zap.Logger

	requests  *ring.Queue[matching.ClientRequest]
	responses *ring.Queue[matching.ClientResponse]
	updates   *ring.Queue[matching.MarketUpdate]
	snapshots *ring.Queue[matching.MarketUpdate]
	recovered *ring.Queue[matching.MarketUpdate]

	engine      *matching.Engine
	publisher   *marketdata.Publisher
	synthesizer *marketdata.SnapshotSynthesizer
	consumer    *marketdata.Consumer

	closers []func() error
}

func newPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{logger: logger}
	var err error
	if p.requests, err = ring.New[matching.ClientRequest](cfg.Queues.Requests); err != nil {
		return nil, fmt.Errorf("requests queue: %w", err)
	}
	if p.responses, err = ring.New[matching.ClientResponse](cfg.Queues.Responses); err != nil {
		return nil, fmt.Errorf("responses queue: %w", err)
	}
	if p.updates, err = ring.New[matching.MarketUpdate](cfg.Queues.MarketUpdates); err != nil {
		return nil, fmt.Errorf("market updates queue: %w", err)
	}
	if p.snapshots, err = ring.New[matching.MarketUpdate](cfg.Queues.Snapshot); err != nil {
		return nil, fmt.Errorf("snapshot queue: %w", err)
	}
	if p.recovered, err = ring.New[matching.MarketUpdate](cfg.Queues.Consumer); err != nil {
		return nil, fmt.Errorf("consumer queue: %w", err)
	}

	p.engine = matching.NewEngine(p.requests, p.responses, p.updates, logger)
	instruments := make([]matching.InstrumentID, 0, len(cfg.Engine.Instruments))
	for _, instrument := range cfg.Engine.Instruments {
		if _, err := p.engine.AddOrderBook(instrument.Instrument(), cfg.Engine.Limits()); err != nil {
			return nil, err
		}
		instruments = append(instruments, instrument.Instrument().ID())
	}

	var (
		incrementalSender   marketdata.Sender
		incrementalReceiver marketdata.Receiver
		snapshotSender      marketdata.Sender
		snapshotReceiver    marketdata.SnapshotReceiver
	)
	switch cfg.MarketData.Transport {
	case config.TransportMemory:
		incremental, err := marketdata.NewMemoryChannel("incremental_feed", cfg.Queues.Feed, true)
		if err != nil {
			return nil, fmt.Errorf("incremental feed: %w", err)
		}
		incremental.SetDrop(marketdata.DropEvery(cfg.MarketData.DropEvery))
		snapshot, err := marketdata.NewMemoryChannel("snapshot_feed", cfg.Queues.Feed, false)
		if err != nil {
			return nil, fmt.Errorf("snapshot feed: %w", err)
		}
		incrementalSender, incrementalReceiver = incremental, incremental
		snapshotSender, snapshotReceiver = snapshot, snapshot

	case config.TransportKafka:
		incrementalCfg := kafka.DefaultConfig(cfg.Kafka.Brokers, cfg.Kafka.IncrementalTopic)
		snapshotCfg := kafka.DefaultConfig(cfg.Kafka.Brokers, cfg.Kafka.SnapshotTopic)
		incrementalCfg.BufferSize = cfg.Queues.Feed
		snapshotCfg.BufferSize = cfg.Queues.Feed

		sender, err := kafka.NewSender(incrementalCfg, logger)
		if err != nil {
			return nil, err
		}
		receiver, err := kafka.NewReceiver(incrementalCfg, logger)
		if err != nil {
			return nil, err
		}
		// the incremental feed is always joined
		if err := receiver.Subscribe(); err != nil {
			return nil, fmt.Errorf("join incremental feed: %w", err)
		}
		snapshotSenderKafka, err := kafka.NewSender(snapshotCfg, logger)
		if err != nil {
			return nil, err
		}
		snapshotReceiverKafka, err := kafka.NewReceiver(snapshotCfg, logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, receiver.Unsubscribe, snapshotReceiverKafka.Unsubscribe, sender.Close, snapshotSenderKafka.Close)
		incrementalSender, incrementalReceiver = sender, receiver
		snapshotSender, snapshotReceiver = snapshotSenderKafka, snapshotReceiverKafka

	default:
		return nil, fmt.Errorf("%w: transport %q", config.ErrInvalidConfig, cfg.MarketData.Transport)
	}

	p.publisher = marketdata.NewPublisher(p.updates, p.snapshots, incrementalSender, logger)
	p.synthesizer, err = marketdata.NewSnapshotSynthesizer(instruments, p.snapshots, snapshotSender, cfg.MarketData.SnapshotInterval, logger)
	if err != nil {
		return nil, err
	}
	p.consumer = marketdata.NewConsumer(incrementalReceiver, snapshotReceiver, p.recovered, logger)
	return p, nil
}

// start starts the components downstream first.
func (p *pipeline) start() error {
	return errors.Join(
		p.consumer.Start(),
		p.synthesizer.Start(),
		p.publisher.Start(),
		p.engine.Start(),
	)
}

// drained returns true once every accepted request went through the engine
// and the consumer forwarded every published update.
func (p *pipeline) drained() bool {
	return p.requests.Len() == 0 &&
		p.updates.Len() == 0 &&
		p.consumer.NextSeqNum() == p.publisher.SeqNum()+1
}

// wait waits until the pipeline is drained or the timeout expires.
func (p *pipeline) wait(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !p.drained() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// stop stops the components upstream first and returns the engine or synthesizer failure.
func (p *pipeline) stop() error {
	engineErr := p.engine.Stop()
	publisherErr := p.publisher.Stop()
	synthesizerErr := p.synthesizer.Stop()
	consumerErr := p.consumer.Stop()

	var closeErrs []error
	for _, closer := range p.closers {
		closeErrs = append(closeErrs, closer())
	}
	if err := errors.Join(closeErrs...); err != nil {
		p.logger.Warn("failed to close market data feeds", zap.Error(err))
	}
	return errors.Join(engineErr, publisherErr, synthesizerErr, consumerErr)
}
