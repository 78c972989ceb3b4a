package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cryptonstudio/crypton-exchange-core/config"
	"github.com/cryptonstudio/crypton-exchange-core/logger"
	"github.com/cryptonstudio/crypton-exchange-core/matching"
	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

func main() {
	var configPath, replayPath, recordPath string
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&replayPath, "replay", "", "Replay client requests recorded in the file instead of generating them")
	flag.StringVar(&recordPath, "record", "", "Record generated client requests to the file and exit")
	flag.Parse()

	if err := run(configPath, replayPath, recordPath); err != nil {
		fmt.Fprintf(os.Stderr, "exchange: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, replayPath, recordPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	instruments := make([]matching.InstrumentID, 0, len(cfg.Engine.Instruments))
	for _, instrument := range cfg.Engine.Instruments {
		instruments = append(instruments, instrument.Instrument().ID())
	}
	gen := newGenerator(cfg.Generator, instruments)
	if recordPath != "" {
		return record(recordPath, gen, cfg.Generator.Orders)
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		server := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	if err := p.start(); err != nil {
		return err
	}
	log.Info("exchange started",
		zap.Int("instruments", len(instruments)),
		zap.String("transport", cfg.MarketData.Transport),
		zap.Uint64("drop_every", cfg.MarketData.DropEvery),
	)

	gw := &gateway{}
	ds := newDownstream()
	var submitted atomic.Uint64
	stopped := make(chan struct{})
	entered := make(chan struct{})
	timeStart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(entered)
		submit := func(request matching.ClientRequest) error {
			for {
				if err := p.engine.Submit(request); err == nil {
					submitted.Add(1)
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
					runtime.Gosched()
				}
			}
		}
		if replayPath != "" {
			_, err := replay(replayPath, submit)
			return err
		}
		for range cfg.Generator.Orders {
			if err := submit(gen.next()); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-p.engine.Done():
			return p.engine.Err()
		case <-p.synthesizer.Done():
			return p.synthesizer.Err()
		case <-stopped:
			return nil
		}
	})
	g.Go(func() error {
		drain(p.responses, gw.onResponse, stopped)
		return nil
	})
	g.Go(func() error {
		drain(p.recovered, ds.onUpdate, stopped)
		return nil
	})

	select {
	case <-entered:
		if gctx.Err() == nil && !p.wait(2*cfg.MarketData.SnapshotInterval+5*time.Second) {
			log.Warn("market data consumer did not catch up",
				zap.Uint64("published", p.publisher.SeqNum()),
				zap.Uint64("next_seq_num", p.consumer.NextSeqNum()),
			)
		}
	case <-gctx.Done():
	}
	elapsed := time.Since(timeStart)

	stopErr := p.stop()
	close(stopped)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		err = nil
	}

	fmt.Println()
	printStatistics(cfg, p, gw, ds, submitted.Load(), elapsed)

	if stopErr != nil {
		log.Error("exchange stopped on fatal error", zap.Error(stopErr))
		return stopErr
	}
	return err
}

// drain hands every queued element to handle until stopped is closed, then drains the rest.
func drain[T any](q *ring.Queue[T], handle func(T), stopped <-chan struct{}) {
	for {
		select {
		case <-stopped:
			for v, ok := q.Pop(); ok; v, ok = q.Pop() {
				handle(v)
			}
			return
		default:
		}
		v, ok := q.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		handle(v)
	}
}
