package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/cryptonstudio/crypton-exchange-core/matching"
)

const envPrefix = "EXCHANGE"

// Market data transports.
const (
	TransportMemory = "memory"
	TransportKafka  = "kafka"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the exchange process configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Queues     QueuesConfig     `mapstructure:"queues"`
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type EngineConfig struct {
	Instruments    []InstrumentConfig `mapstructure:"instruments"`
	MaxOrders      int                `mapstructure:"max_orders"`
	MaxPriceLevels int                `mapstructure:"max_price_levels"`
}

// Limits returns the order book limits shared by all instruments.
func (c EngineConfig) Limits() matching.Limits {
	return matching.Limits{MaxOrders: c.MaxOrders, MaxPriceLevels: c.MaxPriceLevels}
}

type InstrumentConfig struct {
	ID   uint32 `mapstructure:"id"`
	Name string `mapstructure:"name"`
	// Price of one tick, prices are integer amounts of ticks.
	TickSize string `mapstructure:"tick_size"`
}

// Instrument returns the matching instrument.
func (c InstrumentConfig) Instrument() matching.Instrument {
	return matching.NewInstrument(matching.InstrumentID(c.ID), c.Name)
}

// Tick returns the parsed tick size. It must only be called on a validated config.
func (c InstrumentConfig) Tick() decimal.Decimal {
	return decimal.RequireFromString(c.TickSize)
}

// QueuesConfig holds ring queue capacities, all powers of two.
type QueuesConfig struct {
	Requests      int `mapstructure:"requests"`
	Responses     int `mapstructure:"responses"`
	MarketUpdates int `mapstructure:"market_updates"`
	Snapshot      int `mapstructure:"snapshot"`
	Consumer      int `mapstructure:"consumer"`
	Feed          int `mapstructure:"feed"`
}

type MarketDataConfig struct {
	Transport        string        `mapstructure:"transport"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	// Every n-th incremental frame is lost on the memory transport, 0 disables loss.
	DropEvery uint64 `mapstructure:"drop_every"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	IncrementalTopic string   `mapstructure:"incremental_topic"`
	SnapshotTopic    string   `mapstructure:"snapshot_topic"`
}

// GeneratorConfig drives the synthetic order flow of the exchange process.
type GeneratorConfig struct {
	Orders      int     `mapstructure:"orders"`
	Clients     int     `mapstructure:"clients"`
	BasePrice   int64   `mapstructure:"base_price"`
	PriceRange  int64   `mapstructure:"price_range"`
	MaxQuantity uint32  `mapstructure:"max_quantity"`
	CancelRatio float64 `mapstructure:"cancel_ratio"`
	Seed        uint64  `mapstructure:"seed"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	// Empty disables the HTTP endpoint.
	Listen string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	limits := matching.DefaultLimits()
	v.SetDefault("engine.instruments", []map[string]any{
		{"id": 1, "name": "BTC-USDT", "tick_size": "0.01"},
		{"id": 2, "name": "ETH-USDT", "tick_size": "0.01"},
	})
	v.SetDefault("engine.max_orders", limits.MaxOrders)
	v.SetDefault("engine.max_price_levels", limits.MaxPriceLevels)

	v.SetDefault("queues.requests", 1<<16)
	v.SetDefault("queues.responses", 1<<16)
	v.SetDefault("queues.market_updates", 1<<16)
	v.SetDefault("queues.snapshot", 1<<16)
	v.SetDefault("queues.consumer", 1<<16)
	v.SetDefault("queues.feed", 1<<16)

	v.SetDefault("marketdata.transport", TransportMemory)
	v.SetDefault("marketdata.snapshot_interval", time.Second)
	v.SetDefault("marketdata.drop_every", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.incremental_topic", "exchange.marketdata.incremental")
	v.SetDefault("kafka.snapshot_topic", "exchange.marketdata.snapshot")

	v.SetDefault("generator.orders", 1_000_000)
	v.SetDefault("generator.clients", 16)
	v.SetDefault("generator.base_price", 100_000)
	v.SetDefault("generator.price_range", 100)
	v.SetDefault("generator.max_quantity", 100)
	v.SetDefault("generator.cancel_ratio", 0.3)
	v.SetDefault("generator.seed", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.listen", ":9100")
}

// Load reads the configuration from the YAML file at path, if given,
// applies EXCHANGE_ prefixed environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values the exchange cannot run with.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if len(c.Engine.Instruments) == 0 {
		invalid("no instruments")
	}
	ids := make(map[uint32]struct{}, len(c.Engine.Instruments))
	for _, instrument := range c.Engine.Instruments {
		if _, ok := ids[instrument.ID]; ok {
			invalid("instrument %d is duplicated", instrument.ID)
		}
		ids[instrument.ID] = struct{}{}
		if instrument.Name == "" {
			invalid("instrument %d has no name", instrument.ID)
		}
		tick, err := decimal.NewFromString(instrument.TickSize)
		if err != nil || !tick.IsPositive() {
			invalid("instrument %d tick size %q", instrument.ID, instrument.TickSize)
		}
	}
	if !c.Engine.Limits().Valid() {
		invalid("order book limits %+v", c.Engine.Limits())
	}

	for name, size := range map[string]int{
		"requests":       c.Queues.Requests,
		"responses":      c.Queues.Responses,
		"market_updates": c.Queues.MarketUpdates,
		"snapshot":       c.Queues.Snapshot,
		"consumer":       c.Queues.Consumer,
		"feed":           c.Queues.Feed,
	} {
		if size < 2 || size&(size-1) != 0 {
			invalid("queue %s size %d is not a power of two", name, size)
		}
	}

	switch c.MarketData.Transport {
	case TransportMemory:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.IncrementalTopic == "" || c.Kafka.SnapshotTopic == "" {
			invalid("kafka transport needs brokers and both topics")
		}
	default:
		invalid("market data transport %q", c.MarketData.Transport)
	}
	if c.MarketData.SnapshotInterval <= 0 {
		invalid("snapshot interval %s", c.MarketData.SnapshotInterval)
	}

	g := c.Generator
	if g.Orders < 0 || g.Clients <= 0 || g.BasePrice <= g.PriceRange || g.PriceRange <= 0 || g.MaxQuantity == 0 ||
		g.CancelRatio < 0 || g.CancelRatio >= 1 {
		invalid("generator %+v", g)
	}

	return errors.Join(errs...)
}
