package marketdata

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cryptonstudio/crypton-exchange-core/metrics"
	"github.com/cryptonstudio/crypton-exchange-core/protocol"
	"github.com/cryptonstudio/crypton-exchange-core/types/ring"
)

type frame = [protocol.MarketUpdateSize]byte

// MemoryChannel is an in-process lossy datagram channel with multicast semantics:
// frames sent while nobody is joined are lost, frames that do not fit are lost too.
// One goroutine may send and one goroutine may poll, subscribe and unsubscribe.
type MemoryChannel struct {
	name    string
	frames  *ring.Queue[frame]
	joined  atomic.Bool
	drop    func(n uint64) bool
	sent    uint64
	dropped atomic.Uint64

	droppedCounter prometheus.Counter
}

var (
	_ Sender           = (*MemoryChannel)(nil)
	_ SnapshotReceiver = (*MemoryChannel)(nil)
)

// NewMemoryChannel creates new MemoryChannel buffering up to capacity frames.
// Capacity must be a power of two.
func NewMemoryChannel(name string, capacity int, joined bool) (*MemoryChannel, error) {
	frames, err := ring.New[frame](capacity)
	if err != nil {
		return nil, err
	}
	c := &MemoryChannel{
		name:           name,
		frames:         frames,
		droppedCounter: metrics.QueueDropped.WithLabelValues(name),
	}
	c.joined.Store(joined)
	return c, nil
}

// SetDrop installs a loss function deciding by the 1-based number of a sent frame whether it is lost.
// It must be called before the channel is used.
func (c *MemoryChannel) SetDrop(drop func(n uint64) bool) {
	c.drop = drop
}

// DropEvery returns a loss function losing every n-th frame.
func DropEvery(n uint64) func(uint64) bool {
	if n == 0 {
		return nil
	}
	return func(i uint64) bool { return i%n == 0 }
}

// Send enqueues a copy of the frame for the receiver.
func (c *MemoryChannel) Send(data []byte) error {
	if len(data) != protocol.MarketUpdateSize {
		return ErrInvalidFrame
	}
	if !c.joined.Load() {
		return nil
	}
	c.sent++
	if c.drop != nil && c.drop(c.sent) {
		c.lose()
		return nil
	}
	slot := c.frames.NextToWrite()
	if slot == nil {
		c.lose()
		return nil
	}
	copy(slot[:], data)
	c.frames.CommitWrite()
	return nil
}

func (c *MemoryChannel) lose() {
	c.dropped.Add(1)
	c.droppedCounter.Inc()
}

// Poll calls fn for every buffered frame.
// Each frame is released before fn runs, so fn may leave or rejoin the channel.
func (c *MemoryChannel) Poll(fn func(data []byte) error) error {
	var buf frame
	for slot := c.frames.NextToRead(); slot != nil; slot = c.frames.NextToRead() {
		buf = *slot
		c.frames.CommitRead()
		if err := fn(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe joins the channel. Frames buffered before are discarded.
func (c *MemoryChannel) Subscribe() error {
	c.discard()
	c.joined.Store(true)
	return nil
}

// Unsubscribe leaves the channel and discards buffered frames.
func (c *MemoryChannel) Unsubscribe() error {
	c.joined.Store(false)
	c.discard()
	return nil
}

// Joined returns true while frames are accepted.
func (c *MemoryChannel) Joined() bool {
	return c.joined.Load()
}

// Dropped returns the number of lost frames.
func (c *MemoryChannel) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *MemoryChannel) discard() {
	for c.frames.NextToRead() != nil {
		c.frames.CommitRead()
	}
}
