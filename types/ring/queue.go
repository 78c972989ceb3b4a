package ring

import (
	"sync/atomic"
)

const cacheLineSize = 64

type pad [cacheLineSize]byte

// Queue is a bounded single-producer single-consumer queue over a preallocated ring of slots.
//
// The producer reserves a slot with NextToWrite, fills it in place and publishes it with
// CommitWrite. The consumer reads the oldest slot with NextToRead and releases it with
// CommitRead. Exactly one goroutine may act as producer and exactly one as consumer.
// Slots are never allocated after construction.
type Queue[T any] struct {
	_ pad

	// written by the producer only
	write      atomic.Uint64
	cachedRead uint64
	_          pad

	// written by the consumer only
	read        atomic.Uint64
	cachedWrite uint64
	_           pad

	mask  uint64
	slots []T
}

// New creates new Queue instance with the given capacity.
// Capacity must be a power of two not less than 2.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrInvalidCapacity
	}
	return &Queue[T]{
		mask:  uint64(capacity - 1),
		slots: make([]T, capacity),
	}, nil
}

// MustNew is like New but panics on invalid capacity.
func MustNew[T any](capacity int) *Queue[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// NextToWrite returns the slot the producer should fill next
// or nil if the queue is full. Calling it repeatedly without CommitWrite returns the same slot.
func (q *Queue[T]) NextToWrite() *T {
	w := q.write.Load()
	if w-q.cachedRead > q.mask {
		q.cachedRead = q.read.Load()
		if w-q.cachedRead > q.mask {
			return nil
		}
	}
	return &q.slots[w&q.mask]
}

// CommitWrite publishes the slot returned by the last NextToWrite call to the consumer.
func (q *Queue[T]) CommitWrite() {
	w := q.write.Load()
	if w-q.cachedRead > q.mask {
		q.cachedRead = q.read.Load()
		if w-q.cachedRead > q.mask {
			panic("ring: commit write on a full queue")
		}
	}
	q.write.Store(w + 1)
}

// NextToRead returns the oldest published slot or nil if the queue is empty.
// The slot content stays valid until CommitRead.
func (q *Queue[T]) NextToRead() *T {
	r := q.read.Load()
	if r == q.cachedWrite {
		q.cachedWrite = q.write.Load()
		if r == q.cachedWrite {
			return nil
		}
	}
	return &q.slots[r&q.mask]
}

// CommitRead releases the slot returned by the last NextToRead call back to the producer.
func (q *Queue[T]) CommitRead() {
	r := q.read.Load()
	if r == q.cachedWrite {
		q.cachedWrite = q.write.Load()
		if r == q.cachedWrite {
			panic("ring: commit read on an empty queue")
		}
	}
	q.read.Store(r + 1)
}

// Push copies v into the next slot. It returns false if the queue is full.
func (q *Queue[T]) Push(v T) bool {
	slot := q.NextToWrite()
	if slot == nil {
		return false
	}
	*slot = v
	q.CommitWrite()
	return true
}

// Pop removes and returns the oldest element. The second result is false if the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	slot := q.NextToRead()
	if slot == nil {
		return v, false
	}
	v = *slot
	q.CommitRead()
	return v, true
}

// Len returns the number of published and not yet released elements.
// The value is approximate while producer and consumer are running.
func (q *Queue[T]) Len() int {
	r := q.read.Load()
	w := q.write.Load()
	if w < r {
		return 0
	}
	return int(w - r)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}
