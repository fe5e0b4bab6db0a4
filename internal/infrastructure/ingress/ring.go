package ingress

import (
	"sync/atomic"
)

// cell is one slot of the ring. sequence tells producers and consumers whose turn it is.
type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// RingBuffer is a bounded circular buffer with atomic head/tail that many
// producers and consumers may use concurrently. Producers claim a slot by
// advancing tail and publish it by bumping the slot's sequence; items come out
// in claim order.
type RingBuffer[T any] struct {
	head  atomic.Uint64
	_     [56]byte // keep head and tail on separate cache lines
	tail  atomic.Uint64
	_     [56]byte
	mask  uint64
	cells []cell[T]
}

// NewRingBuffer allocates a ring buffer, rounding size up to a power of two.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	size = nextPowerOfTwo(size)
	r := &RingBuffer[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds item; returns false if full.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	for {
		tail := r.tail.Load()
		c := &r.cells[tail&r.mask]
		dif := int64(c.sequence.Load()) - int64(tail)

		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
		// another producer claimed the slot first; reload tail
	}
}

// Dequeue removes and returns the oldest published item; ok is false if empty.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	for {
		head := r.head.Load()
		c := &r.cells[head&r.mask]
		dif := int64(c.sequence.Load()) - int64(head+1)

		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				item := c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case dif < 0:
			var zero T
			return zero, false
		}
	}
}

// Len returns number of claimed slots not yet consumed.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.cells)
}

func nextPowerOfTwo(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
