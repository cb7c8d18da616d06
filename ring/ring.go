// Package ring provides a fixed-capacity single-producer, single-consumer
// byte queue.
//
// One slot of the backing storage is always left unused so that an empty
// buffer (head == tail) can be told apart from a full one
// ((head+1) mod capacity == tail). A Buffer created with capacity n therefore
// holds at most n-1 bytes.
//
// The buffer does no locking of its own. Exactly one goroutine may call the
// producer methods (Push, Append) and exactly one goroutine may call the
// consumer methods (Pop, ReadByte) at any time. Head and tail are
// published with atomic stores so the two sides observe each other's
// progress without a mutex.
package ring

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrFull is returned when a push or append does not fit in the
	// remaining free space. The buffer is left exactly as it was.
	ErrFull = errors.New("ring: buffer full")

	// ErrEmpty is returned by Pop when no byte is buffered.
	ErrEmpty = errors.New("ring: buffer empty")
)

// Buffer is a circular byte queue with head/tail indices.
type Buffer struct {
	storage []byte
	// head is the next slot the producer writes. Advanced by the producer only.
	head atomic.Uint32
	// tail is the next slot the consumer reads. Advanced by the consumer only.
	tail atomic.Uint32
}

// New allocates a Buffer backed by capacity bytes. Capacity must be at least
// two, since one slot is reserved.
func New(capacity int) *Buffer {
	if capacity < 2 {
		panic("ring: capacity must be >= 2")
	}
	return &Buffer{storage: make([]byte, capacity)}
}

// Cap returns the size of the backing storage.
func (b *Buffer) Cap() int { return len(b.storage) }

func (b *Buffer) next(i uint32) uint32 {
	i++
	if i == uint32(len(b.storage)) {
		return 0
	}
	return i
}

// Len reports how many bytes are currently buffered.
func (b *Buffer) Len() int {
	h, t := b.head.Load(), b.tail.Load()
	if h >= t {
		return int(h - t)
	}
	return len(b.storage) - int(t-h)
}

// Free reports how many more bytes can be pushed before the buffer is full.
func (b *Buffer) Free() int { return len(b.storage) - 1 - b.Len() }

// IsEmpty reports whether head == tail.
func (b *Buffer) IsEmpty() bool { return b.head.Load() == b.tail.Load() }

// IsFull reports whether (head+1) mod capacity == tail.
func (b *Buffer) IsFull() bool { return b.next(b.head.Load()) == b.tail.Load() }

// Push appends one byte.
func (b *Buffer) Push(c byte) error {
	h := b.head.Load()
	n := b.next(h)
	if n == b.tail.Load() {
		return ErrFull
	}
	b.storage[h] = c
	b.head.Store(n)
	return nil
}

// Append pushes all of p or nothing. A partial write never happens: when p
// does not fit, ErrFull is returned and the buffer is unchanged.
func (b *Buffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p) > b.Free() {
		return ErrFull
	}
	h := b.head.Load()
	first := copy(b.storage[h:], p)
	if first < len(p) {
		copy(b.storage, p[first:])
	}
	b.head.Store(uint32((int(h) + len(p)) % len(b.storage)))
	return nil
}

// Pop removes and returns the oldest byte.
func (b *Buffer) Pop() (byte, error) {
	t := b.tail.Load()
	if t == b.head.Load() {
		return 0, ErrEmpty
	}
	c := b.storage[t]
	b.tail.Store(b.next(t))
	return c, nil
}

// ReadByte implements io.ByteReader on top of Pop.
func (b *Buffer) ReadByte() (byte, error) { return b.Pop() }

// Reset empties the buffer. It must only be called while neither side is
// active, for example when a connection slot is being recycled.
func (b *Buffer) Reset() {
	b.head.Store(0)
	b.tail.Store(0)
}
