package ring

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MaxCapacity is the largest supported capacity.
const MaxCapacity = 1 << 30

var (
	// ErrFull is the panic value of Insert on a full buffer.
	ErrFull = errors.New("ring buffer full")
	// ErrEmpty is the panic value of Remove on an empty buffer.
	ErrEmpty = errors.New("ring buffer empty")
	// ErrCapacity indicates an unsupported capacity.
	ErrCapacity = errors.New("invalid ring buffer capacity")
)

// Producer is the insert side of a Buffer.
type Producer interface {
	IsFull() bool
	Insert(byte)
	TryInsert(byte) bool
}

// Consumer is the remove side of a Buffer.
type Consumer interface {
	IsEmpty() bool
	Remove() byte
	TryRemove() (byte, bool)
}

// Buffer is a fixed-capacity byte FIFO for exactly one producer and one
// consumer running concurrently.
//
// head and tail are free-running counters, head written only by the consumer
// and tail only by the producer. A slot is written before tail is published
// and read before head is published, so the other side never sees a slot
// that is not ready.
type Buffer struct {
	head atomic.Uint32
	_    cpu.CacheLinePad
	tail atomic.Uint32
	_    cpu.CacheLinePad

	mask  uint32
	slots []byte
}

// New creates an empty Buffer, rounding capacity up to a power of two.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, ErrCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return newBuffer(size), nil
}

// NewExact creates an empty Buffer whose capacity must be a power of two.
func NewExact(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity > MaxCapacity || capacity&(capacity-1) != 0 {
		return nil, ErrCapacity
	}
	return newBuffer(capacity), nil
}

func newBuffer(size int) *Buffer {
	return &Buffer{
		mask:  uint32(size - 1),
		slots: make([]byte, size),
	}
}

// Init resets the buffer to empty. It must not race with Insert or Remove.
func (b *Buffer) Init() {
	b.head.Store(0)
	b.tail.Store(0)
}

// Cap returns the capacity in bytes.
func (b *Buffer) Cap() int {
	return len(b.slots)
}

// Len returns the number of occupied slots.
// From a goroutine that is neither the producer nor the consumer the result
// is a snapshot, always within [0, Cap()].
func (b *Buffer) Len() int {
	return int(b.used())
}

// IsEmpty reports whether no byte is stored.
func (b *Buffer) IsEmpty() bool {
	return b.used() == 0
}

// IsFull reports whether all slots are occupied.
func (b *Buffer) IsFull() bool {
	return b.used() == uint32(len(b.slots))
}

// head is loaded first: tail only moves forward, so tail-head can't go
// negative; it can only exceed the capacity for a third observer.
func (b *Buffer) used() uint32 {
	h := b.head.Load()
	t := b.tail.Load()
	if n := t - h; n <= uint32(len(b.slots)) {
		return n
	}
	return uint32(len(b.slots))
}

// Insert appends v. Only the producer may call it, and only when the buffer
// is not full; inserting into a full buffer panics with ErrFull.
func (b *Buffer) Insert(v byte) {
	if !b.TryInsert(v) {
		panic(ErrFull)
	}
}

// TryInsert appends v if there is room and reports whether it did.
// A rejected byte leaves the buffer untouched.
func (b *Buffer) TryInsert(v byte) bool {
	t := b.tail.Load()
	if t-b.head.Load() >= uint32(len(b.slots)) {
		return false
	}
	b.slots[t&b.mask] = v
	b.tail.Store(t + 1)
	return true
}

// Remove takes the oldest byte. Only the consumer may call it, and only when
// the buffer is not empty; removing from an empty buffer panics with ErrEmpty.
func (b *Buffer) Remove() byte {
	v, ok := b.TryRemove()
	if !ok {
		panic(ErrEmpty)
	}
	return v
}

// TryRemove takes the oldest byte if any.
func (b *Buffer) TryRemove() (byte, bool) {
	h := b.head.Load()
	if b.tail.Load() == h {
		return 0, false
	}
	v := b.slots[h&b.mask]
	b.head.Store(h + 1)
	return v, true
}

// Producer returns a view exposing only the insert side.
func (b *Buffer) Producer() Producer {
	return producer{b}
}

// Consumer returns a view exposing only the remove side.
func (b *Buffer) Consumer() Consumer {
	return consumer{b}
}

type producer struct{ b *Buffer }

func (p producer) IsFull() bool          { return p.b.IsFull() }
func (p producer) Insert(v byte)         { p.b.Insert(v) }
func (p producer) TryInsert(v byte) bool { return p.b.TryInsert(v) }

type consumer struct{ b *Buffer }

func (c consumer) IsEmpty() bool           { return c.b.IsEmpty() }
func (c consumer) Remove() byte            { return c.b.Remove() }
func (c consumer) TryRemove() (byte, bool) { return c.b.TryRemove() }
