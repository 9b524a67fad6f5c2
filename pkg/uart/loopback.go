package uart

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrLineClosed is returned by Loopback after Close.
var ErrLineClosed = errors.New("line closed")

// Loopback is an in-memory line with TX wired to RX, like a jumper between
// the two pins. It implements io.ReadWriteCloser.
type Loopback struct {
	lock     sync.Mutex
	cond     *sync.Cond
	wire     *queue.Queue
	closed   bool
	detached bool
	stuck    int
}

// NewLoopback creates a connected Loopback.
func NewLoopback() *Loopback {
	l := &Loopback{wire: queue.New(), stuck: -1}
	l.cond = sync.NewCond(&l.lock)
	return l
}

// StuckAt forces every byte on the wire to bit (0 or 1), emulating a line
// shorted to ground or to VCC. A negative bit clears the fault.
func (l *Loopback) StuckAt(bit int) *Loopback {
	l.lock.Lock()
	l.stuck = bit
	l.lock.Unlock()
	return l
}

// Detach emulates an unplugged jumper: written bytes are lost.
func (l *Loopback) Detach(detached bool) *Loopback {
	l.lock.Lock()
	l.detached = detached
	l.lock.Unlock()
	return l
}

// Len returns the number of bytes in flight.
func (l *Loopback) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.wire.Length()
}

// Write implements io.Writer.
func (l *Loopback) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return 0, ErrLineClosed
	}
	if l.detached {
		return len(p), nil
	}
	for _, b := range p {
		if l.stuck >= 0 {
			b = byte(l.stuck)
		}
		l.wire.Add(b)
	}
	l.cond.Broadcast()
	return len(p), nil
}

// Read implements io.Reader. It blocks until a byte is on the wire.
func (l *Loopback) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	for l.wire.Length() == 0 && !l.closed {
		l.cond.Wait()
	}
	if l.closed {
		return 0, ErrLineClosed
	}
	n := 0
	for n < len(p) && l.wire.Length() > 0 {
		p[n] = l.wire.Remove().(byte)
		n++
	}
	return n, nil
}

// Close implements io.Closer and unblocks pending reads.
func (l *Loopback) Close() error {
	l.lock.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.lock.Unlock()
	return nil
}
