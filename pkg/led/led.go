// Package led models the board indicator lights.
package led

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Mask selects one or more LEDs.
type Mask uint32

// Board LEDs.
const (
	TX  Mask = 1 << 0
	RX  Mask = 1 << 1
	All Mask = TX | RX
)

var maskNames = []struct {
	mask Mask
	name string
}{
	{TX, "TX"},
	{RX, "RX"},
}

// String returns the names of LEDs in the mask, e.g. "TX|RX".
func (m Mask) String() string {
	var names []string
	for _, n := range maskNames {
		if m&n.mask != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Observer is notified after the LED state changes.
type Observer interface {
	LEDsChanged(state Mask)
}

// ObserverFunc is the func form of Observer.
type ObserverFunc func(Mask)

// LEDsChanged implements Observer.
func (f ObserverFunc) LEDsChanged(state Mask) {
	f(state)
}

// Bank holds the on/off state of the LEDs.
type Bank struct {
	state atomic.Uint32

	lock      sync.RWMutex
	observers []Observer
}

// NewBank creates a Bank with all LEDs off.
func NewBank() *Bank {
	return &Bank{}
}

// Observe registers an observer.
func (b *Bank) Observe(o Observer) *Bank {
	b.lock.Lock()
	b.observers = append(b.observers, o)
	b.lock.Unlock()
	return b
}

// State returns the LEDs currently on.
func (b *Bank) State() Mask {
	return Mask(b.state.Load())
}

// IsOn reports whether all LEDs in mask are on.
func (b *Bank) IsOn(mask Mask) bool {
	return b.State()&mask == mask
}

// TurnOn turns on the LEDs in mask.
func (b *Bank) TurnOn(mask Mask) {
	b.update(func(s Mask) Mask { return s | mask })
}

// TurnOff turns off the LEDs in mask.
func (b *Bank) TurnOff(mask Mask) {
	b.update(func(s Mask) Mask { return s &^ mask })
}

// Toggle flips the LEDs in mask.
func (b *Bank) Toggle(mask Mask) {
	b.update(func(s Mask) Mask { return s ^ mask })
}

// Set turns the LEDs in mask on or off.
func (b *Bank) Set(mask Mask, on bool) {
	if on {
		b.TurnOn(mask)
	} else {
		b.TurnOff(mask)
	}
}

func (b *Bank) update(fn func(Mask) Mask) {
	var old, state Mask
	for {
		cur := b.state.Load()
		old, state = Mask(cur), fn(Mask(cur))
		if b.state.CompareAndSwap(cur, uint32(state)) {
			break
		}
	}
	if old == state {
		return
	}
	b.lock.RLock()
	observers := b.observers
	b.lock.RUnlock()
	for _, o := range observers {
		o.LEDsChanged(state)
	}
}
