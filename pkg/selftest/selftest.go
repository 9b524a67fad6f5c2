// Package selftest implements the serial wiring self-test: an alternating
// bit goes out on every tick, and the bit coming back drives the RX light.
package selftest

import (
	"errors"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/golang/glog"

	fx "github.com/robotalks/uartcheck/pkg/framework"
	"github.com/robotalks/uartcheck/pkg/led"
)

// ErrWindow indicates a non-positive echo window.
var ErrWindow = errors.New("invalid echo window")

// Link is the loop side of a serial.Serial.
type Link interface {
	CanWrite() bool
	Write(b byte)
	CanRead() bool
	Read() byte
}

// LEDs is the indicator light side effect.
type LEDs interface {
	Toggle(led.Mask)
	Set(led.Mask, bool)
}

// Stats counts self-test activity.
type Stats struct {
	Sent       uint64
	Received   uint64
	Matched    uint64 // received bits equal to the oldest unmatched sent bit
	Mismatched uint64
	Untracked  uint64 // received bits with no sent bit to compare against
	Lost       uint64 // sent bits given up on without a matching echo
	State      byte   // last bit sent
}

// Controller toggles the outgoing bit and mirrors the incoming one.
type Controller struct {
	Link Link
	LEDs LEDs

	state   byte
	window  int
	pending *queue.Queue // sent bits awaiting their echo, oldest first
	slipped bool         // the previous echo mismatched

	sent       atomic.Uint64
	received   atomic.Uint64
	matched    atomic.Uint64
	mismatched atomic.Uint64
	untracked  atomic.Uint64
	lost       atomic.Uint64
	lastState  atomic.Uint32
}

// NewController creates a Controller. window is how many sent bits are
// remembered for comparing with the echo.
func NewController(link Link, leds LEDs, window int) (*Controller, error) {
	if window <= 0 {
		return nil, ErrWindow
	}
	return &Controller{Link: link, LEDs: leds, window: window, pending: queue.New()}, nil
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, c)
}

// Control implements Controller.
func (c *Controller) Control(fx.ControlContext) error {
	if c.Link.CanWrite() {
		c.state ^= 1
		c.LEDs.Toggle(led.TX)
		c.Link.Write(c.state)
		c.sent.Add(1)
		c.lastState.Store(uint32(c.state))
		if c.pending.Length() >= c.window {
			c.pending.Remove()
			c.lost.Add(1)
		}
		c.pending.Add(c.state)
	}

	if c.Link.CanRead() {
		b := c.Link.Read()
		c.LEDs.Set(led.RX, b != 0)
		c.received.Add(1)
		c.match(b)
	}
	return nil
}

// match pairs b with the oldest pending bit. A second mismatch in a row
// that matches the next pending bit means the oldest one never came back:
// it is dropped and the pairing realigns.
func (c *Controller) match(b byte) {
	if c.pending.Length() == 0 {
		c.untracked.Add(1)
		return
	}
	expect := c.pending.Peek().(byte)
	if expect != b && c.slipped && c.pending.Length() > 1 && c.pending.Get(1).(byte) == b {
		c.pending.Remove()
		c.lost.Add(1)
		expect = b
		glog.V(2).Info("selftest: echo realigned")
	}
	c.pending.Remove()
	if expect == b {
		c.matched.Add(1)
		c.slipped = false
		return
	}
	c.mismatched.Add(1)
	c.slipped = true
	glog.V(2).Infof("selftest: echo mismatch, got %02x", b)
}

// Stats returns the counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Sent:       c.sent.Load(),
		Received:   c.received.Load(),
		Matched:    c.matched.Load(),
		Mismatched: c.mismatched.Load(),
		Untracked:  c.untracked.Load(),
		Lost:       c.lost.Load(),
		State:      byte(c.lastState.Load()),
	}
}
