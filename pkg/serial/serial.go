// Package serial connects the UART interrupt handlers and the control loop
// through an inbound and an outbound ring buffer.
package serial

import (
	"sync/atomic"

	"github.com/robotalks/uartcheck/pkg/ring"
)

// Port is the hardware side of the UART.
type Port interface {
	// Transmit writes one byte to the transmit data register.
	Transmit(b byte)
	// EnableTxReady arms the transmit-ready notification.
	EnableTxReady()
	// DisableTxReady suppresses the transmit-ready notification.
	DisableTxReady()
}

// Stats is a snapshot of Serial counters.
type Stats struct {
	Received    uint64 // bytes stored into the inbound buffer
	Dropped     uint64 // bytes lost because the inbound buffer was full
	Transmitted uint64 // bytes handed to Port.Transmit
	TxIdle      uint64 // transmit-ready notifications with nothing to send
	RxBuffered  int
	RxCapacity  int
	TxPending   int
	TxCapacity  int
}

// Serial owns the two buffers of one UART.
//
// Receive and TxReady run in interrupt context: they must not block and
// are never called concurrently with each other. CanWrite, Write, CanRead
// and Read belong to the control loop.
type Serial struct {
	port Port

	rx, tx *ring.Buffer
	rxIn   ring.Producer // receive interrupt
	rxOut  ring.Consumer // loop
	txIn   ring.Producer // loop
	txOut  ring.Consumer // transmit-ready interrupt

	received    atomic.Uint64
	dropped     atomic.Uint64
	transmitted atomic.Uint64
	txIdle      atomic.Uint64
}

// New creates a Serial using rx for inbound and tx for outbound bytes.
// Both buffers are reset; they must not be shared with anything else.
func New(port Port, rx, tx *ring.Buffer) *Serial {
	rx.Init()
	tx.Init()
	return &Serial{
		port:  port,
		rx:    rx,
		tx:    tx,
		rxIn:  rx.Producer(),
		rxOut: rx.Consumer(),
		txIn:  tx.Producer(),
		txOut: tx.Consumer(),
	}
}

// Receive handles the byte-received interrupt.
// The byte is dropped when the inbound buffer is full.
func (s *Serial) Receive(b byte) {
	if s.rxIn.IsFull() {
		s.dropped.Add(1)
		return
	}
	s.rxIn.Insert(b)
	s.received.Add(1)
}

// TxReady handles the transmit-ready interrupt.
func (s *Serial) TxReady() {
	if !s.txOut.IsEmpty() {
		s.port.Transmit(s.txOut.Remove())
		s.transmitted.Add(1)
		return
	}
	s.port.DisableTxReady()
	s.txIdle.Add(1)
	// A Write between the check above and the disable would be stranded.
	if !s.txOut.IsEmpty() {
		s.port.EnableTxReady()
	}
}

// CanWrite reports whether Write can accept a byte.
func (s *Serial) CanWrite() bool {
	return !s.txIn.IsFull()
}

// Write queues b for transmission and arms the transmit-ready notification.
// The caller must check CanWrite first.
func (s *Serial) Write(b byte) {
	s.txIn.Insert(b)
	s.port.EnableTxReady()
}

// CanRead reports whether Read has a byte to return.
func (s *Serial) CanRead() bool {
	return !s.rxOut.IsEmpty()
}

// Read returns the oldest received byte. The caller must check CanRead first.
func (s *Serial) Read() byte {
	return s.rxOut.Remove()
}

// Stats returns the current counters.
func (s *Serial) Stats() Stats {
	return Stats{
		Received:    s.received.Load(),
		Dropped:     s.dropped.Load(),
		Transmitted: s.transmitted.Load(),
		TxIdle:      s.txIdle.Load(),
		RxBuffered:  s.rx.Len(),
		RxCapacity:  s.rx.Cap(),
		TxPending:   s.tx.Len(),
		TxCapacity:  s.tx.Cap(),
	}
}
