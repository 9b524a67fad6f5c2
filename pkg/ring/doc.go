// Package ring provides the bounded byte ring buffer shared between
// interrupt handlers and the control loop.
package ring

// Each Buffer has one producer and one consumer. On the serial link the
// inbound buffer is produced by the receive interrupt and consumed by the
// loop, the outbound buffer is produced by the loop and consumed by the
// transmit-ready interrupt.
//
// No operation blocks or spins. Callers check IsFull before Insert and
// IsEmpty before Remove; breaking that rule is a bug and panics.
