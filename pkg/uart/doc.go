// Package uart emulates the UART peripheral on a host.
package uart

// The peripheral raises two interrupts: byte-received and transmit-ready.
// Each runs on its own goroutine; an interrupt lock keeps handlers from
// nesting or overlapping, the way a single-core MCU runs ISRs to completion.
// Nothing else takes that lock, so the control loop is preempted, never
// blocked.
