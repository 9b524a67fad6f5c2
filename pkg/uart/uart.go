package uart

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartcheck/pkg/framework"
)

// BitsPerChar is the number of bits on the line per byte in 8N1 framing.
const BitsPerChar = 10

var (
	// ErrNoHandler indicates Run is called before Attach.
	ErrNoHandler = errors.New("no interrupt handler attached")
)

// Handler receives the interrupts of the UART.
type Handler interface {
	// Receive is the byte-received interrupt.
	Receive(b byte)
	// TxReady is the transmit-ready interrupt.
	TxReady()
}

// UART drives a Handler from a byte line, and implements serial.Port.
type UART struct {
	Line     io.ReadWriter
	BaudRate int

	handler Handler
	irq     sync.Mutex

	txArmed  atomic.Bool
	txWake   chan struct{}
	dataReg  byte
	dataFull bool
}

// New creates a UART over line.
func New(line io.ReadWriter, baudRate int) *UART {
	return &UART{
		Line:     line,
		BaudRate: baudRate,
		txWake:   make(chan struct{}, 1),
	}
}

// Attach sets the interrupt handler. It must be called before Run.
func (u *UART) Attach(h Handler) *UART {
	u.handler = h
	return u
}

// Name implements framework.Named.
func (u *UART) Name() string {
	return "uart"
}

// Transmit implements serial.Port. It loads the transmit data register, and
// must be called from the TxReady interrupt.
func (u *UART) Transmit(b byte) {
	u.dataReg, u.dataFull = b, true
}

// EnableTxReady implements serial.Port.
func (u *UART) EnableTxReady() {
	u.txArmed.Store(true)
	select {
	case u.txWake <- struct{}{}:
	default:
	}
}

// DisableTxReady implements serial.Port.
func (u *UART) DisableTxReady() {
	u.txArmed.Store(false)
}

// TxArmed reports whether the transmit-ready interrupt is enabled.
func (u *UART) TxArmed() bool {
	return u.txArmed.Load()
}

// CharTime is the time to shift one byte out at the configured baud rate.
func (u *UART) CharTime() time.Duration {
	if u.BaudRate <= 0 {
		return 0
	}
	return BitsPerChar * time.Second / time.Duration(u.BaudRate)
}

// Run implements Runnable. It runs both interrupt sources until ctx is done
// or the line fails.
func (u *UART) Run(ctx context.Context) error {
	if u.handler == nil {
		return ErrNoHandler
	}
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	txErrCh := make(chan error, 1)
	go func() {
		txErrCh <- u.txLoop(subCtx)
	}()

	var rxErr error
	if closer, ok := u.Line.(io.Closer); ok {
		rxErr = fx.RunWithContextCloser(subCtx, closer, func() error {
			return u.rxLoop(subCtx)
		})
	} else {
		rxErr = u.rxLoop(subCtx)
	}
	cancel()
	txErr := <-txErrCh

	if err := ctx.Err(); err != nil {
		return err
	}
	var errs fx.AggregatedError
	errs.AddExcept(context.Canceled, rxErr, txErr)
	return errs.Aggregate()
}

func (u *UART) rxLoop(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		n, err := u.Line.Read(buf)
		for _, b := range buf[:n] {
			u.irq.Lock()
			u.handler.Receive(b)
			u.irq.Unlock()
		}
		if err != nil {
			if err == io.EOF {
				glog.V(2).Info("uart: line closed")
			}
			return err
		}
		// n == 0 happens on read timeouts.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}

func (u *UART) txLoop(ctx context.Context) error {
	var pace *time.Timer
	for {
		if !u.txArmed.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-u.txWake:
				continue
			}
		}

		u.irq.Lock()
		u.handler.TxReady()
		b, full := u.dataReg, u.dataFull
		u.dataFull = false
		u.irq.Unlock()
		if !full {
			continue
		}

		if _, err := u.Line.Write([]byte{b}); err != nil {
			return err
		}
		glog.V(5).Infof("uart: TX %02x", b)

		charTime := u.CharTime()
		if charTime <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		if pace == nil {
			pace = time.NewTimer(charTime)
			defer pace.Stop()
		} else {
			pace.Reset(charTime)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pace.C:
		}
	}
}
