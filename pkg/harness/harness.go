// Package harness assembles the serial self-test.
package harness

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartcheck/pkg/framework"
	"github.com/robotalks/uartcheck/pkg/led"
	"github.com/robotalks/uartcheck/pkg/ring"
	"github.com/robotalks/uartcheck/pkg/selftest"
	"github.com/robotalks/uartcheck/pkg/serial"
	"github.com/robotalks/uartcheck/pkg/telemetry"
	"github.com/robotalks/uartcheck/pkg/telemetry/mqtt"
	"github.com/robotalks/uartcheck/pkg/uart"
)

// ErrManualDevice indicates a device is configured in manual mode.
var ErrManualDevice = errors.New("manual mode can't use a serial device")

// Harness holds the wired components.
type Harness struct {
	Config   *Config
	Line     io.ReadWriteCloser
	Loopback *uart.Loopback
	UART     *uart.UART
	Port     serial.Port
	Serial   *serial.Serial
	LEDs     *led.Bank
	SelfTest *selftest.Controller
	Reporter *telemetry.Reporter
}

// NewHarness creates Harness from config.
func (c *Config) NewHarness() (*Harness, error) {
	if c.Interval < 0 {
		return nil, fmt.Errorf("invalid interval %v", c.Interval)
	}
	rx, err := ring.New(c.Capacity)
	if err != nil {
		return nil, fmt.Errorf("inbound buffer: %w", err)
	}
	tx, err := ring.New(c.Capacity)
	if err != nil {
		return nil, fmt.Errorf("outbound buffer: %w", err)
	}

	h := &Harness{Config: c, LEDs: led.NewBank()}
	switch {
	case c.Manual && c.Device != "":
		return nil, ErrManualDevice
	case c.Manual:
		h.Port = &ManualPort{}
	case c.Device != "":
		port, err := uart.OpenDevice(c.Device, c.BaudRate)
		if err != nil {
			return nil, err
		}
		h.Line = port
	default:
		h.Loopback = uart.NewLoopback().StuckAt(c.StuckAt)
		h.Line = h.Loopback
	}
	if h.Line != nil {
		h.UART = uart.New(h.Line, c.BaudRate)
		h.Port = h.UART
	}

	h.Serial = serial.New(h.Port, rx, tx)
	if h.UART != nil {
		h.UART.Attach(h.Serial)
	}
	if h.SelfTest, err = selftest.NewController(h.Serial, h.LEDs, tx.Cap()+rx.Cap()); err != nil {
		h.Close()
		return nil, err
	}
	if c.Console {
		h.LEDs.Observe(led.NewConsole(os.Stdout))
	}

	if c.ReportEvery > 0 {
		h.Reporter = &telemetry.Reporter{
			DeviceID:  c.DeviceID,
			Every:     uint64(c.ReportEvery),
			Serial:    h.Serial,
			SelfTest:  h.SelfTest,
			LEDs:      h.LEDs,
			Publisher: telemetry.LogPublisher,
		}
		if c.MQTTBrokerURL != "" {
			pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, c.DeviceID, c.meta(rx.Cap()))
			if err != nil {
				h.Close()
				return nil, fmt.Errorf("create MQTT publisher error: %w", err)
			}
			h.Reporter.Publisher = pub
		}
	}
	glog.V(1).Infof("harness: line=%s baud=%d capacity=%d interval=%v", c.lineName(), c.BaudRate, rx.Cap(), c.Interval)
	return h, nil
}

// MustNewHarness creates Harness and fails on error.
func (c *Config) MustNewHarness() *Harness {
	h, err := c.NewHarness()
	if err != nil {
		glog.Fatalln(err)
	}
	return h
}

func (c *Config) lineName() string {
	switch {
	case c.Manual:
		return "manual"
	case c.Device != "":
		return c.Device
	}
	return "loopback"
}

func (c *Config) meta(capacity int) mqtt.Meta {
	return mqtt.Meta{
		Device:   c.DeviceID,
		Line:     c.lineName(),
		BaudRate: c.BaudRate,
		Capacity: capacity,
		Interval: c.Interval.String(),
	}
}

// NewLoop creates a loop ticking at the configured interval with all
// components added.
func (h *Harness) NewLoop() *fx.Loop {
	loop := fx.NewLoop()
	if h.Config.Interval > 0 {
		loop.Interval = h.Config.Interval
	}
	return loop.Add(h)
}

// AddToLoop implements LoopAdder.
func (h *Harness) AddToLoop(loop *fx.Loop) {
	if h.UART != nil {
		loop.AddRunnable(h.UART)
	}
	loop.Add(h.SelfTest)
	if h.Reporter != nil {
		loop.Add(h.Reporter)
	}
}

// Close releases the line.
func (h *Harness) Close() error {
	if h.Line != nil {
		return h.Line.Close()
	}
	return nil
}

// ManualPort is a serial.Port without hardware: transmitted bytes are
// collected and the transmit-ready state is only recorded.
type ManualPort struct {
	lock  sync.Mutex
	sent  []byte
	armed bool
}

// Transmit implements serial.Port.
func (p *ManualPort) Transmit(b byte) {
	p.lock.Lock()
	p.sent = append(p.sent, b)
	p.lock.Unlock()
}

// EnableTxReady implements serial.Port.
func (p *ManualPort) EnableTxReady() {
	p.lock.Lock()
	p.armed = true
	p.lock.Unlock()
}

// DisableTxReady implements serial.Port.
func (p *ManualPort) DisableTxReady() {
	p.lock.Lock()
	p.armed = false
	p.lock.Unlock()
}

// Armed reports whether the transmit-ready notification is enabled.
func (p *ManualPort) Armed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.armed
}

// TakeSent returns and clears the transmitted bytes.
func (p *ManualPort) TakeSent() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	sent := p.sent
	p.sent = nil
	return sent
}
