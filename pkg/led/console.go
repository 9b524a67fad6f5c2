package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console renders the LEDs as a single status line.
type Console struct {
	Writer io.Writer

	lock sync.Mutex
	on   *color.Color
	off  *color.Color
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		Writer: w,
		on:     color.New(color.FgHiGreen, color.Bold),
		off:    color.New(color.FgHiBlack),
	}
}

// Render returns the status line for state.
func (c *Console) Render(state Mask) string {
	line := ""
	for n, led := range maskNames {
		if n > 0 {
			line += " "
		}
		if state&led.mask != 0 {
			line += c.on.Sprintf("[%s ●]", led.name)
		} else {
			line += c.off.Sprintf("[%s ○]", led.name)
		}
	}
	return line
}

// LEDsChanged implements Observer.
func (c *Console) LEDsChanged(state Mask) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Fprintf(c.Writer, "\r%s", c.Render(state))
}
