// Package sh provides an interactive shell that drives the serial self-test
// by hand: interrupts are fired by commands instead of a UART.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/fatih/color"

	fx "github.com/robotalks/uartcheck/pkg/framework"
	"github.com/robotalks/uartcheck/pkg/harness"
	"github.com/robotalks/uartcheck/pkg/led"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Harness *harness.Harness
	Port    *harness.ManualPort
	Loop    *fx.Loop
	Console *led.Console
}

const (
	shellKey = "$shell"
	prompt   = "uart > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&RxCmd,
		&TxReadyCmd,
		&WriteCmd,
		&ReadCmd,
		&TickCmd,
		&EchoCmd,
		&StatusCmd,
		&LEDsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell over a manual harness.
func New(conf *harness.Config) (*Shell, error) {
	conf.Manual, conf.Device, conf.Console, conf.MQTTBrokerURL = true, "", false, ""
	h, err := conf.NewHarness()
	if err != nil {
		return nil, err
	}
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		Harness: h,
		Port:    h.Port.(*harness.ManualPort),
		Loop:    h.NewLoop(),
		Console: led.NewConsole(nil),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// ParseBytes parses arguments like "1", "0x55", "0b1" into bytes.
func ParseBytes(args []string) ([]byte, error) {
	bs := make([]byte, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %v", arg, err)
		}
		bs = append(bs, byte(v))
	}
	return bs, nil
}

func countArg(c *ishell.Context) (int, error) {
	if len(c.Args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q", c.Args[0])
	}
	return n, nil
}

// FormatBytes prints bytes as hex.
func FormatBytes(bs []byte) string {
	if len(bs) == 0 {
		return "-"
	}
	out := ""
	for n, b := range bs {
		if n > 0 {
			out += " "
		}
		out += fmt.Sprintf("%02x", b)
	}
	return out
}

// Print prints v as JSON if requested, or its text form.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// FireTxReady fires n transmit-ready interrupts while the notification is
// armed and returns the bytes transmitted.
func (s *Shell) FireTxReady(n int) []byte {
	for i := 0; i < n && s.Port.Armed(); i++ {
		s.Harness.Serial.TxReady()
	}
	return s.Port.TakeSent()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Println("Manual UART harness, type help for commands.")
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// RxCmd fires byte-received interrupts.
	RxCmd = ishell.Cmd{
		Name: "rx",
		Help: "BYTE... fire byte-received interrupts",
		Func: func(c *ishell.Context) {
			bs, err := ParseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			for _, b := range bs {
				s.Harness.Serial.Receive(b)
			}
			stats := s.Harness.Serial.Stats()
			s.Print(c, stats, fmt.Sprintf("buffered %d/%d, dropped %d", stats.RxBuffered, stats.RxCapacity, stats.Dropped))
		},
	}

	// TxReadyCmd fires transmit-ready interrupts.
	TxReadyCmd = ishell.Cmd{
		Name:    "txready",
		Aliases: []string{"tx"},
		Help:    "[N] fire transmit-ready interrupts while armed",
		Func: func(c *ishell.Context) {
			n, err := countArg(c)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			sent := s.FireTxReady(n)
			s.Print(c, sent, fmt.Sprintf("sent: %s, armed: %v", FormatBytes(sent), s.Port.Armed()))
		},
	}

	// WriteCmd writes bytes from the loop side.
	WriteCmd = ishell.Cmd{
		Name: "write",
		Help: "BYTE... queue bytes for transmission",
		Func: func(c *ishell.Context) {
			bs, err := ParseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			for n, b := range bs {
				if !s.Harness.Serial.CanWrite() {
					c.Err(fmt.Errorf("outbound buffer full, %d of %d bytes queued", n, len(bs)))
					return
				}
				s.Harness.Serial.Write(b)
			}
		},
	}

	// ReadCmd reads all received bytes from the loop side.
	ReadCmd = ishell.Cmd{
		Name: "read",
		Help: "read received bytes",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var bs []byte
			for s.Harness.Serial.CanRead() {
				bs = append(bs, s.Harness.Serial.Read())
			}
			s.Print(c, bs, FormatBytes(bs))
		},
	}

	// TickCmd runs the control loop.
	TickCmd = ishell.Cmd{
		Name: "tick",
		Help: "[N] run N loop ticks",
		Func: func(c *ishell.Context) {
			n, err := countArg(c)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			for i := 0; i < n; i++ {
				s.Loop.Step(context.Background())
			}
			s.Print(c, s.Harness.SelfTest.Stats(), s.Console.Render(s.Harness.LEDs.State()))
		},
	}

	// EchoCmd transmits pending bytes and feeds them back, like a jumper
	// between TX and RX.
	EchoCmd = ishell.Cmd{
		Name: "echo",
		Help: "[N] transmit up to N bytes and receive them back",
		Func: func(c *ishell.Context) {
			n, err := countArg(c)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			sent := s.FireTxReady(n)
			for _, b := range sent {
				s.Harness.Serial.Receive(b)
			}
			s.Print(c, sent, fmt.Sprintf("echoed: %s", FormatBytes(sent)))
		},
	}

	// StatusCmd prints a telemetry report.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "print counters",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			rep := s.snapshot()
			s.Print(c, rep, rep.String())
		},
	}

	// LEDsCmd prints the LEDs.
	LEDsCmd = ishell.Cmd{
		Name: "leds",
		Help: "show indicator lights",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			state := s.Harness.LEDs.State()
			s.Print(c, state.String(), s.Console.Render(state))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	if outputJSON || evalOnly {
		color.NoColor = true
	}
	s, err := New(harness.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	s.Run(flag.Args()...)
}
