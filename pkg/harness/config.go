package harness

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// Config provides options to set up the self-test harness.
type Config struct {
	// Device is the serial device, e.g. /dev/ttyACM0.
	// Empty runs over an in-memory loopback line.
	Device   string
	BaudRate int
	// Capacity of each ring buffer, rounded up to a power of two.
	Capacity int
	// Interval is the delay between two loop ticks.
	Interval time.Duration
	// StuckAt forces loopback bytes to 0 or 1, -1 disables it.
	StuckAt int
	// Manual disables the UART emulation; interrupts are fired by hand.
	Manual bool
	// Console renders the LEDs on stdout.
	Console bool

	DeviceID string
	// MQTTBrokerURL specifies the MQTT broker for telemetry.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// ReportEvery publishes a report every N ticks.
	ReportEvery int
}

var defaultConfig = Config{
	BaudRate:    9600,
	Capacity:    128,
	Interval:    50 * time.Millisecond,
	StuckAt:     -1,
	ReportEvery: 20,
}

func init() {
	if val := os.Getenv("UARTCHECK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("UARTCHECK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("UARTCHECK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.DeviceID = DeviceID()
}

// DeviceID derives a stable ID for this machine.
func DeviceID() string {
	id, err := machineid.ProtectedID("uartcheck")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		if id, err = os.Hostname(); err != nil {
			return "unknown"
		}
		return id
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device, empty for an in-memory loopback.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate.")
	flag.IntVar(&defaultConfig.Capacity, "capacity", defaultConfig.Capacity, "Capacity of each ring buffer.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Delay between loop ticks.")
	flag.IntVar(&defaultConfig.StuckAt, "stuck", defaultConfig.StuckAt, "Loopback fault: force bytes to 0 or 1, -1 to disable.")
	flag.BoolVar(&defaultConfig.Console, "console", defaultConfig.Console, "Show LEDs on the console.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID in telemetry.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry.")
	flag.IntVar(&defaultConfig.ReportEvery, "report-every", defaultConfig.ReportEvery, "Publish telemetry every N ticks, 0 to disable.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
