package uart

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	bugst "go.bug.st/serial"
)

// DeviceReadTimeout bounds each Read on a serial device so the receive
// interrupt can notice cancellation without closing the port.
const DeviceReadTimeout = 100 * time.Millisecond

// OpenDevice opens a serial device in 8N1 at baudRate.
func OpenDevice(name string, baudRate int) (bugst.Port, error) {
	port, err := bugst.Open(name, &bugst.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DeviceReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	glog.Infof("opened %s at %d baud", name, baudRate)
	return port, nil
}

// ListDevices returns the names of serial devices on the system.
func ListDevices() ([]string, error) {
	return bugst.GetPortsList()
}
