package telemetry

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartcheck/pkg/framework"
	"github.com/robotalks/uartcheck/pkg/led"
	"github.com/robotalks/uartcheck/pkg/selftest"
	"github.com/robotalks/uartcheck/pkg/serial"
)

// Publisher delivers reports. Publish is called from the control loop and
// must not block on the network.
type Publisher interface {
	Publish(context.Context, *Report) error
}

// PublishFunc is the func form of Publisher.
type PublishFunc func(context.Context, *Report) error

// Publish implements Publisher.
func (f PublishFunc) Publish(ctx context.Context, r *Report) error {
	return f(ctx, r)
}

// LogPublisher writes reports to the glog info log.
var LogPublisher = PublishFunc(func(ctx context.Context, r *Report) error {
	glog.Info(r.String())
	return nil
})

// Sources used by Reporter.
type (
	SerialSource   interface{ Stats() serial.Stats }
	SelfTestSource interface{ Stats() selftest.Stats }
	LEDSource      interface{ State() led.Mask }
)

// Reporter publishes a Report every Every ticks.
type Reporter struct {
	DeviceID  string
	Every     uint64
	Serial    SerialSource
	SelfTest  SelfTestSource
	LEDs      LEDSource
	Publisher Publisher
}

// AddToLoop implements LoopAdder.
func (r *Reporter) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPostProc, r)
	if runnable, ok := r.Publisher.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
}

// Snapshot builds a report for the current tick.
func (r *Reporter) Snapshot(cc fx.ControlContext) *Report {
	rep := &Report{DeviceID: r.DeviceID}
	if cc != nil {
		rep.Time, rep.Tick = cc.Time(), cc.Tick()
	}
	if r.Serial != nil {
		rep.Serial = r.Serial.Stats()
	}
	if r.SelfTest != nil {
		rep.SelfTest = r.SelfTest.Stats()
	}
	if r.LEDs != nil {
		rep.LEDs = r.LEDs.State()
	}
	return rep
}

// Control implements Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	every := r.Every
	if every == 0 {
		every = 1
	}
	if cc.Tick()%every != 0 || r.Publisher == nil {
		return nil
	}
	return r.Publisher.Publish(cc.Context(), r.Snapshot(cc))
}
