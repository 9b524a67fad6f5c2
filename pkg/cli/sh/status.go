package sh

import (
	"github.com/robotalks/uartcheck/pkg/telemetry"
)

func (s *Shell) snapshot() *telemetry.Report {
	r := s.Harness.Reporter
	if r == nil {
		r = &telemetry.Reporter{
			DeviceID: s.Harness.Config.DeviceID,
			Serial:   s.Harness.Serial,
			SelfTest: s.Harness.SelfTest,
			LEDs:     s.Harness.LEDs,
		}
	}
	rep := r.Snapshot(nil)
	rep.Tick = s.Loop.Ticks()
	return rep
}
