// Package telemetry reports the self-test status.
package telemetry

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/uartcheck/pkg/led"
	"github.com/robotalks/uartcheck/pkg/selftest"
	"github.com/robotalks/uartcheck/pkg/serial"
)

// Report is a status snapshot.
type Report struct {
	DeviceID string
	Time     time.Time
	Tick     uint64
	LEDs     led.Mask
	Serial   serial.Stats
	SelfTest selftest.Stats
}

// ErrMissingField is returned by Decode when a field is absent or mistyped.
type ErrMissingField struct {
	Name string
}

// Error implements error.
func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("report field %q missing", e.Name)
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

// Struct converts the report into a protobuf Struct.
func (r *Report) Struct() *structpb.Struct {
	u := func(v uint64) *structpb.Value { return numberValue(float64(v)) }
	i := func(v int) *structpb.Value { return numberValue(float64(v)) }
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"device":         stringValue(r.DeviceID),
		"time_ms":        numberValue(float64(r.Time.UnixNano() / int64(time.Millisecond))),
		"tick":           u(r.Tick),
		"leds":           stringValue(r.LEDs.String()),
		"led_mask":       u(uint64(r.LEDs)),
		"rx_received":    u(r.Serial.Received),
		"rx_dropped":     u(r.Serial.Dropped),
		"rx_buffered":    i(r.Serial.RxBuffered),
		"rx_capacity":    i(r.Serial.RxCapacity),
		"tx_transmitted": u(r.Serial.Transmitted),
		"tx_idle":        u(r.Serial.TxIdle),
		"tx_pending":     i(r.Serial.TxPending),
		"tx_capacity":    i(r.Serial.TxCapacity),
		"bits_sent":      u(r.SelfTest.Sent),
		"bits_received":  u(r.SelfTest.Received),
		"echo_matched":   u(r.SelfTest.Matched),
		"echo_mismatch":  u(r.SelfTest.Mismatched),
		"echo_untracked": u(r.SelfTest.Untracked),
		"echo_lost":      u(r.SelfTest.Lost),
		"state":          u(uint64(r.SelfTest.State)),
	}}
}

// Encode marshals the report as a protobuf Struct.
func (r *Report) Encode() ([]byte, error) {
	return proto.Marshal(r.Struct())
}

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (*Report, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	d := decoder{fields: s.Fields}
	r := &Report{
		DeviceID: d.str("device"),
		Time:     time.Unix(0, int64(d.num("time_ms"))*int64(time.Millisecond)),
		Tick:     d.uint("tick"),
		LEDs:     led.Mask(d.uint("led_mask")),
		Serial: serial.Stats{
			Received:    d.uint("rx_received"),
			Dropped:     d.uint("rx_dropped"),
			RxBuffered:  int(d.num("rx_buffered")),
			RxCapacity:  int(d.num("rx_capacity")),
			Transmitted: d.uint("tx_transmitted"),
			TxIdle:      d.uint("tx_idle"),
			TxPending:   int(d.num("tx_pending")),
			TxCapacity:  int(d.num("tx_capacity")),
		},
		SelfTest: selftest.Stats{
			Sent:       d.uint("bits_sent"),
			Received:   d.uint("bits_received"),
			Matched:    d.uint("echo_matched"),
			Mismatched: d.uint("echo_mismatch"),
			Untracked:  d.uint("echo_untracked"),
			Lost:       d.uint("echo_lost"),
			State:      byte(d.uint("state")),
		},
	}
	if d.err != nil {
		return nil, d.err
	}
	return r, nil
}

// decoder keeps the first missing field.
type decoder struct {
	fields map[string]*structpb.Value
	err    error
}

func (d *decoder) value(name string) *structpb.Value {
	v := d.fields[name]
	if v == nil && d.err == nil {
		d.err = &ErrMissingField{Name: name}
	}
	return v
}

func (d *decoder) num(name string) float64 {
	v := d.value(name)
	if v == nil {
		return 0
	}
	if _, ok := v.Kind.(*structpb.Value_NumberValue); !ok && d.err == nil {
		d.err = &ErrMissingField{Name: name}
	}
	return v.GetNumberValue()
}

func (d *decoder) uint(name string) uint64 {
	return uint64(d.num(name))
}

func (d *decoder) str(name string) string {
	v := d.value(name)
	if v == nil {
		return ""
	}
	if _, ok := v.Kind.(*structpb.Value_StringValue); !ok && d.err == nil {
		d.err = &ErrMissingField{Name: name}
	}
	return v.GetStringValue()
}

// String formats the report for logs and consoles.
func (r *Report) String() string {
	return fmt.Sprintf("%s tick=%d leds=%s rx=%d/%d tx=%d/%d recv=%d drop=%d sent=%d match=%d mismatch=%d lost=%d",
		r.DeviceID, r.Tick, r.LEDs,
		r.Serial.RxBuffered, r.Serial.RxCapacity,
		r.Serial.TxPending, r.Serial.TxCapacity,
		r.Serial.Received, r.Serial.Dropped,
		r.SelfTest.Sent, r.SelfTest.Matched, r.SelfTest.Mismatched, r.SelfTest.Lost)
}
