package sh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartcheck/pkg/harness"
	"github.com/robotalks/uartcheck/pkg/led"
)

// newTestShell builds a Shell without the interactive part.
func newTestShell(t *testing.T) *Shell {
	conf := harness.NewConfig()
	conf.Manual, conf.Device, conf.Capacity, conf.ReportEvery = true, "", 4, 0
	h, err := conf.NewHarness()
	require.NoError(t, err)
	return &Shell{
		Harness: h,
		Port:    h.Port.(*harness.ManualPort),
		Loop:    h.NewLoop(),
		Console: led.NewConsole(nil),
	}
}

func TestParseBytes(t *testing.T) {
	bs, err := ParseBytes([]string{"1", "0x55", "0b10", "255"})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0x55, 2, 255}, bs)

	_, err = ParseBytes([]string{"256"})
	require.Error(t, err)
	_, err = ParseBytes([]string{"x"})
	require.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "-", FormatBytes(nil))
	require.Equal(t, "00 01 ff", FormatBytes([]byte{0, 1, 0xff}))
}

func TestFireTxReadyAndEcho(t *testing.T) {
	s := newTestShell(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Loop.Step(ctx)
	}
	require.True(t, s.Port.Armed())

	sent := s.FireTxReady(2)
	require.Equal(t, []byte{1, 0}, sent)
	require.True(t, s.Port.Armed())

	sent = s.FireTxReady(10)
	require.Equal(t, []byte{1}, sent)
	require.False(t, s.Port.Armed())

	s.Harness.Serial.Receive(1)
	s.Loop.Step(ctx)
	require.True(t, s.Harness.LEDs.IsOn(led.RX))

	rep := s.snapshot()
	require.Equal(t, uint64(4), rep.Tick)
	require.Equal(t, uint64(1), rep.SelfTest.Matched)
	require.Equal(t, uint64(4), rep.SelfTest.Sent)
}
