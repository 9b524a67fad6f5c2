package led

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestBank(t *testing.T) {
	var changes []Mask
	b := NewBank().Observe(ObserverFunc(func(m Mask) { changes = append(changes, m) }))
	require.Equal(t, Mask(0), b.State())

	b.TurnOn(TX)
	b.TurnOn(TX) // no change
	b.Toggle(All)
	b.Set(TX, true)
	b.TurnOff(All)
	b.TurnOff(All) // no change

	require.Equal(t, []Mask{TX, RX, All, 0}, changes)
	require.False(t, b.IsOn(TX))
}

func TestMaskString(t *testing.T) {
	require.Equal(t, "none", Mask(0).String())
	require.Equal(t, "TX", TX.String())
	require.Equal(t, "TX|RX", All.String())
}

func TestConsole(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	var out bytes.Buffer
	c := NewConsole(&out)
	NewBank().Observe(c).TurnOn(RX)
	require.Equal(t, "\r[TX ○] [RX ●]", out.String())
}
