package sim

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_RecordsPulses(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.SetServoPulse(7, hardware.Pulse(hardware.UnlockAngle)))
	require.NoError(t, b.SetServoPulse(21, hardware.Pulse(hardware.LockAngle)))

	p := b.Pulses()
	require.Len(t, p, 2)
	assert.Equal(t, 7, p[0].Channel)
	assert.InDelta(t, 1944.44, p[0].Microseconds, 0.01)
	assert.Equal(t, 21, p[1].Channel)
}

func TestBoard_LinkedDoorFollowsLatch(t *testing.T) {
	b := NewBoard()
	b.LinkDoor(7, 1)

	require.NoError(t, b.SetServoPulse(7, hardware.Pulse(hardware.LockAngle)))
	closed, err := b.ReadSensor(1)
	require.NoError(t, err)
	assert.True(t, closed)

	require.NoError(t, b.SetServoPulse(7, hardware.Pulse(hardware.UnlockAngle)))
	closed, err = b.ReadSensor(1)
	require.NoError(t, err)
	assert.False(t, closed)

	b.SetDoor(1, true)
	require.NoError(t, b.SetServoPulse(7, hardware.Pulse(hardware.UnlockAngle)))
	closed, _ = b.ReadSensor(1)
	assert.True(t, closed, "pinned reading wins")
}

func TestBoard_InitDoorIsNotPinned(t *testing.T) {
	b := NewBoard()
	b.LinkDoor(21, 20)
	b.InitDoor(20, true)

	closed, err := b.ReadSensor(20)
	require.NoError(t, err)
	assert.True(t, closed)

	require.NoError(t, b.SetServoPulse(21, hardware.Pulse(hardware.UnlockAngle)))
	closed, _ = b.ReadSensor(20)
	assert.False(t, closed, "the latch still moves an initialised door")
}

func TestBoard_KeysAreFIFO(t *testing.T) {
	b := NewBoard()
	b.PressString("A1")
	b.Press('#')
	assert.Equal(t, 3, b.QueuedKeys())

	var got []hardware.Key
	for {
		k, ok, err := b.ReadKey()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k)
	}
	assert.Equal(t, []hardware.Key{'A', '1', '#'}, got)
}

func TestBoard_FaultInjection(t *testing.T) {
	b := NewBoard()
	boom := errors.New("bus error")

	for _, line := range []string{LineServo, LineSensor, LineKeypad, LineDisplay} {
		b.Fail(line, boom)
	}
	assert.ErrorIs(t, b.SetServoPulse(1, 500), boom)
	_, err := b.ReadSensor(1)
	assert.ErrorIs(t, err, boom)
	_, _, err = b.ReadKey()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, b.WriteDisplay("x"), boom)

	b.Fail(LineServo, nil)
	assert.NoError(t, b.SetServoPulse(1, 500))
}

func TestBoard_ServoHookRunsBeforeRecording(t *testing.T) {
	b := NewBoard()
	var seen []int
	b.OnServo(func(ch int) {
		seen = append(seen, ch)
		assert.Empty(t, b.Pulses())
	})
	require.NoError(t, b.SetServoPulse(3, 500))
	assert.Equal(t, []int{3}, seen)
	assert.Len(t, b.Pulses(), 1)
}

func TestBoard_DisplayLog(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.WriteDisplay("a"))
	require.NoError(t, b.WriteDisplay(""))
	assert.Equal(t, []string{"a", ""}, b.DisplayLog())
}
