// Package sim is an in-memory board: servo pulses are recorded, door sensors
// follow the latch unless overridden, keys come from a queue and display
// writes are kept. The daemon runs on it when no physical board is attached,
// and tests use it as the hardware double.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
)

// latchMidpoint separates lock pulses from unlock pulses.
var latchMidpoint = hardware.Pulse((hardware.LockAngle + hardware.UnlockAngle) / 2)

// ErrInjected is returned by lines put into fault mode with Fail.
var ErrInjected = errors.New("injected fault")

// PulseWrite is one recorded SetServoPulse call.
type PulseWrite struct {
	Channel      int
	Microseconds float64
}

type Board struct {
	mu       sync.Mutex
	pulses   []PulseWrite
	sensors  map[int]bool
	pinned   map[int]bool
	links    map[int]int
	keys     []hardware.Key
	display  []string
	faults   map[string]error
	servoHit func(channel int)
}

var _ hardware.Board = (*Board)(nil)

func NewBoard() *Board {
	return &Board{
		sensors: make(map[int]bool),
		pinned:  make(map[int]bool),
		links:   make(map[int]int),
		faults:  make(map[string]error),
	}
}

// Line names accepted by Fail.
const (
	LineServo   = "servo"
	LineSensor  = "sensor"
	LineKeypad  = "keypad"
	LineDisplay = "display"
)

// Fail makes every subsequent call on line return err; nil clears it.
func (b *Board) Fail(line string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.faults, line)
		return
	}
	b.faults[line] = err
}

// OnServo installs a hook run (outside the board lock) on every pulse write.
// Tests use it to block or observe actuation.
func (b *Board) OnServo(fn func(channel int)) {
	b.mu.Lock()
	b.servoHit = fn
	b.mu.Unlock()
}

func (b *Board) SetServoPulse(channel int, microseconds float64) error {
	b.mu.Lock()
	if err := b.faults[LineServo]; err != nil {
		b.mu.Unlock()
		return fmt.Errorf("servo %d: %w", channel, err)
	}
	hook := b.servoHit
	b.mu.Unlock()

	if hook != nil {
		hook(channel)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulses = append(b.pulses, PulseWrite{Channel: channel, Microseconds: microseconds})
	if sensor, ok := b.links[channel]; ok && !b.pinned[sensor] {
		b.sensors[sensor] = microseconds < latchMidpoint
	}
	return nil
}

// Pulses returns a copy of all pulse writes so far.
func (b *Board) Pulses() []PulseWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PulseWrite(nil), b.pulses...)
}

// SetDoor pins the reading of a sensor channel.
func (b *Board) SetDoor(channel int, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sensors[channel] = closed
	b.pinned[channel] = true
}

// LinkDoor makes the sensor follow the latch on servo: closed after a lock
// pulse, open after an unlock pulse. Pinned readings take precedence.
func (b *Board) LinkDoor(servo, sensor int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.links[servo] = sensor
}

// InitDoor sets the current reading of a sensor without pinning it, so a
// linked latch still moves it.
func (b *Board) InitDoor(channel int, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sensors[channel] = closed
}

func (b *Board) ReadSensor(channel int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.faults[LineSensor]; err != nil {
		return false, fmt.Errorf("sensor %d: %w", channel, err)
	}
	return b.sensors[channel], nil
}

// Press queues keys for ReadKey.
func (b *Board) Press(keys ...hardware.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, keys...)
}

// PressString queues every character of s as a key.
func (b *Board) PressString(s string) {
	keys := make([]hardware.Key, 0, len(s))
	for i := 0; i < len(s); i++ {
		keys = append(keys, hardware.Key(s[i]))
	}
	b.Press(keys...)
}

// QueuedKeys is the number of keys not yet read.
func (b *Board) QueuedKeys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys)
}

func (b *Board) ReadKey() (hardware.Key, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.faults[LineKeypad]; err != nil {
		return 0, false, fmt.Errorf("keypad: %w", err)
	}
	if len(b.keys) == 0 {
		return 0, false, nil
	}
	k := b.keys[0]
	b.keys = b.keys[1:]
	return k, true, nil
}

func (b *Board) WriteDisplay(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.faults[LineDisplay]; err != nil {
		return fmt.Errorf("display: %w", err)
	}
	b.display = append(b.display, text)
	return nil
}

// DisplayLog returns every text written to the display.
func (b *Board) DisplayLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.display...)
}
