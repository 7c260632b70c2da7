// Package hardware declares the lines the controller drives: servo PWM outputs,
// door sensor inputs, the 4x4 matrix keypad and the 16x2 character display.
// Drivers live in subpackages (sim, console).
package hardware

// Servo drives a PWM servo line.
type Servo interface {
	SetServoPulse(channel int, microseconds float64) error
}

// Sensors samples door-closed inputs.
type Sensors interface {
	ReadSensor(channel int) (bool, error)
}

// Keypad polls the matrix keypad. ok is false when no key is pressed.
type Keypad interface {
	ReadKey() (key Key, ok bool, err error)
}

// Display writes a (up to) two-line message. An empty string clears it.
type Display interface {
	WriteDisplay(text string) error
}

// Board bundles the lines of one controller.
type Board interface {
	Servo
	Sensors
	Keypad
	Display
}

// Key is one key of the 4x4 grid.
type Key byte

// Grid is the physical layout of the keypad, row by row.
var Grid = [4][4]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// IsDigit reports whether k is one of 0-9.
func (k Key) IsDigit() bool { return k >= '0' && k <= '9' }

// Valid reports whether k exists on the grid.
func (k Key) Valid() bool {
	for _, row := range Grid {
		for _, c := range row {
			if c == k {
				return true
			}
		}
	}
	return false
}

func (k Key) String() string { return string(rune(k)) }
