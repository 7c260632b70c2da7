package hardware

import (
	"strings"
	"sync"
)

const (
	// DisplayColumns and DisplayRows describe the 16x2 LCD.
	DisplayColumns = 16
	DisplayRows    = 2
)

// Screen is the shared front of the physical display. Both the actuator and
// the keypad controller write through it, so it serialises writes and skips
// a message identical to the one already shown.
type Screen struct {
	mu   sync.Mutex
	out  Display
	last string
	sent bool
}

func NewScreen(out Display) *Screen {
	return &Screen{out: out}
}

// Show renders msg ("line1\nline2"), truncated to the display geometry and
// right-padded to full width. It reports whether anything was sent.
func (s *Screen) Show(msg string) (bool, error) {
	text := Layout(msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sent && text == s.last {
		return false, nil
	}
	if err := s.out.WriteDisplay(text); err != nil {
		return false, err
	}
	s.last, s.sent = text, true
	return true, nil
}

// Current is the text last sent to the display, as laid out. It is empty
// before the first write and after Clear.
func (s *Screen) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Clear blanks the display.
func (s *Screen) Clear() error {
	_, err := s.Show("")
	return err
}

// Layout pads each line to DisplayColumns and keeps at most DisplayRows lines.
// An empty message stays empty.
func Layout(msg string) string {
	if msg == "" {
		return ""
	}
	lines := strings.Split(msg, "\n")
	if len(lines) > DisplayRows {
		lines = lines[:DisplayRows]
	}
	for i, l := range lines {
		r := []rune(l)
		if len(r) > DisplayColumns {
			r = r[:DisplayColumns]
		}
		lines[i] = string(r) + strings.Repeat(" ", DisplayColumns-len(r))
	}
	return strings.Join(lines, "\n")
}
