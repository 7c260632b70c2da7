// Package console drives the keypad and display from an interactive terminal:
// keystrokes act as keypad presses and the 16x2 display is drawn as a box.
// Servo and sensor lines are delegated to an embedded simulated board.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/sim"
	"golang.org/x/term"
)

// Test seams for the terminal calls.
var (
	isTerminal = term.IsTerminal
	makeRaw    = term.MakeRaw
	restore    = term.Restore
)

type Terminal struct {
	*sim.Board

	in   io.Reader
	out  io.Writer
	keys chan hardware.Key

	mu       sync.Mutex
	fd       int
	rawState *term.State
}

var _ hardware.Board = (*Terminal)(nil)

// Open wraps in/out. When in is a terminal it is switched to raw mode so
// single keystrokes arrive without Enter; Close restores it.
func Open(board *sim.Board, in *os.File, out io.Writer) (*Terminal, error) {
	t := &Terminal{Board: board, in: in, out: out, keys: make(chan hardware.Key, 16), fd: -1}

	fd := int(in.Fd())
	if isTerminal(fd) {
		st, err := makeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("terminal raw mode: %w", err)
		}
		t.fd, t.rawState = fd, st
	}
	return t, nil
}

// Start pumps keystrokes until ctx is done or input ends.
func (t *Terminal) Start(ctx context.Context) {
	go t.pump(ctx, bufio.NewReader(t.in))
}

func (t *Terminal) pump(ctx context.Context, r *bufio.Reader) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		k, ok := translate(b)
		if !ok {
			continue
		}
		select {
		case t.keys <- k:
		case <-ctx.Done():
			return
		}
	}
}

// translate maps a keystroke to a keypad key; letters are case-insensitive.
func translate(b byte) (hardware.Key, bool) {
	k := hardware.Key(strings.ToUpper(string(rune(b)))[0])
	return k, k.Valid()
}

// ReadKey returns the next pending keystroke without blocking.
func (t *Terminal) ReadKey() (hardware.Key, bool, error) {
	select {
	case k := <-t.keys:
		return k, true, nil
	default:
		return 0, false, nil
	}
}

// WriteDisplay draws the two display rows inside a frame.
func (t *Terminal) WriteDisplay(text string) error {
	lines := strings.Split(hardware.Layout(text), "\n")
	for len(lines) < hardware.DisplayRows {
		lines = append(lines, "")
	}
	border := "+" + strings.Repeat("-", hardware.DisplayColumns) + "+"

	var sb strings.Builder
	sb.WriteString(border + "\r\n")
	for _, l := range lines[:hardware.DisplayRows] {
		fmt.Fprintf(&sb, "|%-*s|\r\n", hardware.DisplayColumns, l)
	}
	sb.WriteString(border + "\r\n")

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, sb.String())
	return err
}

// Close restores the terminal mode if Open changed it.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rawState == nil {
		return nil
	}
	err := restore(t.fd, t.rawState)
	t.rawState = nil
	return err
}
