package console

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func openPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(); _ = w.Close() })
	return r, w
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   byte
		want hardware.Key
		ok   bool
	}{
		{'1', '1', true},
		{'a', 'A', true},
		{'D', 'D', true},
		{'#', '#', true},
		{'*', '*', true},
		{'e', 'E', false},
		{'\r', '\r', false},
	}
	for _, tt := range tests {
		got, ok := translate(tt.in)
		assert.Equal(t, tt.ok, ok, "byte %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestTerminal_KeystrokesBecomeKeys(t *testing.T) {
	r, w := openPipe(t)
	tm, err := Open(sim.NewBoard(), r, &bytes.Buffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)

	_, err = w.WriteString("a1x#")
	require.NoError(t, err)

	var got []hardware.Key
	require.Eventually(t, func() bool {
		if k, ok, _ := tm.ReadKey(); ok {
			got = append(got, k)
		}
		return len(got) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []hardware.Key{'A', '1', '#'}, got)

	_, ok, err := tm.ReadKey()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTerminal_WriteDisplayDrawsFrame(t *testing.T) {
	r, _ := openPipe(t)
	var out bytes.Buffer
	tm, err := Open(sim.NewBoard(), r, &out)
	require.NoError(t, err)

	require.NoError(t, tm.WriteDisplay("Menu:\nA=Open B=Close"))

	lines := strings.Split(strings.TrimRight(out.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "+----------------+", lines[0])
	assert.Equal(t, "|Menu:           |", lines[1])
	assert.Equal(t, "|A=Open B=Close  |", lines[2])
}

func TestTerminal_RawModeIsRestored(t *testing.T) {
	origIs, origRaw, origRestore := isTerminal, makeRaw, restore
	t.Cleanup(func() { isTerminal, makeRaw, restore = origIs, origRaw, origRestore })

	state := &term.State{}
	restored := false
	isTerminal = func(int) bool { return true }
	makeRaw = func(int) (*term.State, error) { return state, nil }
	restore = func(_ int, st *term.State) error {
		assert.Same(t, state, st)
		restored = true
		return nil
	}

	r, _ := openPipe(t)
	tm, err := Open(sim.NewBoard(), r, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, tm.Close())
	assert.True(t, restored)

	restored = false
	require.NoError(t, tm.Close())
	assert.False(t, restored, "second close is a no-op")
}

func TestTerminal_ServoDelegatesToBoard(t *testing.T) {
	r, _ := openPipe(t)
	board := sim.NewBoard()
	tm, err := Open(board, r, &bytes.Buffer{})
	require.NoError(t, err)

	require.NoError(t, tm.SetServoPulse(7, 833))
	assert.Len(t, board.Pulses(), 1)
}
