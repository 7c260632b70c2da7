package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/clock"
	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/sim"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/dmitrijs2005/gophlocker/internal/server/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func owner(id int64) *int64 { return &id }

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New([]models.LockerRecord{
		{ID: 0, ServoChannel: 7, SensorChannel: 1, Status: models.Locked, Occupied: true, Closed: true, OwnerID: owner(1)},
		{ID: 1, ServoChannel: 21, SensorChannel: 20, Status: models.Locked, Closed: true},
		{ID: 2, ServoChannel: 15, SensorChannel: 14, Status: models.Unlocked},
	}, nil, nil, registry.Options{})
	require.NoError(t, err)
	return r
}

func records(r *registry.Registry) []models.LockerRecord {
	var out []models.LockerRecord
	for _, v := range r.List() {
		out = append(out, v.Record())
	}
	return out
}

func TestTick_WritesDoorClosed(t *testing.T) {
	r := newRegistry(t)
	board := sim.NewBoard()
	board.SetDoor(1, false)
	board.SetDoor(20, true)
	board.SetDoor(14, true)

	m := New(board, r, Options{})
	require.NoError(t, m.Tick(context.Background()))

	want := map[int]bool{0: false, 1: true, 2: true}
	for id, closed := range want {
		v, _ := r.Get(id)
		assert.Equal(t, closed, v.DoorClosed, "locker %d", id)
	}
}

func TestTick_OnlyTouchesDoorClosed(t *testing.T) {
	r := newRegistry(t)
	board := sim.NewBoard()
	m := New(board, r, Options{})
	before := records(r)

	for i := 0; i < 50; i++ {
		board.SetDoor(1, i%2 == 0)
		board.SetDoor(20, i%3 == 0)
		board.SetDoor(14, i%5 == 0)
		require.NoError(t, m.Tick(context.Background()))
	}

	if diff := cmp.Diff(before, records(r)); diff != "" {
		t.Fatalf("sensor ticks changed locker state (-before +after):\n%s", diff)
	}
}

// flakySensors fails reads on one channel.
type flakySensors struct {
	*sim.Board
	bad int
}

func (f flakySensors) ReadSensor(ch int) (bool, error) {
	if ch == f.bad {
		return false, errors.New("open circuit")
	}
	return f.Board.ReadSensor(ch)
}

func TestTick_FaultOnOneLockerDoesNotStopOthers(t *testing.T) {
	r := newRegistry(t)
	board := sim.NewBoard()
	board.SetDoor(14, true)

	m := New(flakySensors{Board: board, bad: 20}, r, Options{})
	err := m.Tick(context.Background())
	require.ErrorIs(t, err, common.ErrHardwareFault)

	v, _ := r.Get(2)
	assert.True(t, v.DoorClosed, "locker after the failing one is still sampled")
}

func TestRun_SurvivesFaultsAndStopsOnCancel(t *testing.T) {
	r := newRegistry(t)
	board := sim.NewBoard()
	board.Fail(sim.LineSensor, errors.New("bus error"))
	clk := clock.NewManual(time.Unix(0, 0))

	m := New(board, r, Options{Interval: 300 * time.Millisecond, Clock: clk})
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = m.Run(ctx)
	}()

	// First tick fails; the loop keeps going.
	require.True(t, clk.BlockUntil(1, time.Second))
	board.Fail(sim.LineSensor, nil)
	board.SetDoor(14, true)
	clk.Advance(300 * time.Millisecond)

	require.Eventually(t, func() bool {
		v, _ := r.Get(2)
		return v.DoorClosed
	}, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	require.NoError(t, runErr)
}
