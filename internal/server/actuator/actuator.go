// Package actuator turns lock and unlock intents into servo pulses. Each
// actuation is a timed phase: the pulse is written (actuating), a transient
// message is shown while the latch settles (settling), then the display is
// cleared (idle).
//
// The actuator does not serialise calls; the registry holds the locker's lock
// for the whole actuation, so calls for one locker never overlap while other
// lockers proceed independently.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/clock"
	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

const (
	DefaultSettle  = 2 * time.Second
	DefaultTimeout = 5 * time.Second
)

type Options struct {
	// Settle is how long the latch is held before the actuation completes.
	Settle time.Duration
	// Timeout bounds the servo write plus the settle hold.
	Timeout time.Duration
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

type Actuator struct {
	servo   hardware.Servo
	screen  *hardware.Screen
	clock   clock.Clock
	settle  time.Duration
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	phases map[int]*atomic.Int32
}

func New(servo hardware.Servo, screen *hardware.Screen, opts Options) *Actuator {
	a := &Actuator{
		servo:   servo,
		screen:  screen,
		clock:   opts.Clock,
		settle:  opts.Settle,
		timeout: opts.Timeout,
		log:     opts.Logger,
		metrics: opts.Metrics,
		phases:  make(map[int]*atomic.Int32),
	}
	if a.clock == nil {
		a.clock = clock.Real{}
	}
	if a.settle <= 0 {
		a.settle = DefaultSettle
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.log == nil {
		a.log = logging.Nop{}
	}
	return a
}

// Unlock drives the latch of locker id (wired to servoChannel) open and
// returns the resulting state.
func (a *Actuator) Unlock(ctx context.Context, id, servoChannel int) (models.LockState, error) {
	return a.actuate(ctx, id, servoChannel, models.Unlocked)
}

// Lock drives the latch closed and returns the resulting state.
func (a *Actuator) Lock(ctx context.Context, id, servoChannel int) (models.LockState, error) {
	return a.actuate(ctx, id, servoChannel, models.Locked)
}

// Phase reports where locker id is in its current actuation.
func (a *Actuator) Phase(id int) models.Phase {
	return models.Phase(a.phase(id).Load())
}

func (a *Actuator) phase(id int) *atomic.Int32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.phases[id]
	if !ok {
		p = new(atomic.Int32)
		a.phases[id] = p
	}
	return p
}

// actuate writes the pulse for target and holds the settle period. A servo
// write that fails or does not return within the timeout is a hardware fault
// and the returned state must be ignored.
func (a *Actuator) actuate(ctx context.Context, id, servoChannel int, target models.LockState) (models.LockState, error) {
	direction, angle, notice := "lock", hardware.LockAngle, "closed"
	if target == models.Unlocked {
		direction, angle, notice = "unlock", hardware.UnlockAngle, "opened"
	}

	phase := a.phase(id)
	phase.Store(int32(models.PhaseActuating))
	defer phase.Store(int32(models.PhaseIdle))

	start := a.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.writePulse(ctx, servoChannel, hardware.Pulse(angle)); err != nil {
		err = fmt.Errorf("locker %d %s: %w", id, direction, err)
		a.metrics.Actuation(id, direction, 0, err)
		a.log.Error(ctx, "actuation failed", "locker", id, "direction", direction, "error", err)
		return target, err
	}

	phase.Store(int32(models.PhaseSettling))
	a.show(ctx, fmt.Sprintf("Locker %d\n%s", id+1, notice))

	// The latch has moved; cancellation only cuts the hold short.
	if err := clock.Wait(ctx, a.clock, a.settle); err != nil {
		a.log.Warn(ctx, "settle interrupted", "locker", id, "direction", direction, "error", err)
	}
	a.show(ctx, "")

	a.metrics.Actuation(id, direction, a.clock.Now().Sub(start).Seconds(), nil)
	a.log.Info(ctx, "locker actuated", "locker", id, "direction", direction)
	return target, nil
}

// writePulse runs the servo write in its own goroutine so a stuck line cannot
// hold the caller past ctx.
func (a *Actuator) writePulse(ctx context.Context, channel int, us float64) error {
	done := make(chan error, 1)
	go func() {
		done <- a.servo.SetServoPulse(channel, us)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: servo channel %d: %w", common.ErrHardwareFault, channel, err)
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: servo channel %d did not respond", common.ErrHardwareFault, channel)
		}
		return ctx.Err()
	}
}

func (a *Actuator) show(ctx context.Context, msg string) {
	if a.screen == nil {
		return
	}
	if _, err := a.screen.Show(msg); err != nil {
		a.log.Warn(ctx, "display write failed", "error", err)
	}
}
