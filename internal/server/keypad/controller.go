package keypad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/clock"
	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

const (
	DefaultInterval = 100 * time.Millisecond
	DefaultNotice   = time.Second
)

// Registry is the part of the locker registry the keypad drives.
type Registry interface {
	Get(id int) (models.LockerView, error)
	ApplyLock(ctx context.Context, id int) error
	ApplyUnlockOwned(ctx context.Context, id int, ownerID int64) error
}

// Verifier checks a PIN against the owner of a locker and names that owner.
type Verifier interface {
	CodeOwner(ctx context.Context, lockerID int, code string) (int64, bool)
}

type Options struct {
	Interval time.Duration
	// Notice is how long a message stays up before the menu returns.
	Notice  time.Duration
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Controller owns the keypad line. It is driven by a single goroutine
// (Run, or a test calling Step and HandleKey).
type Controller struct {
	keys     hardware.Keypad
	screen   *hardware.Screen
	registry Registry
	verifier Verifier
	interval time.Duration
	notice   time.Duration
	clock    clock.Clock
	log      logging.Logger
	metrics  *metrics.Metrics

	state State
	drawn string
}

func New(keys hardware.Keypad, screen *hardware.Screen, registry Registry, verifier Verifier, opts Options) *Controller {
	c := &Controller{
		keys:     keys,
		screen:   screen,
		registry: registry,
		verifier: verifier,
		interval: opts.Interval,
		notice:   opts.Notice,
		clock:    opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		state:    Main,
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.notice <= 0 {
		c.notice = DefaultNotice
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.log == nil {
		c.log = logging.Nop{}
	}
	return c
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) lookup(id int) (models.LockState, bool) {
	v, err := c.registry.Get(id)
	if err != nil {
		return models.Locked, false
	}
	return v.Status, true
}

// Run polls the keypad until ctx is cancelled. A failed iteration is logged
// and counted; the next tick starts from the same menu state.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info(ctx, "keypad started", "interval", c.interval.String())
	defer c.log.Info(ctx, "keypad stopped")

	for {
		if err := c.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.metrics.KeypadError()
			c.log.Warn(ctx, "keypad iteration failed", "state", c.state.Mode.String(), "error", err)
		}
		if err := clock.Wait(ctx, c.clock, c.interval); err != nil {
			return nil
		}
	}
}

// Step draws the current menu and handles at most one key.
func (c *Controller) Step(ctx context.Context) error {
	if err := c.render(); err != nil {
		return err
	}
	k, ok, err := c.keys.ReadKey()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrHardwareFault, err)
	}
	if !ok {
		return nil
	}
	return c.HandleKey(ctx, k)
}

// HandleKey moves the menu on by one key and carries out the resulting
// command.
func (c *Controller) HandleKey(ctx context.Context, k hardware.Key) error {
	next, cmd := Transition(c.state, k, c.lookup)
	if next.Mode != c.state.Mode {
		c.log.Debug(ctx, "keypad transition", "key", k.String(), "from", c.state.Mode.String(), "to", next.Mode.String())
	}
	c.state = next

	switch cmd.Kind {
	case CmdNotice:
		return c.show(ctx, cmd.Notice)
	case CmdLock:
		return c.lock(ctx, cmd.Locker)
	case CmdUnlock:
		return c.unlock(ctx, cmd.Locker, cmd.Code)
	}
	return nil
}

func (c *Controller) lock(ctx context.Context, id int) error {
	err := c.registry.ApplyLock(ctx, id)
	switch {
	case errors.Is(err, common.ErrConflict):
		return c.show(ctx, NoticeAlreadyClosed)
	case err != nil:
		return errors.Join(fmt.Errorf("keypad lock %d: %w", id, err), c.show(ctx, NoticeFailed))
	}
	c.log.Info(ctx, "locker closed from keypad", "locker", id)
	return c.show(ctx, NoticeClosed(id))
}

func (c *Controller) unlock(ctx context.Context, id int, code string) error {
	owner, ok := c.verifier.CodeOwner(ctx, id, code)
	c.metrics.CodeAttempt(ok)
	if !ok {
		c.log.Info(ctx, "wrong keypad code", "locker", id)
		return c.show(ctx, NoticeWrongCode)
	}

	// the locker may have changed hands since the code was checked
	err := c.registry.ApplyUnlockOwned(ctx, id, owner)
	switch {
	case errors.Is(err, common.ErrForbidden):
		c.log.Info(ctx, "keypad code owner no longer holds locker", "locker", id)
		return c.show(ctx, NoticeWrongCode)
	case errors.Is(err, common.ErrConflict):
		return c.show(ctx, NoticeAlreadyOpen)
	case err != nil:
		return errors.Join(fmt.Errorf("keypad unlock %d: %w", id, err), c.show(ctx, NoticeFailed))
	}
	c.log.Info(ctx, "locker opened from keypad", "locker", id)
	return c.show(ctx, NoticeOpened(id))
}

// render draws the menu when it changed or the display was cleared. A
// message left by another writer (the actuator) stays until one of the two
// happens.
func (c *Controller) render() error {
	if c.screen == nil {
		return nil
	}
	text := c.state.Screen()
	if text == c.drawn && c.screen.Current() != "" {
		return nil
	}
	if _, err := c.screen.Show(text); err != nil {
		return fmt.Errorf("%w: %w", common.ErrHardwareFault, err)
	}
	c.drawn = text
	return nil
}

// show puts msg up for the notice period.
func (c *Controller) show(ctx context.Context, msg string) error {
	if c.screen != nil {
		if _, err := c.screen.Show(msg); err != nil {
			return fmt.Errorf("%w: %w", common.ErrHardwareFault, err)
		}
		c.drawn = msg
	}
	_ = clock.Wait(ctx, c.clock, c.notice)
	return nil
}
