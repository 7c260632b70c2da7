// Package registry is the authoritative in-memory table of lockers.
//
// Every locker has two guards. An operation slot serialises state-changing
// operations, including the actuation they trigger, so reserve, release,
// lock and unlock are atomic per locker while other lockers proceed. A
// read/write mutex guards the record itself and is only held to copy or
// publish it, so readers never wait for an actuation to settle. The sensor
// path writes doorClosed atomically and touches nothing else.
//
// After each mutation the new record is handed to a per-locker commit queue
// which writes it to the durable store in the background.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Actuator drives a locker latch and reports the resulting state.
type Actuator interface {
	Unlock(ctx context.Context, id, servoChannel int) (models.LockState, error)
	Lock(ctx context.Context, id, servoChannel int) (models.LockState, error)
	Phase(id int) models.Phase
}

// Store persists one locker record.
type Store interface {
	Save(ctx context.Context, rec models.LockerRecord) error
}

type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Retry tunes the commit queue; zero values pick the defaults.
	Retry RetryPolicy
}

type locker struct {
	slot chan struct{}

	mu  sync.RWMutex
	rec models.LockerRecord

	doorClosed atomic.Bool
}

type Registry struct {
	lockers []*locker
	act     Actuator
	queue   *commitQueue
	log     logging.Logger
	metrics *metrics.Metrics
}

// New builds the registry from the persisted records. Records must be
// ordered by id starting at 0 and satisfy the occupancy invariant.
func New(records []models.LockerRecord, act Actuator, store Store, opts Options) (*Registry, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}

	r := &Registry{
		act:     act,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}

	for i, rec := range records {
		if rec.ID != i {
			return nil, fmt.Errorf("%w: locker at position %d has id %d", common.ErrValidation, i, rec.ID)
		}
		if rec.Occupied != (rec.OwnerID != nil) {
			return nil, fmt.Errorf("%w: locker %d occupied=%t with owner %v", common.ErrValidation, rec.ID, rec.Occupied, rec.OwnerID)
		}
		l := &locker{slot: make(chan struct{}, 1), rec: rec}
		// Until the first sample arrives the logical flag is the best guess.
		l.doorClosed.Store(rec.Closed)
		r.lockers = append(r.lockers, l)
	}

	r.queue = newCommitQueue(store, opts.Retry, opts.Logger, opts.Metrics)
	r.metrics.SetOccupied(r.occupied())
	return r, nil
}

// Len is the number of lockers.
func (r *Registry) Len() int {
	return len(r.lockers)
}

func (r *Registry) locker(id int) (*locker, error) {
	if id < 0 || id >= len(r.lockers) {
		return nil, fmt.Errorf("locker %d: %w", id, common.ErrNotFound)
	}
	return r.lockers[id], nil
}

// Get returns a snapshot of one locker.
func (r *Registry) Get(id int) (models.LockerView, error) {
	l, err := r.locker(id)
	if err != nil {
		return models.LockerView{}, err
	}
	return r.view(l), nil
}

// List returns a snapshot of every locker in id order.
func (r *Registry) List() []models.LockerView {
	out := make([]models.LockerView, len(r.lockers))
	for i, l := range r.lockers {
		out[i] = r.view(l)
	}
	return out
}

func (r *Registry) view(l *locker) models.LockerView {
	l.mu.RLock()
	rec := l.rec
	l.mu.RUnlock()

	if rec.OwnerID != nil {
		owner := *rec.OwnerID
		rec.OwnerID = &owner
	}

	v := models.LockerView{
		ID:            rec.ID,
		ServoChannel:  rec.ServoChannel,
		SensorChannel: rec.SensorChannel,
		Status:        rec.Status,
		Occupied:      rec.Occupied,
		Closed:        rec.Closed,
		DoorClosed:    l.doorClosed.Load(),
		OwnerID:       rec.OwnerID,
	}
	if r.act != nil {
		v.Phase = r.act.Phase(rec.ID)
	}
	return v
}

// SetDoorClosed records a door sensor sample. It never blocks and never
// touches occupancy, ownership or lock state.
func (r *Registry) SetDoorClosed(id int, closed bool) error {
	l, err := r.locker(id)
	if err != nil {
		return err
	}
	l.doorClosed.Store(closed)
	return nil
}

// Reserve marks a free locker as owned by userID and opens it. The door is
// assumed open until the next sensor sample.
func (r *Registry) Reserve(ctx context.Context, id int, userID int64) error {
	return r.mutate(ctx, id, "reserve", func(rec *models.LockerRecord) (func(*locker), error) {
		if rec.Occupied {
			return nil, fmt.Errorf("locker %d already occupied: %w", id, common.ErrConflict)
		}
		state, err := r.act.Unlock(ctx, id, rec.ServoChannel)
		if err != nil {
			return nil, err
		}
		owner := userID
		rec.Status = state
		rec.Closed = false
		rec.Occupied = true
		rec.OwnerID = &owner
		return func(l *locker) { l.doorClosed.Store(false) }, nil
	})
}

// Release frees a locker owned by userID. A locked compartment is opened
// first so it is physically accessible before it is freed.
func (r *Registry) Release(ctx context.Context, id int, userID int64) error {
	return r.mutate(ctx, id, "release", func(rec *models.LockerRecord) (func(*locker), error) {
		if err := checkOwner(rec, userID); err != nil {
			return nil, err
		}
		if rec.Status == models.Locked {
			state, err := r.act.Unlock(ctx, id, rec.ServoChannel)
			if err != nil {
				return nil, err
			}
			rec.Status = state
			rec.Closed = false
		}
		rec.Occupied = false
		rec.OwnerID = nil
		return nil, nil
	})
}

// OpenForOwner unlocks a locker on behalf of its owner. The servo is driven
// even when the locker is already unlocked.
func (r *Registry) OpenForOwner(ctx context.Context, id int, userID int64) error {
	return r.mutate(ctx, id, "open", func(rec *models.LockerRecord) (func(*locker), error) {
		if err := checkOwner(rec, userID); err != nil {
			return nil, err
		}
		state, err := r.act.Unlock(ctx, id, rec.ServoChannel)
		if err != nil {
			return nil, err
		}
		rec.Status = state
		rec.Closed = false
		return nil, nil
	})
}

// ApplyLock locks an unlocked locker. Locking an already locked locker is a
// conflict.
func (r *Registry) ApplyLock(ctx context.Context, id int) error {
	return r.mutate(ctx, id, "lock", func(rec *models.LockerRecord) (func(*locker), error) {
		if rec.Status == models.Locked {
			return nil, fmt.Errorf("locker %d already locked: %w", id, common.ErrConflict)
		}
		state, err := r.act.Lock(ctx, id, rec.ServoChannel)
		if err != nil {
			return nil, err
		}
		rec.Status = state
		rec.Closed = true
		return nil, nil
	})
}

// ApplyUnlock unlocks a locked locker. Unlocking an already unlocked locker
// is a conflict.
func (r *Registry) ApplyUnlock(ctx context.Context, id int) error {
	return r.mutate(ctx, id, "unlock", func(rec *models.LockerRecord) (func(*locker), error) {
		if rec.Status == models.Unlocked {
			return nil, fmt.Errorf("locker %d already unlocked: %w", id, common.ErrConflict)
		}
		state, err := r.act.Unlock(ctx, id, rec.ServoChannel)
		if err != nil {
			return nil, err
		}
		rec.Status = state
		rec.Closed = false
		return nil, nil
	})
}

// ApplyUnlockOwned is ApplyUnlock for the keypad: the locker must still be
// owned by ownerID when the slot is taken, otherwise the call is forbidden.
func (r *Registry) ApplyUnlockOwned(ctx context.Context, id int, ownerID int64) error {
	return r.mutate(ctx, id, "unlock", func(rec *models.LockerRecord) (func(*locker), error) {
		if err := checkOwner(rec, ownerID); err != nil {
			return nil, err
		}
		if rec.Status == models.Unlocked {
			return nil, fmt.Errorf("locker %d already unlocked: %w", id, common.ErrConflict)
		}
		state, err := r.act.Unlock(ctx, id, rec.ServoChannel)
		if err != nil {
			return nil, err
		}
		rec.Status = state
		rec.Closed = false
		return nil, nil
	})
}

func checkOwner(rec *models.LockerRecord, userID int64) error {
	if !rec.Occupied || rec.OwnerID == nil || *rec.OwnerID != userID {
		return fmt.Errorf("locker %d not owned by user %d: %w", rec.ID, userID, common.ErrForbidden)
	}
	return nil
}

// mutate runs fn on a working copy of the locker record while holding the
// locker's operation slot. The copy is published and committed only when fn
// succeeds, so a failed check or actuation leaves the locker untouched. fn
// may return a hook applied after publishing.
func (r *Registry) mutate(ctx context.Context, id int, op string, fn func(rec *models.LockerRecord) (func(*locker), error)) error {
	l, err := r.locker(id)
	if err != nil {
		return err
	}

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slot }()

	// Only the slot holder writes rec, so reading it here needs no lock.
	work := l.rec
	if work.OwnerID != nil {
		owner := *work.OwnerID
		work.OwnerID = &owner
	}

	after, err := fn(&work)
	if err != nil {
		r.log.Debug(ctx, "locker operation rejected", "locker", id, "op", op, "error", err)
		return err
	}

	l.mu.Lock()
	l.rec = work
	l.mu.Unlock()
	if after != nil {
		after(l)
	}

	r.log.Info(ctx, "locker updated", "locker", id, "op", op,
		"status", work.Status.String(), "occupied", work.Occupied)
	r.metrics.SetOccupied(r.occupied())
	r.queue.enqueue(work)
	return nil
}

func (r *Registry) occupied() int {
	n := 0
	for _, l := range r.lockers {
		l.mu.RLock()
		if l.rec.Occupied {
			n++
		}
		l.mu.RUnlock()
	}
	return n
}

// Flush waits until every record committed so far has been written or has
// exhausted its retries.
func (r *Registry) Flush(ctx context.Context) error {
	return r.queue.flush(ctx)
}

// Close flushes the commit queue and stops pending retries. Mutations after
// Close are still applied in memory but no longer persisted.
func (r *Registry) Close(ctx context.Context) error {
	return r.queue.close(ctx)
}
