package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy is the exponential backoff used for failed writes.
type RetryPolicy struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries uint64
}

func (p RetryPolicy) backoff() retry.Backoff {
	if p.Base <= 0 {
		p.Base = 100 * time.Millisecond
	}
	if p.Cap <= 0 {
		p.Cap = 5 * time.Second
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 5
	}
	b := retry.NewExponential(p.Base)
	b = retry.WithCappedDuration(p.Cap, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// commitQueue writes locker records with at most one writer per locker.
// Records queued while a write is in flight coalesce: only the latest is
// written next. Failures are retried, then logged; the in-memory registry is
// never rolled back.
type commitQueue struct {
	store   Store
	policy  RetryPolicy
	log     logging.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[int]models.LockerRecord
	running map[int]bool
	idle    chan struct{}
	closed  bool
}

func newCommitQueue(store Store, policy RetryPolicy, log logging.Logger, m *metrics.Metrics) *commitQueue {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &commitQueue{
		store:   store,
		policy:  policy,
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[int]models.LockerRecord),
		running: make(map[int]bool),
		idle:    idle,
	}
}

func (q *commitQueue) enqueue(rec models.LockerRecord) {
	if q.store == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warn(q.ctx, "commit after close dropped", "locker", rec.ID)
		return
	}
	q.pending[rec.ID] = rec
	if q.running[rec.ID] {
		return
	}
	if len(q.running) == 0 {
		q.idle = make(chan struct{})
	}
	q.running[rec.ID] = true
	go q.worker(rec.ID)
}

func (q *commitQueue) worker(id int) {
	for {
		q.mu.Lock()
		rec, ok := q.pending[id]
		if !ok {
			delete(q.running, id)
			if len(q.running) == 0 {
				close(q.idle)
			}
			q.mu.Unlock()
			return
		}
		delete(q.pending, id)
		q.mu.Unlock()

		q.write(rec)
	}
}

func (q *commitQueue) write(rec models.LockerRecord) {
	err := retry.Do(q.ctx, q.policy.backoff(), func(ctx context.Context) error {
		err := q.store.Save(ctx, rec)
		if err == nil || errors.Is(err, common.ErrNotFound) {
			return err
		}
		q.log.Warn(ctx, "locker commit failed, retrying", "locker", rec.ID, "error", err)
		return retry.RetryableError(err)
	})

	q.metrics.Commit(err)
	if err != nil {
		q.log.Error(q.ctx, "locker commit abandoned", "locker", rec.ID,
			"error", errors.Join(common.ErrPersistence, err))
	}
}

func (q *commitQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *commitQueue) close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	err := q.flush(ctx)
	q.cancel()
	return err
}
