package registry

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

type call struct {
	ID     int
	Unlock bool
}

// fakeActuator records calls and can fail or block them.
type fakeActuator struct {
	mu      sync.Mutex
	calls   []call
	err     error
	gate    map[int]chan struct{}
	entered chan int
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{gate: make(map[int]chan struct{}), entered: make(chan int, 16)}
}

// hold makes actuations of id block until the returned func is called.
func (f *fakeActuator) hold(id int) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[id] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeActuator) do(ctx context.Context, id int, unlock bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{ID: id, Unlock: unlock})
	gate := f.gate[id]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		f.entered <- id
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeActuator) Unlock(ctx context.Context, id, _ int) (models.LockState, error) {
	return models.Unlocked, f.do(ctx, id, true)
}

func (f *fakeActuator) Lock(ctx context.Context, id, _ int) (models.LockState, error) {
	return models.Locked, f.do(ctx, id, false)
}

func (f *fakeActuator) Phase(int) models.Phase { return models.PhaseIdle }

func (f *fakeActuator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// fakeStore keeps the last saved record per locker.
type fakeStore struct {
	mu       sync.Mutex
	saved    map[int]models.LockerRecord
	attempts int
	failures int
	err      error
	gate     chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[int]models.LockerRecord)}
}

func (s *fakeStore) Save(ctx context.Context, rec models.LockerRecord) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return s.err
	}
	s.saved[rec.ID] = rec
	return nil
}

func (s *fakeStore) get(id int) (models.LockerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.saved[id]
	return rec, ok
}

func (s *fakeStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
