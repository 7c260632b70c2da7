package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/access"
	"github.com/dmitrijs2005/gophlocker/internal/server/actuator"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware/sim"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/dmitrijs2005/gophlocker/internal/server/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockerFixture struct {
	svc   *LockerService
	users *UserService
	reg   *registry.Registry
	board *sim.Board
}

func newLockerFixture(t *testing.T) *lockerFixture {
	t.Helper()
	ctx := context.Background()

	users, db, m := newUserService(t, access.Plain{})
	require.NoError(t, users.EnsureDefaults(ctx))

	recs, err := m.Lockers(db).LoadAll(ctx)
	require.NoError(t, err)

	board := sim.NewBoard()
	act := actuator.New(board, hardware.NewScreen(board), actuator.Options{Settle: time.Millisecond})
	reg, err := registry.New(recs, act, m.Lockers(db), registry.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	policy := access.NewPolicy(reg, m.Users(db), access.Plain{}, nil)
	return &lockerFixture{
		svc:   NewLockerService(reg, users, policy, nil),
		users: users,
		reg:   reg,
		board: board,
	}
}

func (f *lockerFixture) login(t *testing.T, name string) string {
	t.Helper()
	tok, err := f.users.Login(context.Background(), name, "pass")
	require.NoError(t, err)
	return tok
}

func TestListLockers(t *testing.T) {
	f := newLockerFixture(t)
	list := f.svc.ListLockers(context.Background())
	require.Len(t, list, 4)
	assert.True(t, list[0].Occupied)
	assert.Equal(t, models.Unlocked, list[2].Status)
}

func TestReserveAndOpen(t *testing.T) {
	f := newLockerFixture(t)
	ctx := context.Background()
	ewa := f.login(t, "ewa")

	require.ErrorIs(t, f.svc.ReserveAndOpen(ctx, "bogus", 1), common.ErrUnauthenticated)
	require.ErrorIs(t, f.svc.ReserveAndOpen(ctx, ewa, 0), common.ErrConflict)
	require.ErrorIs(t, f.svc.ReserveAndOpen(ctx, ewa, 9), common.ErrNotFound)

	require.NoError(t, f.svc.ReserveAndOpen(ctx, ewa, 1))
	v, _ := f.reg.Get(1)
	assert.True(t, v.Occupied)
	assert.Equal(t, models.Unlocked, v.Status)
	assert.Len(t, f.board.Pulses(), 1)
}

func TestUnlock(t *testing.T) {
	f := newLockerFixture(t)
	ctx := context.Background()
	adam, ewa := f.login(t, "adam"), f.login(t, "ewa")

	require.ErrorIs(t, f.svc.Unlock(ctx, ewa, 0), common.ErrForbidden)
	require.ErrorIs(t, f.svc.Unlock(ctx, "", 0), common.ErrUnauthenticated)
	require.ErrorIs(t, f.svc.Unlock(ctx, adam, 5), common.ErrNotFound)

	require.NoError(t, f.svc.Unlock(ctx, adam, 0))
	v, _ := f.reg.Get(0)
	assert.Equal(t, models.Unlocked, v.Status)
	assert.True(t, v.Occupied, "unlocking keeps the reservation")
}

func TestReturnLocker(t *testing.T) {
	f := newLockerFixture(t)
	ctx := context.Background()
	adam, ewa := f.login(t, "adam"), f.login(t, "ewa")

	require.ErrorIs(t, f.svc.ReturnLocker(ctx, ewa, 0), common.ErrForbidden)
	require.ErrorIs(t, f.svc.ReturnLocker(ctx, adam, 1), common.ErrForbidden, "free locker")

	require.NoError(t, f.svc.ReturnLocker(ctx, adam, 0))
	v, _ := f.reg.Get(0)
	assert.False(t, v.Occupied)
	assert.Nil(t, v.OwnerID)
	assert.Equal(t, models.Unlocked, v.Status, "a locked locker is opened on return")
	assert.Len(t, f.board.Pulses(), 1)
}

func TestLockAnyone(t *testing.T) {
	f := newLockerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.LockAnyone(ctx, 2))
	v, _ := f.reg.Get(2)
	assert.Equal(t, models.Locked, v.Status)

	require.ErrorIs(t, f.svc.LockAnyone(ctx, 2), common.ErrConflict)
	require.ErrorIs(t, f.svc.LockAnyone(ctx, 8), common.ErrNotFound)
}

func TestMutationsReachTheStore(t *testing.T) {
	f := newLockerFixture(t)
	ctx := context.Background()
	ewa := f.login(t, "ewa")

	require.NoError(t, f.svc.ReserveAndOpen(ctx, ewa, 3))
	require.NoError(t, f.reg.Flush(ctx))

	user, err := f.users.Authenticate(ctx, ewa)
	require.NoError(t, err)

	recs, err := f.users.repomanager.Lockers(f.users.db).LoadAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, recs[3].OwnerID)
	assert.Equal(t, user.ID, *recs[3].OwnerID)
	assert.True(t, recs[3].Occupied)
}
