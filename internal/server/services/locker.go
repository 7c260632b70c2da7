package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/access"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Registry is the part of the locker registry the API needs.
type Registry interface {
	Get(id int) (models.LockerView, error)
	List() []models.LockerView
	Reserve(ctx context.Context, id int, userID int64) error
	Release(ctx context.Context, id int, userID int64) error
	OpenForOwner(ctx context.Context, id int, userID int64) error
	ApplyLock(ctx context.Context, id int) error
}

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// LockerService is the operation set offered to the HTTP layer.
type LockerService struct {
	registry Registry
	auth     Authenticator
	policy   *access.Policy
	log      logging.Logger
}

func NewLockerService(r Registry, auth Authenticator, policy *access.Policy, log logging.Logger) *LockerService {
	if log == nil {
		log = logging.Nop{}
	}
	return &LockerService{registry: r, auth: auth, policy: policy, log: log}
}

// ListLockers returns every locker in id order.
func (s *LockerService) ListLockers(ctx context.Context) []models.LockerView {
	return s.registry.List()
}

// ReserveAndOpen reserves a free locker for the token's user and opens it.
func (s *LockerService) ReserveAndOpen(ctx context.Context, token string, lockerID int) error {
	user, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.registry.Reserve(ctx, lockerID, user.ID); err != nil {
		return err
	}
	s.log.Info(ctx, "locker reserved", "locker", lockerID, "user", user.ID)
	return nil
}

// Unlock opens a locker owned by the token's user.
func (s *LockerService) Unlock(ctx context.Context, token string, lockerID int) error {
	user, err := s.authorize(ctx, token, lockerID, access.ActionUnlock)
	if err != nil {
		return err
	}
	return s.registry.OpenForOwner(ctx, lockerID, user.ID)
}

// ReturnLocker frees a locker owned by the token's user, opening it first if
// it is locked.
func (s *LockerService) ReturnLocker(ctx context.Context, token string, lockerID int) error {
	user, err := s.authorize(ctx, token, lockerID, access.ActionReturn)
	if err != nil {
		return err
	}
	if err := s.registry.Release(ctx, lockerID, user.ID); err != nil {
		return err
	}
	s.log.Info(ctx, "locker returned", "locker", lockerID, "user", user.ID)
	return nil
}

// LockAnyone locks a locker without authentication. Anyone may close a
// compartment; only opening is guarded.
func (s *LockerService) LockAnyone(ctx context.Context, lockerID int) error {
	return s.registry.ApplyLock(ctx, lockerID)
}

func (s *LockerService) authorize(ctx context.Context, token string, lockerID int, action access.Action) (*models.User, error) {
	user, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(lockerID); err != nil {
		return nil, err
	}
	if !s.policy.Authorize(user.ID, lockerID, action) {
		return nil, fmt.Errorf("%w: locker %d is not yours to %s", common.ErrForbidden, lockerID, action)
	}
	return user, nil
}
