// Package access decides who may open which locker: PIN checks at the keypad,
// ownership checks for API calls, credential sealing and session tokens.
package access

import (
	"context"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Action is an owner-only operation on a locker.
type Action int

const (
	ActionUnlock Action = iota
	ActionReturn
)

func (a Action) String() string {
	if a == ActionReturn {
		return "return"
	}
	return "unlock"
}

// Lockers reads locker snapshots.
type Lockers interface {
	Get(id int) (models.LockerView, error)
}

// Users finds account records by id.
type Users interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type Policy struct {
	lockers Lockers
	users   Users
	scheme  CredentialScheme
	log     logging.Logger
}

func NewPolicy(lockers Lockers, users Users, scheme CredentialScheme, log logging.Logger) *Policy {
	if scheme == nil {
		scheme = Plain{}
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Policy{lockers: lockers, users: users, scheme: scheme, log: log}
}

// VerifyCode reports whether code is the PIN of the owner of lockerID. It is
// false for unknown or free lockers, missing owners and anything that is not
// exactly four digits.
func (p *Policy) VerifyCode(ctx context.Context, lockerID int, code string) bool {
	_, ok := p.CodeOwner(ctx, lockerID, code)
	return ok
}

// CodeOwner returns the owner of lockerID when code is that owner's PIN.
func (p *Policy) CodeOwner(ctx context.Context, lockerID int, code string) (int64, bool) {
	v, err := p.lockers.Get(lockerID)
	if err != nil || !v.Occupied || v.OwnerID == nil {
		return 0, false
	}
	if !common.IsPin(code) {
		return 0, false
	}

	owner, err := p.users.GetByID(ctx, *v.OwnerID)
	if err != nil {
		p.log.Warn(ctx, "owner lookup failed", "locker", lockerID, "user", *v.OwnerID, "error", err)
		return 0, false
	}
	if !p.scheme.Verify(owner.PinCode, code) {
		return 0, false
	}
	return owner.ID, true
}

// Authorize reports whether userID owns lockerID and may therefore perform
// action on it.
func (p *Policy) Authorize(userID int64, lockerID int, action Action) bool {
	v, err := p.lockers.Get(lockerID)
	if err != nil {
		return false
	}
	return v.Occupied && v.OwnerID != nil && *v.OwnerID == userID
}
