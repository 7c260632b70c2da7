package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/users"
)

// SessionStore keeps the live token of each user. Issuing a token replaces
// the previous one.
type SessionStore interface {
	Issue(ctx context.Context, userID int64, token string) error
	Lookup(ctx context.Context, token string) (*models.User, error)
}

// UserSessions keeps the single live token in the users table.
type UserSessions struct {
	users users.Repository
}

func NewUserSessions(repo users.Repository) *UserSessions {
	return &UserSessions{users: repo}
}

func (s *UserSessions) Issue(ctx context.Context, userID int64, token string) error {
	if err := s.users.SetToken(ctx, userID, token); err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	return nil
}

// Lookup returns the user whose live token is token, or
// common.ErrUnauthenticated.
func (s *UserSessions) Lookup(ctx context.Context, token string) (*models.User, error) {
	user, err := s.users.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: session not found", common.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !tokensEqual(user.Token, token) {
		return nil, fmt.Errorf("%w: session not found", common.ErrUnauthenticated)
	}
	return user, nil
}
