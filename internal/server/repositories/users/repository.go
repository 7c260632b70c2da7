package users

import (
	"context"

	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Repository stores user accounts. The token column doubles as the session
// store: one live token per user.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	SetToken(ctx context.Context, id int64, token string) error
	Count(ctx context.Context) (int, error)
}
