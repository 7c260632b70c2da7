package lockers

import (
	"context"

	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Repository is the durable mirror of the locker registry.
type Repository interface {
	// LoadAll returns every locker ordered by id.
	LoadAll(ctx context.Context) ([]models.LockerRecord, error)
	// Save writes the mutable fields of one locker.
	Save(ctx context.Context, rec models.LockerRecord) error
	Insert(ctx context.Context, rec models.LockerRecord) error
	Count(ctx context.Context) (int, error)
}
