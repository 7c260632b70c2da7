package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/lockers"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Seed(context.Context, *sql.DB, Defaults) error
	Users(db dbx.DBTX) users.Repository
	Lockers(db dbx.DBTX) lockers.Repository
}
