// Package repomanager vends dialect-aware repository implementations, opens
// the database and applies the embedded goose migrations and seed data.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/server/migrations"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/lockers"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager binds repositories to one SQL dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewRepositoryManager(dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

// Lockers returns a lockers.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Lockers(db dbx.DBTX) lockers.Repository {
	return lockers.NewSQLRepository(db, m.dialect)
}

// Open connects to the database and checks the connection. SQLite is limited
// to a single connection so concurrent commits queue instead of failing with
// SQLITE_BUSY.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// migrationDir is the embedded directory holding the dialect's migrations.
func (m *SQLRepositoryManager) migrationDir() string {
	if m.dialect == dbx.SQLite {
		return "sqlite"
	}
	return "postgres"
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, m.migrationDir()); err != nil {
		return err
	}
	return nil
}

// SeedLocker is a locker row to create on an empty database. Owner names a
// seeded user by username.
type SeedLocker struct {
	Record models.LockerRecord
	Owner  string
}

// Defaults is the initial content of an empty database. Users must already be
// sealed with the active credential scheme.
type Defaults struct {
	Users   []models.User
	Lockers []SeedLocker
}

// DefaultLockers is the four-compartment bank the controller ships with.
func DefaultLockers() []SeedLocker {
	return []SeedLocker{
		{Record: models.LockerRecord{ID: 0, ServoChannel: 7, SensorChannel: 1, Status: models.Locked, Occupied: true, Closed: true}, Owner: "adam"},
		{Record: models.LockerRecord{ID: 1, ServoChannel: 21, SensorChannel: 20, Status: models.Locked, Closed: true}},
		{Record: models.LockerRecord{ID: 2, ServoChannel: 15, SensorChannel: 14, Status: models.Unlocked}},
		{Record: models.LockerRecord{ID: 3, ServoChannel: 26, SensorChannel: 12, Status: models.Unlocked}},
	}
}

// Seed inserts d in one transaction. Users are only created when the users
// table is empty, lockers only when the lockers table is empty.
func (m *SQLRepositoryManager) Seed(ctx context.Context, db *sql.DB, d Defaults) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ur := m.Users(tx)
		lr := m.Lockers(tx)

		n, err := ur.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			for i := range d.Users {
				u := d.Users[i]
				if _, err := ur.Create(ctx, &u); err != nil {
					return fmt.Errorf("seed user %s: %w", u.UserName, err)
				}
			}
		}

		n, err = lr.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, s := range d.Lockers {
			rec := s.Record
			if s.Owner != "" {
				u, err := ur.GetByUserName(ctx, s.Owner)
				if err != nil {
					return fmt.Errorf("seed locker %d owner %s: %w", rec.ID, s.Owner, err)
				}
				rec.OwnerID = &u.ID
				rec.Occupied = true
			}
			if err := lr.Insert(ctx, rec); err != nil {
				return fmt.Errorf("seed locker %d: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Compile-time check.
var _ RepositoryManager = (*SQLRepositoryManager)(nil)
