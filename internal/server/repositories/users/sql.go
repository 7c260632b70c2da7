package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password, code)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		user.UserName, user.Password, user.PinCode).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q taken: %w", user.UserName, common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password, code, token FROM users
		 WHERE username = $1`

	return r.getOne(ctx, query, userName)
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, username, password, code, token FROM users
		 WHERE id = $1`

	return r.getOne(ctx, query, id)
}

// GetByToken never matches the empty token of a user who has not logged in.
func (r *SQLRepository) GetByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrNotFound
	}

	query :=
		`SELECT id, username, password, code, token FROM users
		 WHERE token = $1`

	return r.getOne(ctx, query, token)
}

func (r *SQLRepository) SetToken(ctx context.Context, id int64, token string) error {
	query := `UPDATE users SET token = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), token, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).
		Scan(&user.ID, &user.UserName, &user.Password, &user.PinCode, &user.Token)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
