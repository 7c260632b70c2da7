package lockers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) LoadAll(ctx context.Context) ([]models.LockerRecord, error) {
	query :=
		`SELECT id, servo_pin, sensor_pin, status, occupied, closed, owner_id
		 FROM lockers
		 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.LockerRecord
	for rows.Next() {
		var (
			rec    models.LockerRecord
			status string
			owner  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.ServoChannel, &rec.SensorChannel, &status, &rec.Occupied, &rec.Closed, &owner); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if rec.Status, err = models.ParseLockState(status); err != nil {
			return nil, fmt.Errorf("locker %d: %w", rec.ID, err)
		}
		if owner.Valid {
			id := owner.Int64
			rec.OwnerID = &id
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Save(ctx context.Context, rec models.LockerRecord) error {
	query :=
		`UPDATE lockers
		 SET status = $1, occupied = $2, closed = $3, owner_id = $4
		 WHERE id = $5`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		rec.Status.String(), rec.Occupied, rec.Closed, ownerArg(rec.OwnerID), rec.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("locker %d: %w", rec.ID, common.ErrNotFound)
	}

	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, rec models.LockerRecord) error {
	query :=
		`INSERT INTO lockers (id, servo_pin, sensor_pin, status, occupied, closed, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		rec.ID, rec.ServoChannel, rec.SensorChannel, rec.Status.String(), rec.Occupied, rec.Closed, ownerArg(rec.OwnerID))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lockers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func ownerArg(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
