package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/dbx"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T, dialect dbx.Dialect) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, dialect), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password,\s*code\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id\s*$`
	byNameQ = `(?s)^SELECT\s+id,\s*username,\s*password,\s*code,\s*token\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	byIDQ   = `(?s)^SELECT\s+id,\s*username,\s*password,\s*code,\s*token\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	byTokQ  = `(?s)^SELECT\s+id,\s*username,\s*password,\s*code,\s*token\s+FROM\s+users\s+WHERE\s+token\s*=\s*\$1\s*$`
	setTokQ = `^UPDATE\s+users\s+SET\s+token\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`
)

var userCols = []string{"id", "username", "password", "code", "token"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("adam", "pass", "1111").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	got, err := repo.Create(context.Background(), &models.User{UserName: "adam", Password: "pass", PinCode: "1111"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.UserName != "adam" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_SQLiteRebindsPlaceholders(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password,\s*code\)\s*VALUES\s*\(\?1,\s*\?2,\s*\?3\)\s*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs("ewa", "pass", "2222").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	if _, err := repo.Create(context.Background(), &models.User{UserName: "ewa", Password: "pass", PinCode: "2222"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("adam", "pass", "").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "adam", Password: "pass"})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("adam", "pass", "").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "adam", Password: "pass"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, common.ErrConflict) {
		t.Fatalf("plain db error must not be a conflict")
	}
}

func TestGetByUserName_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(byNameQ).
		WithArgs("adam").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "adam", "pass", "1111", "tok"))

	got, err := repo.GetByUserName(context.Background(), "adam")
	if err != nil {
		t.Fatalf("GetByUserName error: %v", err)
	}
	want := models.User{ID: 1, UserName: "adam", Password: "pass", PinCode: "1111", Token: "tok"}
	if *got != want {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUserName_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(byNameQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserName(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(byIDQ).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(2), "ewa", "pass", "2222", ""))
	mock.ExpectQuery(byIDQ).
		WithArgs(int64(3)).
		WillReturnError(errors.New("db err"))

	got, err := repo.GetByID(context.Background(), 2)
	if err != nil || got.PinCode != "2222" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}

	_, err = repo.GetByID(context.Background(), 3)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectQuery(byTokQ).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "adam", "pass", "1111", "tok"))

	got, err := repo.GetByToken(context.Background(), "tok")
	if err != nil || got.UserName != "adam" {
		t.Fatalf("GetByToken = %+v, %v", got, err)
	}
}

func TestGetByToken_EmptyNeverQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	_, err := repo.GetByToken(context.Background(), "")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres)
	defer db.Close()

	mock.ExpectExec(setTokQ).WithArgs("new", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setTokQ).WithArgs("new", int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(setTokQ).WithArgs("new", int64(1)).WillReturnError(errors.New("db err"))

	if err := repo.SetToken(context.Background(), 1, "new"); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if err := repo.SetToken(context.Background(), 9, "new"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
	if err := repo.SetToken(context.Background(), 1, "new"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite)
	defer db.Close()

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM users$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.Count(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
