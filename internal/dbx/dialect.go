package dbx

import (
	"fmt"
	"regexp"
)

// Dialect names a supported SQL backend. Its value is the database/sql driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "pgx"
)

// ParseDialect accepts the driver names plus a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// DriverName is the name registered with database/sql.
func (d Dialect) DriverName() string { return string(d) }

// GooseDialect is the dialect name understood by goose.
func (d Dialect) GooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// Rebind converts queries written with $N placeholders to the dialect's form.
// SQLite gets ?N, which keeps numbering (and reuse) intact.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return dollarParam.ReplaceAllString(query, "?$1")
	}
	return query
}
