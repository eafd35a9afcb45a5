package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ParseDurationEnv parses an env value as time.Duration:
// - "10s", "5m" etc. (time.ParseDuration)
// - bare number "10" = seconds (10s)
func ParseDurationEnv(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	// Strip optional surrounding quotes: "10s" or '10s'
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

// ParseDatabaseURL maps a storage URL to a database/sql driver name and DSN.
//
//	sqlite://:memory:        -> sqlite, :memory:
//	sqlite://todo.db         -> sqlite, todo.db
//	sqlite:///var/lib/db     -> sqlite, /var/lib/db
//	postgres://u:p@host/db   -> pgx, the URL unchanged
func ParseDatabaseURL(s string) (driver, dsn string, err error) {
	s = strings.TrimSpace(s)
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return "", "", fmt.Errorf("missing scheme in %q", s)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		path, query, _ := strings.Cut(rest, "?")
		if path == "" {
			return "", "", fmt.Errorf("missing path in sqlite URL")
		}
		if query != "" {
			path += "?" + query
		}
		return "sqlite", path, nil
	case "postgres", "postgresql":
		u, err := url.Parse(s)
		if err != nil {
			return "", "", err
		}
		if u.Host == "" {
			return "", "", fmt.Errorf("missing host in postgres URL")
		}
		return "pgx", s, nil
	}
	return "", "", fmt.Errorf("scheme must be sqlite or postgres, got %q", scheme)
}

// IsForeignKeyViolation reports whether err is a foreign key constraint
// failure from PostgreSQL (code 23503) or SQLite.
func IsForeignKeyViolation(err error) bool {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == "23503"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
