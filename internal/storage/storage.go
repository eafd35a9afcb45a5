// Package storage opens the SQL database backing the todo store and keeps
// its schema current.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ya55en/pact-showcase/internal/logger"
	"github.com/ya55en/pact-showcase/internal/storage/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// MemoryDSN is the SQLite DSN of a private in-memory database.
const MemoryDSN = ":memory:"

// Options selects and sizes the database.
type Options struct {
	Driver   string
	DSN      string
	MaxConns int
}

// Open connects to the database described by opts and pings it.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	switch opts.Driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite && isMemory(opts.DSN) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		maxConns := opts.MaxConns
		if maxConns <= 0 {
			maxConns = 10
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", opts.Driver, err)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}

func sqliteDSN(dsn string) string {
	pragmas := []string{"_pragma=foreign_keys(1)"}
	if !isMemory(dsn) {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

var migrateMu sync.Mutex

// Migrate applies the embedded migrations for driver. goose keeps its
// dialect and file system in package state, so runs are serialized.
func Migrate(ctx context.Context, db *sql.DB, driver string, log *slog.Logger) error {
	var dialect string
	switch driver {
	case DriverSQLite:
		dialect = "sqlite3"
	case DriverPostgres:
		dialect = "postgres"
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	if log == nil {
		log = logger.L()
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log: log.With("component", "goose")})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	dir := dialect
	if driver == DriverSQLite {
		dir = "sqlite"
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}
