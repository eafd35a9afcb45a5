// Package cli implements todoctl, the admin tool that mutates todo data
// directly through entity operations.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ya55en/pact-showcase/internal/logger"
	"github.com/ya55en/pact-showcase/internal/repo"
	"github.com/ya55en/pact-showcase/internal/service"
	"github.com/ya55en/pact-showcase/internal/storage"
	"github.com/ya55en/pact-showcase/internal/utils"
)

const dbURLEnv = "TODOAPP_DB_URL"

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dbURL string
	debug bool
}

// session is an open, migrated store plus the service over it.
type session struct {
	db  *sql.DB
	svc *service.TodoService
	out io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "todoctl",
		Short:        "Administer todo groups and items",
		SilenceUsage: true,
	}

	defaultURL := os.Getenv(dbURLEnv)
	if defaultURL == "" {
		defaultURL = "sqlite://todo.db"
	}
	cmd.PersistentFlags().StringVar(&opts.dbURL, "db", defaultURL, "storage URL (sqlite://<path> or postgres://...; env "+dbURLEnv+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log to stderr at debug level")

	cmd.AddCommand(migrateCmd(opts))
	cmd.AddCommand(seedCmd(opts))
	cmd.AddCommand(groupsCmd(opts))
	cmd.AddCommand(itemsCmd(opts))
	return cmd
}

func (o *options) logger() *slog.Logger {
	if !o.debug {
		return logger.L()
	}
	l, err := logger.Setup(logger.Config{Level: "debug", Format: "text", Output: os.Stderr})
	if err != nil {
		return logger.L()
	}
	return l
}

// open connects to the configured store and applies migrations.
func (o *options) open(ctx context.Context, out io.Writer) (*session, error) {
	driver, dsn, err := utils.ParseDatabaseURL(o.dbURL)
	if err != nil {
		return nil, fmt.Errorf("--db: %w", err)
	}
	log := o.logger()
	db, err := storage.Open(ctx, storage.Options{Driver: driver, DSN: dsn})
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db, driver, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{
		db:  db,
		svc: service.NewTodoService(repo.NewStore(db), log),
		out: out,
	}, nil
}

func (s *session) Close() error { return s.db.Close() }

// withSession runs fn against an open store and closes it afterwards.
func withSession(cmd *cobra.Command, opts *options, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := opts.open(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(ctx, s)
}

func migrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				fmt.Fprintln(s.out, "migrations applied")
				return nil
			})
		},
	}
}

func seedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the starter data unless it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.svc.Seed(ctx); err != nil {
					return err
				}
				fmt.Fprintln(s.out, "seed done")
				return nil
			})
		},
	}
}
