package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ya55en/pact-showcase/internal/config"
	"github.com/ya55en/pact-showcase/internal/handlers"
	"github.com/ya55en/pact-showcase/internal/logger"
	"github.com/ya55en/pact-showcase/internal/repo"
	"github.com/ya55en/pact-showcase/internal/service"
	"github.com/ya55en/pact-showcase/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	svc    *service.TodoService
	router *gin.Engine
}

// New opens the store, brings its schema up to date, seeds it when enabled
// and builds the router.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = logger.L()
	}
	a := &App{cfg: cfg, log: log}

	db, err := storage.Open(ctx, storage.Options{
		Driver:   cfg.DB.Driver,
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := storage.Migrate(ctx, db, cfg.DB.Driver, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.svc = service.NewTodoService(repo.NewStore(db), log.With("component", "service"))
	if cfg.DB.Seed {
		if err := a.svc.Seed(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	a.router = newRouter(cfg, a.svc, log)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Service() *service.TodoService {
	return a.svc
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func newRouter(cfg config.Config, svc *service.TodoService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.CustomRecovery(handlers.Recovery(log)))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, svc, log)
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
