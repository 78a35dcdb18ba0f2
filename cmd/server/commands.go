package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/learning-journal/internal/config"
	"github.com/iliyamo/learning-journal/internal/database"
	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/middleware"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/router"
	"github.com/iliyamo/learning-journal/internal/service"
	"github.com/iliyamo/learning-journal/internal/session"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
)

// ServeCmd runs the web service until SIGINT or SIGTERM.
type ServeCmd struct {
	SkipMigrate bool `help:"Do not apply migrations on startup."`
}

func (c *ServeCmd) Run() error {
	cfg, err := setup("journal.log")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if !c.SkipMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	store := repository.NewStore(db)
	repos := store.Repos()

	sessStore, err := sessionStore(ctx, cfg, repos)
	if err != nil {
		return err
	}
	sessions := session.NewManager(sessStore, repos.Users, []byte(cfg.SessionSecret), cfg.SessionTTL)

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		publisher = queue.NewAMQPPublisher(cfg.RabbitURL)
		logger.Info("audit events enabled", "queue", queue.AuditQueueName)
	}

	svc := service.New(store, sessions, publisher, service.Options{
		BcryptCost:             cfg.BcryptCost,
		AutoLoginOnRegister:    cfg.AutoLoginOnRegister,
		RequirePasswordClasses: cfg.PasswordRequireClasses,
	})

	e := router.New(router.Deps{
		DB:       db,
		Service:  svc,
		Sessions: sessions,
		Cookie: middleware.Cookie{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			TTL:    cfg.SessionTTL,
		},
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DB.Driver, "sessions", cfg.SessionBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// sessionStore builds the configured session backend.  The SQL backend gets
// a background sweeper; Redis expires records on its own.
func sessionStore(ctx context.Context, cfg config.Config, repos repository.Repos) (session.Store, error) {
	if cfg.SessionBackend == "redis" {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			_ = rdb.Close()
		}()
		return session.NewRedisStore(rdb), nil
	}

	s := session.NewSQLStore(repos.Sessions)
	go sweep(ctx, s)
	return s, nil
}

func sweep(ctx context.Context, s *session.SQLStore) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Sweep(ctx, now.UTC())
			if err != nil {
				logger.Warn("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// MigrateCmd applies migrations and exits.
type MigrateCmd struct{}

func (MigrateCmd) Run() error {
	cfg, err := setup("journal.log")
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("migrations applied", "db", cfg.DB.Driver)
	return nil
}

// AuditConsumerCmd drains the audit queue into a rotating log file.
type AuditConsumerCmd struct {
	Output string `help:"Audit log file name inside LOG_DIR." default:"audit.log"`
}

func (c *AuditConsumerCmd) Run() error {
	cfg, err := setup("audit-consumer.log")
	if err != nil {
		return err
	}
	if cfg.RabbitURL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, c.Output),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     90,
	}
	defer func() { _ = sink.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming audit events", "queue", queue.AuditQueueName, "file", sink.Filename)
	if err := queue.Consume(ctx, cfg.RabbitURL, sink); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setup(logFile string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.LogDebug, LogDir: cfg.LogDir, File: logFile}); err != nil {
		return cfg, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}
