package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cutting-tracker/http-server/jobs/complete"
	getmaster "cutting-tracker/http-server/master/get"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/config"
	"cutting-tracker/internal/lock"
	"cutting-tracker/internal/middleware/auth"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage/memory"
	"cutting-tracker/internal/storage/mysql"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// store is what both storage drivers provide.
type store interface {
	cutting.Repository
	cutting.MasterData
	getmaster.MasterDataProvider
}

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env, cfg.ErrorLogPath)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := checkTimeouts(cfg); err != nil {
		return err
	}

	st, err := openStorage(cfg.Storage, log)
	if err != nil {
		return err
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	locker, err := openLocker(cfg.Lock, log)
	if err != nil {
		return err
	}
	if c, ok := locker.(io.Closer); ok {
		defer c.Close()
	}

	policy, err := authz.Load(cfg.AuthzPolicy)
	if err != nil {
		return err
	}

	accounts, err := auth.Accounts(cfg.Users)
	if err != nil {
		return err
	}

	svc := cutting.NewService(log, st, st,
		cutting.WithLocker(locker),
		cutting.WithPolicy(policy),
	)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(cfg, log, accounts, svc, st),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// checkTimeouts rejects configs where a request can outlive the server write
// timeout or a job lease.
func checkTimeouts(cfg *config.Config) error {
	if cfg.HTTPServer.Timeout <= complete.Deadline {
		return fmt.Errorf("http_server.timeout %s must exceed the %s completion deadline", cfg.HTTPServer.Timeout, complete.Deadline)
	}
	if cfg.Lock.Backend == "redis" && cfg.Lock.TTL <= cfg.HTTPServer.Timeout {
		return fmt.Errorf("lock.ttl %s must exceed http_server.timeout %s", cfg.Lock.TTL, cfg.HTTPServer.Timeout)
	}
	return nil
}

func openStorage(cfg config.Storage, log *slog.Logger) (store, error) {
	switch cfg.Driver {
	case "memory":
		st := memory.New()
		if cfg.SeedPath != "" {
			seed, err := memory.ReadSeed(cfg.SeedPath)
			if err != nil {
				return nil, err
			}
			st.Load(seed)
		}
		log.Warn("using in-memory storage, data is lost on restart")
		return st, nil
	default:
		st, err := mysql.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	}
}

func openLocker(cfg config.Lock, log *slog.Logger) (lock.Locker, error) {
	if cfg.Backend != "redis" {
		return lock.NewLocal(), nil
	}
	return lock.NewRedis(log, lock.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
	})
}

// dualHandler writes everything to the core handler and copies errors to a
// separate file.
type dualHandler struct {
	coreHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.coreHandler.Enabled(ctx, lvl) || h.errorHandler.Enabled(ctx, lvl)
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	if h.coreHandler.Enabled(ctx, r.Level) {
		if err = h.coreHandler.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= slog.LevelError && h.errorHandler.Enabled(ctx, r.Level) {
		// failures writing the error file are ignored
		_ = h.errorHandler.Handle(ctx, r.Clone())
	}

	return err
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

func setupLogger(env, errorLogPath string) *slog.Logger {
	level := slog.LevelDebug
	if env == envProd {
		level = slog.LevelInfo
	}

	var coreHandler slog.Handler
	switch env {
	case envDev, envProd:
		coreHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	if errorLogPath == "" {
		return slog.New(coreHandler)
	}

	errorFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("cannot open error log file", "path", errorLogPath, "error", err)
		return slog.New(coreHandler)
	}

	return slog.New(&dualHandler{
		coreHandler:  coreHandler,
		errorHandler: slog.NewTextHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError}),
	})
}
