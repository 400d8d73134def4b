package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"tejanitos/internal/app/server/api"
	"tejanitos/internal/app/server/config"
	"tejanitos/internal/domain/student"
	"tejanitos/internal/infrastructure/storage/memory"
	"tejanitos/internal/infrastructure/storage/postgres"
	"tejanitos/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, storageName, closeFn, err := setupRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	service := student.NewService(repo, log)

	recovered, err := service.RecoverDuplicates(ctx)
	if err != nil {
		log.Warn("duplicate recovery failed", "error", err)
	} else if recovered > 0 {
		log.Info("removed active duplicates of inactive records", "count", recovered)
	}

	server := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(service, api.Options{Storage: storageName, TokenHash: cfg.Server.APITokenHash}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("starting server", "address", cfg.Server.RunAddress, "env", cfg.Env, "storage", storageName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("start shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("could not stop server gracefully", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("could not force stop server: %w", err)
		}
	}
	return nil
}

func setupRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (student.Repository, string, func(), error) {
	if cfg.InMemory() {
		log.Warn("DATABASE_URI is empty, using in-memory storage")
		return memory.NewStudentRepository(), "memory", func() {}, nil
	}

	storage, err := postgres.New(ctx, cfg, log)
	if err != nil {
		return nil, "", nil, fmt.Errorf("init storage: %w", err)
	}

	closeFn := func() {
		if err := storage.Close(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}
	return postgres.NewStudentRepository(storage, log), "postgres", closeFn, nil
}
