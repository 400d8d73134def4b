package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"tejanitos/internal/app/server/config"
	"tejanitos/internal/infrastructure/migration"
)

type Storage struct {
	pool *pgxpool.Pool
}

// New открывает пул соединений и накатывает миграции.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	mg := migration.NewMigration(cfg.DB.Migrations, cfg.DB.DatabaseURI, migration.DefaultEngine, log)
	if err := mg.Up(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}
