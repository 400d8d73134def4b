package migration

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// драйвер postgres и файловый источник для migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/exp/slog"
)

// Migrator нужная нам часть migrate.Migrate
type Migrator interface {
	Up() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// MigrationEngine фабрика мигратора, подменяется в тестах
type MigrationEngine func(sourceURL, databaseURL string) (Migrator, error)

type Migration struct {
	dir    string
	dsn    string
	engine MigrationEngine
	log    *slog.Logger
}

func NewMigration(dir, dsn string, engine MigrationEngine, log *slog.Logger) *Migration {
	return &Migration{
		dir:    dir,
		dsn:    dsn,
		engine: engine,
		log:    log.With("component", "migration"),
	}
}

// DefaultEngine создает настоящий migrate.Migrate
func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Up накатывает все миграции. Отсутствие изменений ошибкой не считается.
func (mg *Migration) Up() (err error) {
	m, err := mg.engine("file://"+mg.dir, mg.dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.log.Debug("schema is up to date")
			return nil
		}
		return fmt.Errorf("migration up: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil {
		mg.log.Warn("cannot read schema version", "error", verr)
		return nil
	}
	mg.log.Info("schema migrated", "version", version, "dirty", dirty)

	return nil
}
