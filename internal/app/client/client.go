package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"tejanitos/internal/app/client/cache"
	"tejanitos/internal/app/client/config"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/app/client/remote"
	"tejanitos/internal/domain/roster"
)

const remoteTimeout = 30 * time.Second

type App struct {
	config  *config.Config
	log     *slog.Logger
	cache   *cache.Cache
	remote  *remote.Client
	engine  *queue.Engine
	watcher *queue.Watcher
	data    *data.Service

	wg     gosync.WaitGroup
	cancel context.CancelFunc
	mu     gosync.Mutex
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client config is nil")
	}

	c := cache.Open(cfg.DataPath, cfg.AppPrefix, log)

	rc := remote.New(remote.Options{
		BaseURL: cfg.BaseURL(),
		Token:   cfg.APIToken,
		Enabled: cfg.UseRemote,
		Timeout: remoteTimeout,
	}, log)

	keys := c.Keys()
	engine := queue.NewEngine(c, queue.Keys{
		Pending: keys.Pending,
		Status:  keys.Status,
		Stats:   keys.Stats,
	}, rc, rc, log)

	watcher := queue.NewWatcher(engine, rc, cfg.HealthEvery(), cfg.SyncEvery(), log)

	svc := data.NewService(c, rc, rc, engine, data.Options{
		RosterPath:   cfg.RosterPath,
		DefaultTurno: cfg.DefaultTurno,
	}, log)

	app := &App{
		config:  cfg,
		log:     log.With("component", "client_app"),
		cache:   c,
		remote:  rc,
		engine:  engine,
		watcher: watcher,
		data:    svc,
	}

	watcher.OnChange(func(online bool) {
		app.log.Info("connectivity changed", "online", online)
	})

	return app, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Data() *data.Service {
	return a.data
}

func (a *App) Engine() *queue.Engine {
	return a.engine
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	if !a.remote.Ready() {
		return remote.ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return a.remote.HealthCheck(ctx)
}

// Sync один проход очереди отложенных операций.
func (a *App) Sync(ctx context.Context) (queue.Result, error) {
	return a.engine.Sync(ctx)
}

// Run запускает наблюдение за связью и папкой входящих ведомостей и блокирует до отмены ctx.
// С autoApply изменения из новых ведомостей применяются без подтверждения.
func (a *App) Run(ctx context.Context, autoApply bool) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	a.data.Initialize(ctx)

	unsubscribe := a.engine.Subscribe(func(s queue.Status) {
		a.log.Info("sync status changed", "status", s, "pending", a.engine.PendingCount())
	})
	defer unsubscribe()

	inbox, err := roster.NewInbox(a.config.InboxDir, func(path string) {
		a.processInbox(ctx, path, autoApply)
	}, a.log)
	if err != nil {
		return fmt.Errorf("start roster inbox: %w", err)
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.watcher.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		if err := inbox.Run(ctx); err != nil {
			a.log.Error("roster inbox stopped", "error", err)
		}
	}()

	a.log.Info("client started",
		"server", a.config.ServerAddress,
		"remote", a.config.UseRemote,
		"inbox", a.config.InboxDir,
		"env", a.config.Env,
	)

	<-ctx.Done()
	a.wg.Wait()
	return nil
}

func (a *App) processInbox(ctx context.Context, path string, autoApply bool) {
	log := a.log.With("path", path)

	f, err := os.Open(path)
	if err != nil {
		log.Error("failed to open roster file", "error", err)
		return
	}
	defer f.Close()

	current, err := a.data.LoadAll(ctx, true)
	if err != nil {
		log.Warn("roster compared against empty dataset", "error", err)
	}

	out, err := a.data.ProcessRosterFile(ctx, filepath.Base(path), f, current, autoApply)
	if err != nil {
		log.Error("failed to process roster file", "error", err)
		return
	}

	cs := out.ChangeSet
	log.Info("roster compared",
		"changed", len(cs.Changed),
		"missing", len(cs.Missing),
		"new", len(cs.New),
		"reactivated", len(cs.Reactivated),
		"skipped_rows", cs.SkippedRows,
	)
	if out.Applied != nil {
		log.Info("roster applied", "stats", out.Applied.Stats)
	}
}

// Shutdown останавливает Run, дожидается фоновых записей и закрывает кеш.
func (a *App) Shutdown() {
	a.log.Info("shutting down client")

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.data.Wait()

	if err := a.cache.Close(); err != nil {
		a.log.Warn("failed to close cache", "error", err)
	}
}
