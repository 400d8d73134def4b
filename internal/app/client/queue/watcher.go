package queue

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// Watcher опрашивает связь и запускает синхронизацию при ее восстановлении
// и периодически, пока очередь не пуста.
type Watcher struct {
	engine        *Engine
	conn          Connectivity
	probeInterval time.Duration
	syncInterval  time.Duration
	log           *slog.Logger

	online   atomic.Bool
	onChange func(online bool)
}

func NewWatcher(engine *Engine, conn Connectivity, probe, syncEvery time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{
		engine:        engine,
		conn:          conn,
		probeInterval: probe,
		syncInterval:  syncEvery,
		log:           log.With("component", "connectivity_watcher"),
	}
}

// OnChange обработчик перехода online/offline. Вызывать до Run.
func (w *Watcher) OnChange(fn func(online bool)) {
	w.onChange = fn
}

func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Run блокирует до отмены ctx.
func (w *Watcher) Run(ctx context.Context) {
	if w.probeInterval <= 0 {
		w.log.Info("connectivity probing disabled")
		return
	}

	probe := time.NewTicker(w.probeInterval)
	defer probe.Stop()

	var syncTick <-chan time.Time
	if w.syncInterval > 0 {
		t := time.NewTicker(w.syncInterval)
		defer t.Stop()
		syncTick = t.C
	}

	w.Probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-probe.C:
			w.Probe(ctx)
		case <-syncTick:
			if w.Online() && w.engine.PendingCount() > 0 {
				w.sync(ctx, "interval")
			}
		}
	}
}

// Probe проверяет связь один раз. Переход в online запускает синхронизацию.
func (w *Watcher) Probe(ctx context.Context) {
	online := w.conn.Online(ctx)
	was := w.online.Swap(online)
	if online == was {
		return
	}

	w.log.Info("connectivity changed", "online", online)
	if w.onChange != nil {
		w.onChange(online)
	}
	if online {
		w.sync(ctx, "reconnect")
	}
}

func (w *Watcher) sync(ctx context.Context, trigger string) {
	res, err := w.engine.Sync(ctx)
	if err != nil {
		w.log.Warn("sync failed", "trigger", trigger, "error", err)
		return
	}
	if !res.InProgress {
		w.log.Debug("sync pass done", "trigger", trigger, "replayed", res.Replayed, "remaining", res.Remaining)
	}
}
