package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

// ImportBatchSize размер подпакета при воспроизведении импорта.
const ImportBatchSize = 10

var (
	ErrRemoteNotReady = errors.New("remote store is not initialized")
	ErrNotReplayed    = errors.New("operation not replayed")
)

// Remote операции удаленного хранилища, нужные для воспроизведения очереди.
type Remote interface {
	Ready() bool
	CreateRecord(ctx context.Context, s student.Student) (student.Student, error)
	UpdateRecord(ctx context.Context, id string, p student.Patch) error
	DeleteRecord(ctx context.Context, id, reason string) error
	FindByBusinessKey(ctx context.Context, key string) (*student.Student, error)
	BatchUpdate(ctx context.Context, records []student.Student) (student.BatchResult, error)
	BulkImport(ctx context.Context, records []student.Student) (student.ImportResult, error)
}

// Connectivity сообщает, есть ли связь с удаленным хранилищем.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Status состояние синхронизации.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// Stats сводка по проходам синхронизации, хранится рядом со статусом.
type Stats struct {
	LastAttempt time.Time `json:"lastAttempt,omitempty"`
	LastSuccess time.Time `json:"lastSuccess,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	Passes      int       `json:"passes"`
	Replayed    int       `json:"replayed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
}

// Result итог одного прохода синхронизации.
type Result struct {
	Success    bool
	InProgress bool
	Offline    bool
	Replayed   int
	Skipped    int
	Failed     int
	Remaining  int
	Import     student.ImportResult
}

// Store состояние движка в локальном кеше.
type Store interface {
	Snapshots
	GetString(key string) (string, error)
	SetString(key, value string) error
}

// Keys ключи, под которыми движок хранит очередь, статус и статистику.
type Keys struct {
	Pending string
	Status  string
	Stats   string
}

// Engine очередь отложенных операций и их воспроизведение на удаленном хранилище.
type Engine struct {
	queue  *Queue
	store  Store
	keys   Keys
	remote Remote
	conn   Connectivity
	log    *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	status      Status
	stats       Stats
	syncing     bool
	subscribers map[int]func(Status)
	nextSub     int
}

// NewEngine загружает очередь. Непустая очередь дает статус pending.
// conn может быть nil: тогда связь считается всегда доступной.
func NewEngine(store Store, keys Keys, remote Remote, conn Connectivity, log *slog.Logger) *Engine {
	e := &Engine{
		queue:       NewQueue(store, keys.Pending, log),
		store:       store,
		keys:        keys,
		remote:      remote,
		conn:        conn,
		log:         log.With("component", "sync_engine"),
		now:         time.Now,
		subscribers: make(map[int]func(Status)),
	}

	if _, err := store.LoadJSON(keys.Stats, &e.stats); err != nil {
		e.log.Warn("sync stats are unreadable, resetting", "error", err)
		e.stats = Stats{}
	}

	e.status = StatusSynced
	if e.queue.Len() > 0 {
		e.status = StatusPending
	}
	e.persistStatus(e.status)

	return e
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) PendingCount() int {
	return e.queue.Len()
}

// Pending копия очереди в порядке добавления.
func (e *Engine) Pending() []Pending {
	return e.queue.Snapshot()
}

// Subscribe регистрирует обработчик смены статуса. Возвращает функцию отписки.
func (e *Engine) Subscribe(fn func(Status)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Enqueue добавляет операцию. Статус становится pending, если не идет синхронизация.
func (e *Engine) Enqueue(op Operation) Pending {
	p := e.queue.Append(op)
	e.log.Info("operation queued", "id", p.ID, "type", op.Kind())

	e.mu.Lock()
	syncing := e.syncing
	e.mu.Unlock()
	if !syncing {
		e.setStatus(StatusPending)
	}
	return p
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	if e.status == s {
		e.mu.Unlock()
		return
	}
	e.status = s
	subs := make([]func(Status), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	e.persistStatus(s)
	for _, fn := range subs {
		fn(s)
	}
}

func (e *Engine) persistStatus(s Status) {
	if err := e.store.SetString(e.keys.Status, string(s)); err != nil {
		e.log.Error("failed to persist sync status", "status", s, "error", err)
	}
}

func (e *Engine) persistStats() {
	e.mu.Lock()
	stats := e.stats
	e.mu.Unlock()
	if err := e.store.SaveJSON(e.keys.Stats, stats); err != nil {
		e.log.Error("failed to persist sync stats", "error", err)
	}
}

// Sync воспроизводит очередь по порядку. Повторный вызов во время прохода
// возвращает InProgress. Пустая очередь и отсутствие связи - пустой проход без ошибки.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{InProgress: true}, nil
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	pending := e.queue.Snapshot()
	if len(pending) == 0 {
		if e.Status() != StatusError {
			e.setStatus(StatusSynced)
		}
		return Result{Success: true}, nil
	}

	if e.remote == nil || !e.remote.Ready() {
		e.setStatus(StatusError)
		e.recordFailure(ErrRemoteNotReady)
		return Result{Remaining: len(pending)}, ErrRemoteNotReady
	}

	if e.conn != nil && !e.conn.Online(ctx) {
		e.log.Debug("offline, sync skipped", "pending", len(pending))
		e.setStatus(StatusPending)
		return Result{Offline: true, Remaining: len(pending)}, nil
	}

	e.setStatus(StatusSyncing)
	e.log.Info("sync started", "pending", len(pending))

	res := Result{}
	done := make(map[string]bool, len(pending))
	var lastErr error

	for _, p := range pending {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		out, err := e.replay(ctx, p.Op)
		res.Import = res.Import.Add(out.imported)

		switch {
		case err != nil:
			res.Failed++
			lastErr = err
			e.log.Warn("operation replay failed", "id", p.ID, "type", p.Op.Kind(), "error", err)
		case out.skipped:
			res.Skipped++
			done[p.ID] = true
			e.log.Info("operation skipped", "id", p.ID, "type", p.Op.Kind(), "reason", out.reason)
		default:
			res.Replayed++
			done[p.ID] = true
		}

		if out.requeue != nil {
			e.queue.Append(out.requeue)
			done[p.ID] = true
		}
	}

	e.queue.Remove(done)
	res.Remaining = e.queue.Len()
	res.Success = res.Remaining == 0

	if res.Success {
		e.setStatus(StatusSynced)
	} else {
		e.setStatus(StatusPending)
	}

	e.mu.Lock()
	e.stats.Passes++
	e.stats.LastAttempt = e.now()
	e.stats.Replayed += res.Replayed
	e.stats.Skipped += res.Skipped
	e.stats.Failed += res.Failed
	if res.Success {
		e.stats.LastSuccess = e.stats.LastAttempt
		e.stats.LastError = ""
	} else if lastErr != nil {
		e.stats.LastError = lastErr.Error()
	}
	e.mu.Unlock()
	e.persistStats()

	e.log.Info("sync finished",
		"replayed", res.Replayed, "skipped", res.Skipped, "failed", res.Failed, "remaining", res.Remaining)

	return res, nil
}

func (e *Engine) recordFailure(err error) {
	e.mu.Lock()
	e.stats.LastAttempt = e.now()
	e.stats.LastError = err.Error()
	e.mu.Unlock()
	e.persistStats()
}

type outcome struct {
	skipped  bool
	reason   string
	imported student.ImportResult
	// requeue заменяет исходную операцию остатком, который не удалось применить
	requeue Operation
}

func (e *Engine) replay(ctx context.Context, op Operation) (outcome, error) {
	switch op := op.(type) {
	case AddOp:
		_, err := e.remote.CreateRecord(ctx, op.Record)
		return outcome{}, err
	case UpdateOp:
		return e.replayUpdate(ctx, op)
	case DeleteOp:
		return e.replayDelete(ctx, op)
	case BatchUpdateOp:
		_, err := e.remote.BatchUpdate(ctx, op.Records)
		return outcome{}, err
	case ImportOp:
		return e.replayImport(ctx, op)
	default:
		return outcome{}, fmt.Errorf("replay: unsupported operation %T", op)
	}
}

// replayUpdate не создает запись, если ее нет. Несовпадение hexId - пропуск.
func (e *Engine) replayUpdate(ctx context.Context, op UpdateOp) (outcome, error) {
	cur, err := e.remote.FindByBusinessKey(ctx, op.Record.Documento)
	if err != nil {
		return outcome{}, fmt.Errorf("replay update: %w", err)
	}
	if cur == nil {
		return outcome{}, fmt.Errorf("replay update %s: %w: record not found", op.Record.Documento, ErrNotReplayed)
	}
	if op.Record.HexID != "" && cur.HexID != "" && op.Record.HexID != cur.HexID {
		return outcome{skipped: true, reason: "hexId mismatch"}, nil
	}

	if err := e.remote.UpdateRecord(ctx, cur.ID, op.Record.ReplacePatch(*cur)); err != nil {
		return outcome{}, fmt.Errorf("replay update: %w", err)
	}
	return outcome{}, nil
}

// replayDelete отсутствующая запись считается уже удаленной.
func (e *Engine) replayDelete(ctx context.Context, op DeleteOp) (outcome, error) {
	cur, err := e.remote.FindByBusinessKey(ctx, op.Record.Documento)
	if err != nil {
		return outcome{}, fmt.Errorf("replay delete: %w", err)
	}
	if cur == nil {
		return outcome{skipped: true, reason: "already deleted"}, nil
	}

	if err := e.remote.DeleteRecord(ctx, cur.ID, op.Reason); err != nil {
		return outcome{}, fmt.Errorf("replay delete: %w", err)
	}
	return outcome{}, nil
}

// replayImport отбрасывает записи без ключа и импортирует подпакетами.
// Неудачный подпакет повторяется по одной записи, неудачные записи уходят в новую операцию.
func (e *Engine) replayImport(ctx context.Context, op ImportOp) (outcome, error) {
	valid := make([]student.Student, 0, len(op.Records))
	for _, r := range op.Records {
		if r.Key() != "" {
			valid = append(valid, r)
		}
	}

	out := outcome{}
	dropped := len(op.Records) - len(valid)
	if dropped > 0 {
		e.log.Warn("import records without Documento dropped", "count", dropped)
		out.imported.Errors += dropped
		out.imported.Total += dropped
	}

	var failed []student.Student
	for start := 0; start < len(valid); start += ImportBatchSize {
		chunk := valid[start:min(start+ImportBatchSize, len(valid))]

		res, err := e.remote.BulkImport(ctx, chunk)
		if err == nil {
			out.imported = out.imported.Add(res)
			continue
		}

		e.log.Warn("import sub-batch failed, retrying per record", "offset", start, "size", len(chunk), "error", err)
		for _, r := range chunk {
			res, err := e.remote.BulkImport(ctx, []student.Student{r})
			if err != nil {
				failed = append(failed, r)
				continue
			}
			out.imported = out.imported.Add(res)
		}
	}

	if len(failed) == 0 {
		return out, nil
	}

	if len(failed) < len(op.Records) {
		out.requeue = ImportOp{Records: failed}
	}
	return out, fmt.Errorf("replay import: %w: %d of %d records failed", ErrNotReplayed, len(failed), len(valid))
}
