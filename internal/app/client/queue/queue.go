package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// Snapshots читает и пишет снимок очереди целиком.
type Snapshots interface {
	LoadJSON(key string, v any) (bool, error)
	SaveJSON(key string, v any) error
}

// Queue упорядоченная очередь отложенных операций.
// Держит копию в памяти и сохраняет полный снимок при каждом изменении.
type Queue struct {
	mu    sync.Mutex
	items []Pending
	store Snapshots
	key   string
	seq   atomic.Uint64
	now   func() time.Time
	log   *slog.Logger
}

func NewQueue(store Snapshots, key string, log *slog.Logger) *Queue {
	q := &Queue{
		store: store,
		key:   key,
		now:   time.Now,
		log:   log.With("component", "pending_queue"),
	}
	q.items = q.load()
	return q
}

// load неразборчивый снимок дает пустую очередь, отдельные битые элементы пропускаются.
func (q *Queue) load() []Pending {
	var raw []json.RawMessage
	ok, err := q.store.LoadJSON(q.key, &raw)
	if err != nil {
		q.log.Warn("pending queue is unreadable, starting empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	items := make([]Pending, 0, len(raw))
	for i, r := range raw {
		var p Pending
		if err := json.Unmarshal(r, &p); err != nil {
			q.log.Warn("dropping unreadable pending operation", "index", i, "error", err)
			continue
		}
		items = append(items, p)
	}
	return items
}

func (q *Queue) persist() {
	items := q.items
	if items == nil {
		items = []Pending{}
	}
	if err := q.store.SaveJSON(q.key, items); err != nil {
		q.log.Error("failed to persist pending queue", "error", err, "size", len(q.items))
	}
}

// Append добавляет операцию в конец очереди и назначает ей id.
func (q *Queue) Append(op Operation) Pending {
	now := q.now()
	p := Pending{
		ID:        fmt.Sprintf("%d-%d", now.UnixNano(), q.seq.Add(1)),
		Op:        op,
		Timestamp: now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	q.persist()

	return p
}

// Snapshot копия очереди в порядке добавления.
func (q *Queue) Snapshot() []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Pending, len(q.items))
	copy(out, q.items)
	return out
}

// Remove удаляет операции с указанными id, остальные сохраняют порядок.
func (q *Queue) Remove(ids map[string]bool) {
	if len(ids) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0:0]
	for _, p := range q.items {
		if !ids[p.ID] {
			kept = append(kept, p)
		}
	}
	q.items = kept
	q.persist()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
