package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"tejanitos/internal/app/client/cache"
	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/roster"
	"tejanitos/internal/domain/student"
)

// RemoteTimeout ограничение на одну фоновую запись в удаленное хранилище.
const RemoteTimeout = 30 * time.Second

var (
	ErrNoData            = errors.New("no data source returned records")
	ErrSourceUnavailable = errors.New("data source unavailable")
)

// Remote удаленное хранилище документов с точки зрения клиента.
type Remote interface {
	queue.Remote
	ListAll(ctx context.Context) ([]student.Student, error)
	ListInactive(ctx context.Context) ([]student.Student, error)
	GetInactive(ctx context.Context, id string) (*student.Student, error)
	RestoreRecord(ctx context.Context, inactiveID string, target student.Student) error
	DeleteInactive(ctx context.Context, ids []string) (int, error)
}

// Options настройки фасада.
type Options struct {
	// RosterPath файл ведомости, последний источник данных при загрузке
	RosterPath   string
	Columns      roster.Columns
	Extractor    roster.KeyExtractor
	DefaultTurno string
}

// Service фасад доступа к данным: синхронно пишет в локальный кеш
// и асинхронно в удаленное хранилище; неудачные записи уходят в очередь.
type Service struct {
	cache      *cache.Cache
	remote     Remote
	conn       queue.Connectivity
	engine     *queue.Engine
	reconciler *roster.Reconciler
	opts       Options
	log        *slog.Logger
	now        func() time.Time

	once sync.Once
	wg   sync.WaitGroup
	mu   sync.Mutex
}

// NewService conn может быть nil: тогда связь определяется только Ready удаленного хранилища.
func NewService(c *cache.Cache, remote Remote, conn queue.Connectivity, engine *queue.Engine, opts Options, log *slog.Logger) *Service {
	if opts.Columns == (roster.Columns{}) {
		opts.Columns = roster.DefaultColumns
	}

	return &Service{
		cache:      c,
		remote:     remote,
		conn:       conn,
		engine:     engine,
		reconciler: roster.NewReconciler(opts.Extractor, log),
		opts:       opts,
		log:        log.With("component", "data_service"),
		now:        time.Now,
	}
}

// Initialize идемпотентна. При непустой очереди запускает фоновую синхронизацию.
func (s *Service) Initialize(ctx context.Context) {
	s.once.Do(func() {
		s.log.Info("data service initialized",
			"remote", s.remoteConfigured(),
			"pending", s.engine.PendingCount(),
			"status", s.engine.Status(),
		)

		if !s.remoteConfigured() || s.engine.PendingCount() == 0 {
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.engine.Sync(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("initial sync failed", "error", err)
			}
		}()
	})
}

// Wait дожидается фоновых записей в удаленное хранилище.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Engine() *queue.Engine {
	return s.engine
}

func (s *Service) remoteConfigured() bool {
	return s.remote != nil && s.remote.Ready()
}

// online удаленное хранилище настроено и доступно.
func (s *Service) online(ctx context.Context) bool {
	if !s.remoteConfigured() {
		return false
	}
	return s.conn == nil || s.conn.Online(ctx)
}

// dualWrite выполняет запись в удаленное хранилище в фоне.
// Без связи или при ошибке операция ставится в очередь. Без удаленного хранилища ничего не делает.
func (s *Service) dualWrite(ctx context.Context, name string, op queue.Operation, write func(context.Context) error) {
	if !s.remoteConfigured() {
		return
	}
	if s.conn != nil && !s.conn.Online(ctx) {
		s.log.Debug("offline, write queued", "op", name)
		s.engine.Enqueue(op)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RemoteTimeout)
		defer cancel()

		if err := write(wctx); err != nil {
			s.log.Warn("remote write failed, queued for retry", "op", name, "error", err)
			s.engine.Enqueue(op)
		}
	}()
}

// save сохраняет снимок. Записям без id подставляется id, уже известный кешу.
func (s *Service) save(list []student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]string)
	for _, r := range s.cache.GetAll() {
		if r.ID != "" && r.Key() != "" {
			known[r.Key()] = r.ID
		}
	}

	out := make([]student.Student, len(list))
	for i, r := range list {
		out[i] = r.Clone()
		if out[i].ID == "" {
			out[i].ID = known[r.Key()]
		}
	}

	if err := s.cache.SaveAll(out); err != nil {
		s.log.Error("failed to save local cache", "error", err)
		return err
	}
	return nil
}

// backfillID записывает в кеш id, назначенный удаленным хранилищем.
func (s *Service) backfillID(key, id string) {
	if key == "" || id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.cache.GetAll()
	changed := false
	for i := range list {
		if list[i].ID == "" && list[i].Key() == key {
			list[i].ID = id
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := s.cache.SaveAll(list); err != nil {
		s.log.Warn("failed to store remote id in cache", "key", key, "error", err)
	}
}
