package cache

import (
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

// Keys ключи локального состояния с префиксом приложения.
type Keys struct {
	Students string
	Pending  string
	Status   string
	Stats    string
}

func NewKeys(prefix string) Keys {
	return Keys{
		Students: prefix + "_students_data",
		Pending:  prefix + "_pending_operations",
		Status:   prefix + "_sync_status",
		Stats:    prefix + "_sync_stats",
	}
}

// Cache локальный кеш набора записей и состояния синхронизации.
type Cache struct {
	store Store
	keys  Keys
	log   *slog.Logger
}

func New(store Store, prefix string, log *slog.Logger) *Cache {
	return &Cache{
		store: store,
		keys:  NewKeys(prefix),
		log:   log.With("component", "cache"),
	}
}

// Open открывает SQLite-файл; при ошибке кеш работает в памяти.
func Open(path, prefix string, log *slog.Logger) *Cache {
	var store Store
	sqliteStore, err := NewSQLiteStore(path)
	if err != nil {
		log.Warn("Не удалось инициализировать SQLite, используем память", "path", path, "error", err)
		store = NewMemoryStore()
	} else {
		store = sqliteStore
	}
	return New(store, prefix, log)
}

func (c *Cache) Keys() Keys {
	return c.keys
}

func (c *Cache) Close() error {
	return c.store.Close()
}

// SaveAll заменяет снимок записей целиком.
func (c *Cache) SaveAll(records []student.Student) error {
	if records == nil {
		records = []student.Student{}
	}
	return c.SaveJSON(c.keys.Students, records)
}

// GetAll возвращает снимок записей. Отсутствующие или поврежденные данные дают пустой срез.
func (c *Cache) GetAll() []student.Student {
	var records []student.Student
	ok, err := c.LoadJSON(c.keys.Students, &records)
	if err != nil {
		c.log.Warn("cached records are unreadable, starting empty", "error", err)
		return []student.Student{}
	}
	if !ok || records == nil {
		return []student.Student{}
	}
	return records
}

// HasRecords true, если снимок записей когда-либо сохранялся.
func (c *Cache) HasRecords() bool {
	_, ok, err := c.store.Get(c.keys.Students)
	return err == nil && ok
}

func (c *Cache) SaveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.store.Set(key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadJSON читает значение ключа в v. false без ошибки, если ключа нет.
func (c *Cache) LoadJSON(key string, v any) (bool, error) {
	raw, ok, err := c.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) GetString(key string) (string, error) {
	v, _, err := c.store.Get(key)
	return v, err
}

func (c *Cache) SetString(key, value string) error {
	return c.store.Set(key, value)
}
