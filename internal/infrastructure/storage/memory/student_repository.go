package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tejanitos/internal/domain/student"
)

type document struct {
	seq int64
	rec student.Student
}

// StudentRepository хранит коллекции в памяти. Используется сервером без DATABASE_URI и в тестах.
type StudentRepository struct {
	mu   sync.RWMutex
	seq  int64
	data map[student.Collection]map[string]document
}

func NewStudentRepository() *StudentRepository {
	return &StudentRepository{
		data: map[student.Collection]map[string]document{
			student.Active:   {},
			student.Inactive: {},
		},
	}
}

func (r *StudentRepository) Get(_ context.Context, c student.Collection, id string) (*student.Student, error) {
	if !c.Valid() {
		return nil, student.ErrUnknownCollection
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.data[c][id]
	if !ok {
		return nil, student.ErrNotFound
	}
	rec := doc.rec.Clone()
	return &rec, nil
}

func (r *StudentRepository) List(_ context.Context, c student.Collection) ([]student.Student, error) {
	if !c.Valid() {
		return nil, student.ErrUnknownCollection
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(c), nil
}

func (r *StudentRepository) FindByKey(_ context.Context, c student.Collection, key string) (*student.Student, error) {
	if !c.Valid() {
		return nil, student.ErrUnknownCollection
	}
	norm := student.NormalizeKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.sorted(c) {
		if rec.Key() == norm {
			return &rec, nil
		}
	}
	return nil, student.ErrNotFound
}

func (r *StudentRepository) FindByHexID(_ context.Context, c student.Collection, hexID string) (*student.Student, error) {
	if !c.Valid() {
		return nil, student.ErrUnknownCollection
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.sorted(c) {
		if rec.HexID == hexID {
			return &rec, nil
		}
	}
	return nil, student.ErrNotFound
}

// Commit проверяет весь пакет до применения, поэтому либо применяется целиком, либо никак.
func (r *StudentRepository) Commit(_ context.Context, writes []student.Write) error {
	for i, w := range writes {
		if !w.Collection.Valid() {
			return fmt.Errorf("write %d: %w", i, student.ErrUnknownCollection)
		}
		if w.ID == "" {
			return fmt.Errorf("write %d: %w: empty id", i, student.ErrInvalidData)
		}
		if w.Kind != student.WritePut && w.Kind != student.WriteDelete {
			return fmt.Errorf("write %d: unknown kind %d", i, w.Kind)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range writes {
		switch w.Kind {
		case student.WritePut:
			rec := w.Student.Clone()
			rec.ID = w.ID
			seq := r.nextSeq()
			if old, ok := r.data[w.Collection][w.ID]; ok {
				seq = old.seq
			}
			r.data[w.Collection][w.ID] = document{seq: seq, rec: rec}
		case student.WriteDelete:
			delete(r.data[w.Collection], w.ID)
		}
	}
	return nil
}

func (r *StudentRepository) nextSeq() int64 {
	r.seq++
	return r.seq
}

func (r *StudentRepository) sorted(c student.Collection) []student.Student {
	docs := make([]document, 0, len(r.data[c]))
	for _, d := range r.data[c] {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].seq < docs[j].seq })

	out := make([]student.Student, len(docs))
	for i, d := range docs {
		out[i] = d.rec.Clone()
	}
	return out
}
