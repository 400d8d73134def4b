package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/conflict"
	"tejanitos/internal/domain/student"
)

var ErrOfflineConflict = errors.New("restoring a record with a duplicate requires a connection")

// RestoreResult итог восстановления неактивной записи.
type RestoreResult struct {
	Success         bool             `json:"success"`
	Duplicate       bool             `json:"duplicate,omitempty"`
	Merged          bool             `json:"merged,omitempty"`
	Student         *student.Student `json:"student,omitempty"`
	InactiveStudent *student.Student `json:"inactiveStudent,omitempty"`
	ExistingStudent *student.Student `json:"existingStudent,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// PurgeResult итог окончательного удаления неактивных записей.
type PurgeResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// GetInactive неактивные записи: из удаленного хранилища, а без связи из кеша.
func (s *Service) GetInactive(ctx context.Context) ([]student.Student, error) {
	if s.online(ctx) {
		list, err := s.remote.ListInactive(ctx)
		if err == nil {
			return list, nil
		}
		s.log.Warn("failed to list remote inactive records, using cache", "error", err)
	}

	var out []student.Student
	for _, r := range s.cache.GetAll() {
		if !r.IsActive() {
			out = append(out, r)
		}
	}
	return out, nil
}

// findInactive ищет неактивную запись по id или hexId.
func (s *Service) findInactive(ctx context.Context, id string) (*student.Student, error) {
	if s.online(ctx) {
		rec, err := s.remote.GetInactive(ctx, id)
		switch {
		case err == nil:
			return rec, nil
		case !errors.Is(err, student.ErrNotFound):
			s.log.Warn("failed to get remote inactive record, using cache", "id", id, "error", err)
		}
	}

	for _, r := range s.cache.GetAll() {
		if !r.IsActive() && (r.ID == id || r.HexID == id) {
			return &r, nil
		}
	}
	return nil, student.ErrNotFound
}

// RestoreInactive возвращает неактивную запись в активные.
// Если среди активных есть запись с тем же именем и strategy пуста,
// ничего не меняется и результат сообщает о дубликате.
func (s *Service) RestoreInactive(ctx context.Context, id string, strategy conflict.Strategy, custom map[string]string) RestoreResult {
	inactive, err := s.findInactive(ctx, id)
	if err != nil {
		return RestoreResult{Error: fmt.Sprintf("inactive record %s: %v", id, err)}
	}

	active, err := s.LoadAll(ctx, false)
	if err != nil && !errors.Is(err, ErrNoData) {
		return RestoreResult{Error: err.Error()}
	}

	dup := conflict.FindDuplicate(active, *inactive)
	if dup != nil {
		if strategy == "" {
			s.log.Info("restore blocked by duplicate", "inactive_id", inactive.ID, "active_id", dup.ID)
			return RestoreResult{
				Duplicate:       true,
				InactiveStudent: inactive,
				ExistingStudent: dup,
			}
		}
		return s.restoreMerged(ctx, *inactive, *dup, strategy, custom)
	}

	return s.restorePlain(ctx, *inactive)
}

func (s *Service) restoreMerged(ctx context.Context, inactive, dup student.Student, strategy conflict.Strategy, custom map[string]string) RestoreResult {
	resolved, err := conflict.Resolve(dup, inactive, strategy, custom)
	if err != nil {
		return RestoreResult{Duplicate: true, Error: err.Error(), InactiveStudent: &inactive, ExistingStudent: &dup}
	}

	if s.remoteConfigured() {
		if !s.online(ctx) {
			return RestoreResult{Duplicate: true, Error: ErrOfflineConflict.Error(), InactiveStudent: &inactive, ExistingStudent: &dup}
		}
		if err := s.remote.RestoreRecord(ctx, inactive.ID, resolved); err != nil {
			s.log.Error("failed to restore merged record", "inactive_id", inactive.ID, "error", err)
			return RestoreResult{Duplicate: true, Error: err.Error(), InactiveStudent: &inactive, ExistingStudent: &dup}
		}
	}

	s.mu.Lock()
	list := s.cache.GetAll()
	out := make([]student.Student, 0, len(list))
	replaced := false
	for _, r := range list {
		switch {
		case sameRecord(r, inactive) && !r.IsActive():
			continue
		case sameRecord(r, dup) && r.IsActive():
			if !replaced {
				out = append(out, resolved.Clone())
				replaced = true
			}
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, resolved.Clone())
	}
	err = s.cache.SaveAll(out)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("merged record not cached", "error", err)
	}

	s.log.Info("record restored with merge", "id", resolved.ID, "strategy", strategy)
	return RestoreResult{Success: true, Merged: true, Student: &resolved}
}

func (s *Service) restorePlain(ctx context.Context, inactive student.Student) RestoreResult {
	restored := inactive.Clone()
	restored.Activo = true
	restored.Unset(student.FieldFechaBaja)
	restored.Unset(student.FieldInactiveSince)
	restored.Unset(student.FieldReason)

	s.mu.Lock()
	list := s.cache.GetAll()
	found := false
	for i := range list {
		if sameRecord(list[i], inactive) && !list[i].IsActive() {
			list[i] = restored.Clone()
			found = true
		}
	}
	if !found {
		list = append(list, restored.Clone())
	}
	err := s.cache.SaveAll(list)
	s.mu.Unlock()
	if err != nil {
		return RestoreResult{Error: err.Error()}
	}

	s.dualWrite(ctx, "restore", queue.AddOp{Record: restored}, func(ctx context.Context) error {
		if restored.ID == "" {
			_, err := s.remote.CreateRecord(ctx, restored)
			return err
		}
		return s.remote.RestoreRecord(ctx, inactive.ID, restored)
	})

	s.log.Info("record restored", "id", restored.ID)
	return RestoreResult{Success: true, Student: &restored}
}

// DeleteInactivePermanently окончательно удаляет неактивные записи.
// Операция не ставится в очередь: без связи с настроенным удаленным хранилищем она отклоняется.
func (s *Service) DeleteInactivePermanently(ctx context.Context, batch []student.Student) PurgeResult {
	if len(batch) == 0 {
		return PurgeResult{Success: true}
	}

	count := 0
	if s.remoteConfigured() {
		if !s.online(ctx) {
			return PurgeResult{Error: ErrSourceUnavailable.Error()}
		}

		ids := make([]string, 0, len(batch))
		for _, r := range batch {
			if r.ID != "" {
				ids = append(ids, r.ID)
			}
		}
		n, err := s.remote.DeleteInactive(ctx, ids)
		if err != nil {
			s.log.Error("failed to purge inactive records", "error", err)
			return PurgeResult{Count: n, Error: err.Error()}
		}
		count = n
	}

	s.mu.Lock()
	list := s.cache.GetAll()
	out := make([]student.Student, 0, len(list))
	removed := 0
	for _, r := range list {
		if !r.IsActive() && containsRecord(batch, r) {
			removed++
			continue
		}
		out = append(out, r)
	}
	err := s.cache.SaveAll(out)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("purge not reflected in cache", "error", err)
	}

	if !s.remoteConfigured() {
		count = removed
	}

	s.log.Info("inactive records purged", "count", count)
	return PurgeResult{Success: true, Count: count}
}

// sameRecord совпадение по id, а при его отсутствии по hexId.
func sameRecord(a, b student.Student) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.HexID != "" && a.HexID == b.HexID
}

func containsRecord(list []student.Student, rec student.Student) bool {
	for _, r := range list {
		if sameRecord(r, rec) {
			return true
		}
	}
	return false
}

// Expired неактивные записи, выбывшие больше days дней назад.
// Дата берется из inactiveSince, а при его отсутствии из FechaBaja.
func Expired(list []student.Student, days int, now time.Time) []student.Student {
	cutoff := now.AddDate(0, 0, -days)

	var out []student.Student
	for _, r := range list {
		if r.IsActive() {
			continue
		}
		since, ok := inactiveSince(r)
		if ok && since.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func inactiveSince(r student.Student) (time.Time, bool) {
	if v := r.Get(student.FieldInactiveSince); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	if v := r.Get(student.FieldFechaBaja); v != "" {
		if t, err := time.Parse(student.DateLayout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
