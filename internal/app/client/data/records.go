package data

import (
	"context"
	"fmt"
	"time"

	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/student"
)

// AddRecord добавляет запись в набор existing и возвращает новый набор.
// Запись с уже известным ключом обновляется и становится активной.
func (s *Service) AddRecord(ctx context.Context, existing []student.Student, rec student.Student) ([]student.Student, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	added := rec.Clone()
	added.Activo = true
	if added.HexID == "" {
		added.HexID = student.NewHexID()
	}

	list := upsert(cloneAll(existing), added)
	for _, i := range indexOf(list, added) {
		list[i].Activo = true
		list[i].Unset(student.FieldFechaBaja)
	}

	if err := s.save(list); err != nil {
		return nil, fmt.Errorf("add record: %w", err)
	}

	s.dualWrite(ctx, "add", queue.AddOp{Record: added}, func(ctx context.Context) error {
		created, err := s.remote.CreateRecord(ctx, added)
		if err != nil {
			return err
		}
		s.backfillID(created.Key(), created.ID)
		return nil
	})

	s.log.Info("record added", "hex_id", added.HexID)
	return list, nil
}

// UpdateRecord заменяет поля записи, найденной по id или ключу.
// Отсутствующая запись дает student.ErrNotFound.
func (s *Service) UpdateRecord(ctx context.Context, existing []student.Student, updated student.Student) ([]student.Student, error) {
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	list := cloneAll(existing)
	idx := indexOf(list, updated)
	if len(idx) == 0 {
		return nil, student.ErrNotFound
	}

	var target, prev student.Student
	for _, i := range idx {
		prev = list[i]
		rec := updated.Clone()
		if rec.ID == "" {
			rec.ID = list[i].ID
		}
		if list[i].HexID != "" {
			rec.HexID = list[i].HexID
		}
		list[i] = rec
		target = rec
	}

	if err := s.save(list); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	s.dualWrite(ctx, "update", queue.UpdateOp{Record: target}, func(ctx context.Context) error {
		id, err := s.remoteID(ctx, target)
		if err != nil {
			return err
		}
		return s.remote.UpdateRecord(ctx, id, target.ReplacePatch(prev))
	})

	s.log.Info("record updated", "id", target.ID, "hex_id", target.HexID)
	return list, nil
}

// DeleteRecord мягко удаляет запись: Activo=false и дата выбытия.
func (s *Service) DeleteRecord(ctx context.Context, existing []student.Student, target student.Student, reason string) ([]student.Student, error) {
	return s.DeleteBatch(ctx, existing, []student.Student{target}, reason)
}

// DeleteBatch мягко удаляет несколько записей одним сохранением кеша.
func (s *Service) DeleteBatch(ctx context.Context, existing []student.Student, targets []student.Student, reason string) ([]student.Student, error) {
	list := cloneAll(existing)
	now := s.now()

	deleted := make([]student.Student, 0, len(targets))
	for _, t := range targets {
		idx := indexOf(list, t)
		if len(idx) == 0 {
			s.log.Warn("record to delete not found", "id", t.ID, "documento", t.Documento)
			continue
		}
		for _, i := range idx {
			if !list[i].IsActive() {
				continue
			}
			markInactive(&list[i], reason, now)
			deleted = append(deleted, list[i])
		}
	}

	if len(deleted) == 0 {
		return nil, student.ErrNotFound
	}

	if err := s.save(list); err != nil {
		return nil, fmt.Errorf("delete records: %w", err)
	}

	for _, rec := range deleted {
		rec := rec
		s.dualWrite(ctx, "delete", queue.DeleteOp{Record: rec, Reason: reason}, func(ctx context.Context) error {
			id, err := s.remoteID(ctx, rec)
			if err != nil {
				return err
			}
			return s.remote.DeleteRecord(ctx, id, reason)
		})
	}

	s.log.Info("records inactivated", "count", len(deleted), "reason", reason)
	return list, nil
}

// remoteID id записи в удаленном хранилище; для записей, созданных без связи, ищется по ключу.
func (s *Service) remoteID(ctx context.Context, rec student.Student) (string, error) {
	if rec.ID != "" {
		return rec.ID, nil
	}

	found, err := s.remote.FindByBusinessKey(ctx, rec.Key())
	if err != nil {
		return "", err
	}
	if found == nil {
		return "", student.ErrNotFound
	}
	s.backfillID(found.Key(), found.ID)
	return found.ID, nil
}

func markInactive(rec *student.Student, reason string, now time.Time) {
	rec.Activo = false
	rec.Set(student.FieldFechaBaja, now.Format(student.DateLayout))
	rec.Set(student.FieldInactiveSince, now.UTC().Format(time.RFC3339))
	rec.Set(student.FieldReason, reason)
}

func cloneAll(list []student.Student) []student.Student {
	out := make([]student.Student, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}
