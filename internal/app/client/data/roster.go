package data

import (
	"context"
	"fmt"
	"io"

	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/roster"
	"tejanitos/internal/domain/student"
)

// RosterReason причина выбытия для учеников, пропавших из ведомости.
const RosterReason = "absent from roster"

// RosterOutcome результат обработки файла ведомости: набор изменений
// или, при немедленном применении, итог применения.
type RosterOutcome struct {
	ChangeSet roster.ChangeSet
	Applied   *ApplyOutcome
}

// ApplyOutcome обновленный набор записей и счетчики.
type ApplyOutcome struct {
	Students []student.Student `json:"updatedStudents"`
	Stats    roster.Stats      `json:"stats"`
}

// ProcessRosterFile сверяет ведомость с текущим набором.
// С applyImmediately все найденные изменения сразу применяются.
func (s *Service) ProcessRosterFile(ctx context.Context, name string, r io.Reader, current []student.Student, applyImmediately bool) (RosterOutcome, error) {
	rows, err := roster.Read(name, r, s.opts.Columns)
	if err != nil {
		return RosterOutcome{}, fmt.Errorf("read roster %s: %w", name, err)
	}

	cs := s.reconciler.Reconcile(rows, current)
	s.fillTurno(cs.New)

	out := RosterOutcome{ChangeSet: cs}
	if !applyImmediately {
		return out, nil
	}

	applied, err := s.ApplyChanges(ctx, cs.Select(), current)
	if err != nil {
		return out, err
	}
	out.Applied = &applied
	return out, nil
}

// fillTurno подставляет смену (Turno) по умолчанию новым записям без него.
func (s *Service) fillTurno(list []student.Student) {
	if s.opts.DefaultTurno == "" {
		return
	}
	for i := range list {
		if list[i].Get(student.FieldTurno) == "" {
			list[i].Set(student.FieldTurno, s.opts.DefaultTurno)
		}
	}
}

// ApplyChanges применяет выбранные изменения ведомости к current,
// сохраняет результат в кеш и отправляет изменения в удаленное хранилище.
func (s *Service) ApplyChanges(ctx context.Context, sel roster.Selection, current []student.Student) (ApplyOutcome, error) {
	for i := range sel.New {
		sel.New[i] = sel.New[i].Clone()
		if sel.New[i].HexID == "" {
			sel.New[i].HexID = student.NewHexID()
		}
	}

	res, err := roster.Apply(sel, current, s.now())
	if err != nil {
		return ApplyOutcome{Stats: res.Stats}, err
	}

	if err := s.save(res.Students); err != nil {
		return ApplyOutcome{}, fmt.Errorf("apply roster changes: %w", err)
	}

	s.pushApplied(ctx, res, current)

	s.log.Info("roster changes applied",
		"updated", res.Stats.Updated,
		"new", res.Stats.New,
		"inactivated", res.Stats.MarkedInactive,
		"reactivated", res.Stats.Reactivated,
	)
	return ApplyOutcome{Students: res.Students, Stats: res.Stats}, nil
}

// pushApplied раскладывает результат применения по удаленным операциям.
// Возвращенные в активные записи идут через создание: оно переносит их из неактивных.
func (s *Service) pushApplied(ctx context.Context, res roster.Result, current []student.Student) {
	wasInactive := make(map[string]bool)
	for _, r := range current {
		if r.IsActive() {
			continue
		}
		if r.ID != "" {
			wasInactive[r.ID] = true
		}
		if k := r.Key(); k != "" {
			wasInactive[k] = true
		}
	}

	var batch []student.Student
	for _, rec := range res.Updated {
		rec := rec
		switch {
		case (rec.ID != "" && wasInactive[rec.ID]) || wasInactive[rec.Key()]:
			s.dualWrite(ctx, "reactivate", queue.AddOp{Record: rec}, func(ctx context.Context) error {
				_, err := s.remote.CreateRecord(ctx, rec)
				return err
			})
		case rec.ID == "":
			s.dualWrite(ctx, "update", queue.UpdateOp{Record: rec}, func(ctx context.Context) error {
				id, err := s.remoteID(ctx, rec)
				if err != nil {
					return err
				}
				return s.remote.UpdateRecord(ctx, id, rec.Patch())
			})
		default:
			batch = append(batch, rec)
		}
	}

	if len(batch) > 0 {
		s.dualWrite(ctx, "batch_update", queue.BatchUpdateOp{Records: batch}, func(ctx context.Context) error {
			_, err := s.remote.BatchUpdate(ctx, batch)
			return err
		})
	}

	for _, rec := range res.Inactivated {
		rec := rec
		reason := RosterReason
		s.dualWrite(ctx, "delete", queue.DeleteOp{Record: rec, Reason: reason}, func(ctx context.Context) error {
			id, err := s.remoteID(ctx, rec)
			if err != nil {
				return err
			}
			return s.remote.DeleteRecord(ctx, id, reason)
		})
	}

	if len(res.Created) > 0 {
		created := res.Created
		s.dualWrite(ctx, "import", queue.ImportOp{Records: created}, func(ctx context.Context) error {
			_, err := s.remote.BulkImport(ctx, created)
			return err
		})
	}
}
