package data

import (
	"context"
	"errors"
	"fmt"

	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/roster"
	"tejanitos/internal/domain/student"
)

// source один из источников набора записей.
type source struct {
	name string
	load func(ctx context.Context) ([]student.Student, error)
}

// firstSuccess возвращает результат первого источника, отработавшего без ошибки.
func firstSuccess(ctx context.Context, sources ...source) (string, []student.Student, error) {
	var errs []error
	for _, src := range sources {
		list, err := src.load(ctx)
		if err == nil {
			return src.name, list, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
	}
	return "", nil, errors.Join(append([]error{ErrNoData}, errs...)...)
}

// LoadAll полный набор записей: удаленное хранилище, затем кеш, затем файл ведомости.
// Без includeInactive возвращаются только активные записи.
// Если ни один источник не дал данных, возвращается пустой набор и ErrNoData.
func (s *Service) LoadAll(ctx context.Context, includeInactive bool) ([]student.Student, error) {
	name, list, err := firstSuccess(ctx,
		source{name: "remote", load: s.loadRemote},
		source{name: "cache", load: s.loadCache},
		source{name: "roster", load: s.loadRoster},
	)
	if err != nil {
		s.log.Warn("no data source available", "error", err)
		return []student.Student{}, err
	}

	s.log.Debug("records loaded", "source", name, "count", len(list))
	if includeInactive {
		return list, nil
	}
	return activeOnly(list), nil
}

func (s *Service) loadRemote(ctx context.Context) ([]student.Student, error) {
	if !s.online(ctx) {
		return nil, ErrSourceUnavailable
	}

	active, err := s.remote.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	inactive, err := s.remote.ListInactive(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]student.Student, 0, len(active)+len(inactive))
	list = append(list, active...)
	list = append(list, inactive...)
	list = overlay(list, s.engine.Pending())

	if err := s.save(list); err != nil {
		s.log.Warn("remote data not cached", "error", err)
	}
	return list, nil
}

func (s *Service) loadCache(context.Context) ([]student.Student, error) {
	if !s.cache.HasRecords() {
		return nil, ErrSourceUnavailable
	}
	return s.cache.GetAll(), nil
}

func (s *Service) loadRoster(context.Context) ([]student.Student, error) {
	if s.opts.RosterPath == "" {
		return nil, ErrSourceUnavailable
	}

	rows, err := roster.ReadFile(s.opts.RosterPath, s.opts.Columns)
	if err != nil {
		return nil, err
	}

	cs := s.reconciler.Reconcile(rows, nil)
	list := make([]student.Student, 0, len(cs.New))
	for _, rec := range cs.New {
		if rec.HexID == "" {
			rec.HexID = student.NewHexID()
		}
		if rec.Get(student.FieldTurno) == "" && s.opts.DefaultTurno != "" {
			rec.Set(student.FieldTurno, s.opts.DefaultTurno)
		}
		list = append(list, rec)
	}

	if err := s.save(list); err != nil {
		s.log.Warn("roster data not cached", "error", err)
	}
	return list, nil
}

// overlay накладывает на снимок удаленного хранилища еще не отправленные операции.
func overlay(list []student.Student, pending []queue.Pending) []student.Student {
	for _, p := range pending {
		switch op := p.Op.(type) {
		case queue.AddOp:
			list = upsert(list, op.Record)
		case queue.UpdateOp:
			list = replace(list, op.Record)
		case queue.DeleteOp:
			for _, i := range indexOf(list, op.Record) {
				list[i].Activo = false
			}
		case queue.BatchUpdateOp:
			for _, rec := range op.Records {
				list = upsert(list, rec)
			}
		case queue.ImportOp:
			for _, rec := range op.Records {
				list = upsert(list, rec)
			}
		}
	}
	return list
}

// upsert обновляет записи с тем же ключом или добавляет новую.
func upsert(list []student.Student, rec student.Student) []student.Student {
	idx := indexOf(list, rec)
	if len(idx) == 0 {
		return append(list, rec.Clone())
	}

	for _, i := range idx {
		merged := list[i].Clone()
		merged.Apply(rec.Patch())
		list[i] = merged
	}
	return list
}

// replace как upsert, но поля, удаленные в rec, удаляются и из найденных записей.
func replace(list []student.Student, rec student.Student) []student.Student {
	idx := indexOf(list, rec)
	if len(idx) == 0 {
		return append(list, rec.Clone())
	}

	for _, i := range idx {
		merged := list[i].Clone()
		merged.Apply(rec.ReplacePatch(list[i]))
		list[i] = merged
	}
	return list
}

// indexOf позиции записей с тем же id, а при его отсутствии с тем же ключом.
func indexOf(list []student.Student, rec student.Student) []int {
	var idx []int
	if rec.ID != "" {
		for i := range list {
			if list[i].ID == rec.ID {
				idx = append(idx, i)
			}
		}
		if len(idx) > 0 {
			return idx
		}
	}

	key := rec.Key()
	if key == "" {
		return nil
	}
	for i := range list {
		if list[i].Key() == key {
			idx = append(idx, i)
		}
	}
	return idx
}

func activeOnly(list []student.Student) []student.Student {
	out := make([]student.Student, 0, len(list))
	for _, r := range list {
		if r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}
