package student

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// BatchLimit максимум операций в одной физической фиксации.
const BatchLimit = 450

// Servicer операции адаптера хранилища документов
type Servicer interface {
	Ready() bool
	CreateRecord(ctx context.Context, s Student) (Student, error)
	UpdateRecord(ctx context.Context, id string, p Patch) error
	DeleteRecord(ctx context.Context, id, reason string) error
	FindByBusinessKey(ctx context.Context, key string) (*Student, error)
	ListAll(ctx context.Context) ([]Student, error)
	ListInactive(ctx context.Context) ([]Student, error)
	GetInactive(ctx context.Context, id string) (*Student, error)
	RestoreRecord(ctx context.Context, inactiveID string, target Student) error
	DeleteInactive(ctx context.Context, ids []string) (int, error)
	BulkImport(ctx context.Context, records []Student) (ImportResult, error)
	BatchUpdate(ctx context.Context, records []Student) (BatchResult, error)
	RecoverDuplicates(ctx context.Context) (int, error)
}

// Service реализует адаптер поверх Repository
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "student_service"),
		now:  time.Now,
	}
}

// NewDocumentID идентификатор нового документа.
func NewDocumentID() string {
	return uuid.NewString()
}

func (s *Service) Ready() bool {
	return s.repo != nil
}

// CreateRecord создает запись. Существующий активный ключ обновляется, неактивный - возвращается в активные.
func (s *Service) CreateRecord(ctx context.Context, in Student) (Student, error) {
	if err := in.Validate(); err != nil {
		return Student{}, err
	}

	rec := in.Clone()
	rec.ID = ""
	if rec.HexID == "" {
		rec.HexID = NewHexID()
	}

	existing, err := s.repo.FindByKey(ctx, Active, rec.Key())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Student{}, fmt.Errorf("create record: %w", err)
	}
	if existing != nil {
		merged := existing.Clone()
		merged.Apply(rec.Patch())
		if err := s.repo.Commit(ctx, []Write{PutWrite(Active, merged)}); err != nil {
			s.log.Error("failed to upsert record", "documento", rec.Documento, "error", err)
			return Student{}, fmt.Errorf("create record: %w", err)
		}
		s.log.Info("record already existed, updated", "id", merged.ID, "documento", merged.Documento)
		return merged, nil
	}

	writes := make([]Write, 0, 2)
	inactive, err := s.repo.FindByKey(ctx, Inactive, rec.Key())
	switch {
	case err == nil:
		restored := inactive.Clone()
		restored.Apply(rec.Patch())
		restored.Activo = true
		restored.Unset(FieldFechaBaja)
		restored.Unset(FieldInactiveSince)
		restored.Unset(FieldReason)
		rec = restored
		writes = append(writes, DeleteWrite(Inactive, inactive.ID))
	case errors.Is(err, ErrNotFound):
		rec.ID = NewDocumentID()
	default:
		return Student{}, fmt.Errorf("create record: %w", err)
	}

	writes = append([]Write{PutWrite(Active, rec)}, writes...)
	if err := s.repo.Commit(ctx, writes); err != nil {
		s.log.Error("failed to create record", "documento", rec.Documento, "error", err)
		return Student{}, fmt.Errorf("create record: %w", err)
	}

	s.log.Info("record created", "id", rec.ID, "hex_id", rec.HexID)
	return rec, nil
}

// UpdateRecord накладывает patch на существующую запись. Отсутствующая запись - ErrNotFound.
func (s *Service) UpdateRecord(ctx context.Context, id string, p Patch) error {
	cur, err := s.repo.Get(ctx, Active, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get record for update: %w", err)
	}

	updated := cur.Clone()
	updated.Apply(p)
	if updated.Key() == "" {
		return ErrMissingKey
	}

	if err := s.repo.Commit(ctx, []Write{PutWrite(Active, updated)}); err != nil {
		s.log.Error("failed to update record", "id", id, "error", err)
		return fmt.Errorf("update record: %w", err)
	}

	s.log.Info("record updated", "id", id)
	return nil
}

// DeleteRecord переносит запись в неактивные одной фиксацией.
func (s *Service) DeleteRecord(ctx context.Context, id, reason string) error {
	cur, err := s.repo.Get(ctx, Active, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get record for delete: %w", err)
	}

	copied := cur.Clone()
	copied.Activo = false
	copied.Set(FieldInactiveSince, s.now().UTC().Format(time.RFC3339))
	copied.Set(FieldReason, reason)
	if copied.Get(FieldFechaBaja) == "" {
		copied.Set(FieldFechaBaja, s.now().Format(DateLayout))
	}

	err = s.repo.Commit(ctx, []Write{
		PutWrite(Inactive, copied),
		DeleteWrite(Active, id),
	})
	if err != nil {
		s.log.Error("failed to inactivate record", "id", id, "error", err)
		return fmt.Errorf("delete record: %w", err)
	}

	s.log.Info("record inactivated", "id", id, "reason", reason)
	return nil
}

// FindByBusinessKey возвращает nil без ошибки, если записи нет.
func (s *Service) FindByBusinessKey(ctx context.Context, key string) (*Student, error) {
	if NormalizeKey(key) == "" {
		return nil, nil
	}

	rec, err := s.repo.FindByKey(ctx, Active, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by key: %w", err)
	}
	return rec, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Student, error) {
	list, err := s.repo.List(ctx, Active)
	if err != nil {
		s.log.Error("failed to list records", "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	return list, nil
}

func (s *Service) ListInactive(ctx context.Context) ([]Student, error) {
	list, err := s.repo.List(ctx, Inactive)
	if err != nil {
		s.log.Error("failed to list inactive records", "error", err)
		return nil, fmt.Errorf("list inactive: %w", err)
	}
	for i := range list {
		list[i].Activo = false
	}
	return list, nil
}

func (s *Service) GetInactive(ctx context.Context, id string) (*Student, error) {
	rec, err := s.repo.Get(ctx, Inactive, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inactive: %w", err)
	}
	rec.Activo = false
	return rec, nil
}

// RestoreRecord записывает target в активные под target.ID и удаляет неактивную копию.
func (s *Service) RestoreRecord(ctx context.Context, inactiveID string, target Student) error {
	if target.ID == "" {
		return fmt.Errorf("%w: restore target has no id", ErrInvalidData)
	}
	if _, err := s.repo.Get(ctx, Inactive, inactiveID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get inactive for restore: %w", err)
	}

	rec := target.Clone()
	rec.Activo = true
	rec.Unset(FieldFechaBaja)
	rec.Unset(FieldInactiveSince)
	rec.Unset(FieldReason)

	err := s.repo.Commit(ctx, []Write{
		PutWrite(Active, rec),
		DeleteWrite(Inactive, inactiveID),
	})
	if err != nil {
		s.log.Error("failed to restore record", "inactive_id", inactiveID, "error", err)
		return fmt.Errorf("restore record: %w", err)
	}

	s.log.Info("record restored", "id", rec.ID, "inactive_id", inactiveID)
	return nil
}

// DeleteInactive окончательно удаляет неактивные записи, возвращает число удаленных.
func (s *Service) DeleteInactive(ctx context.Context, ids []string) (int, error) {
	writes := make([]Write, 0, len(ids))
	for _, id := range ids {
		if _, err := s.repo.Get(ctx, Inactive, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("get inactive for delete: %w", err)
		}
		writes = append(writes, DeleteWrite(Inactive, id))
	}

	count, err := s.commitChunks(ctx, writes)
	if err != nil {
		return count, fmt.Errorf("delete inactive: %w", err)
	}
	return count, nil
}

// BulkImport последовательно обновляет или создает записи.
func (s *Service) BulkImport(ctx context.Context, records []Student) (ImportResult, error) {
	res := ImportResult{Total: len(records)}

	for i, in := range records {
		rec := in.Clone()
		if rec.Key() == "" {
			s.log.Warn("import record without Documento skipped", "index", i)
			res.Errors++
			continue
		}
		if rec.HexID == "" {
			rec.HexID = NewHexID()
		}

		writes, created, err := s.importWrites(ctx, rec)
		if err != nil {
			s.log.Error("failed to prepare import record", "index", i, "documento", rec.Documento, "error", err)
			res.Errors++
			continue
		}
		if err := s.repo.Commit(ctx, writes); err != nil {
			s.log.Error("failed to import record", "index", i, "documento", rec.Documento, "error", err)
			res.Errors++
			continue
		}

		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	s.log.Info("bulk import finished",
		"created", res.Created, "updated", res.Updated, "errors", res.Errors, "total", res.Total)

	return res, nil
}

func (s *Service) importWrites(ctx context.Context, rec Student) ([]Write, bool, error) {
	existing, err := s.lookup(ctx, Active, rec)
	if err != nil {
		return nil, false, err
	}

	inactive, err := s.lookup(ctx, Inactive, rec)
	if err != nil {
		return nil, false, err
	}

	var writes []Write
	created := existing == nil

	switch {
	case existing != nil:
		merged := existing.Clone()
		merged.Apply(rec.Patch())
		merged.Activo = true
		writes = append(writes, PutWrite(Active, merged))
	case inactive != nil:
		rec.ID = inactive.ID
		rec.HexID = inactive.HexID
		rec.Activo = true
		writes = append(writes, PutWrite(Active, rec))
	default:
		rec.ID = NewDocumentID()
		rec.Activo = true
		writes = append(writes, PutWrite(Active, rec))
	}

	if inactive != nil {
		writes = append(writes, DeleteWrite(Inactive, inactive.ID))
	}

	return writes, created, nil
}

// lookup ищет сначала по hexId, потом по Documento.
func (s *Service) lookup(ctx context.Context, c Collection, rec Student) (*Student, error) {
	if rec.HexID != "" {
		found, err := s.repo.FindByHexID(ctx, c, rec.HexID)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	found, err := s.repo.FindByKey(ctx, c, rec.Key())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return found, nil
}

// BatchUpdate перезаписывает записи с известным id пакетами по BatchLimit.
func (s *Service) BatchUpdate(ctx context.Context, records []Student) (BatchResult, error) {
	writes := make([]Write, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			s.log.Warn("batch update record without id skipped", "documento", r.Documento)
			continue
		}
		writes = append(writes, PutWrite(Active, r))
	}

	count, err := s.commitChunks(ctx, writes)
	if err != nil {
		return BatchResult{Count: count}, fmt.Errorf("batch update: %w", err)
	}

	s.log.Info("batch update finished", "count", count)
	return BatchResult{Count: count}, nil
}

func (s *Service) commitChunks(ctx context.Context, writes []Write) (int, error) {
	count := 0
	for start := 0; start < len(writes); start += BatchLimit {
		end := min(start+BatchLimit, len(writes))
		if err := s.repo.Commit(ctx, writes[start:end]); err != nil {
			return count, err
		}
		count += end - start
	}
	return count, nil
}

// RecoverDuplicates удаляет активные копии ключей, которые уже есть среди неактивных.
func (s *Service) RecoverDuplicates(ctx context.Context) (int, error) {
	inactive, err := s.repo.List(ctx, Inactive)
	if err != nil {
		return 0, fmt.Errorf("recover duplicates: %w", err)
	}

	removed := 0
	for _, rec := range inactive {
		if rec.Key() == "" {
			continue
		}
		active, err := s.repo.FindByKey(ctx, Active, rec.Key())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("recover duplicates: %w", err)
		}
		if err := s.repo.Commit(ctx, []Write{DeleteWrite(Active, active.ID)}); err != nil {
			return removed, fmt.Errorf("recover duplicates: %w", err)
		}
		s.log.Warn("removed active duplicate of inactive record", "id", active.ID, "documento", rec.Documento)
		removed++
	}

	return removed, nil
}
