package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

// StudentRepository хранит записи как JSONB-документы в двух таблицах:
// students для активных и inactive_students для неактивных.
type StudentRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStudentRepository(storage *Storage, log *slog.Logger) *StudentRepository {
	return &StudentRepository{
		pool: storage.Pool(),
		log:  log.With("component", "student_repository"),
	}
}

func table(c student.Collection) (string, error) {
	switch c {
	case student.Active:
		return "students", nil
	case student.Inactive:
		return "inactive_students", nil
	}
	return "", student.ErrUnknownCollection
}

func (r *StudentRepository) Get(ctx context.Context, c student.Collection, id string) (*student.Student, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data FROM %s WHERE id = $1`, t)

	rec, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		r.log.Error("failed to get student", "collection", c, "id", id, "error", err)
		return nil, fmt.Errorf("get student: %w", err)
	}
	return rec, nil
}

func (r *StudentRepository) List(ctx context.Context, c student.Collection) ([]student.Student, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data FROM %s ORDER BY created_at, id`, t)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list students", "collection", c, "error", err)
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

func (r *StudentRepository) FindByKey(ctx context.Context, c student.Collection, key string) (*student.Student, error) {
	return r.findOne(ctx, c, "doc_key", student.NormalizeKey(key))
}

func (r *StudentRepository) FindByHexID(ctx context.Context, c student.Collection, hexID string) (*student.Student, error) {
	return r.findOne(ctx, c, "hex_id", hexID)
}

func (r *StudentRepository) findOne(ctx context.Context, c student.Collection, column, value string) (*student.Student, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, student.ErrNotFound
	}

	query := fmt.Sprintf(`SELECT id, data FROM %s WHERE %s = $1 ORDER BY created_at, id LIMIT 1`, t, column)

	rec, err := scanStudent(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		r.log.Error("failed to find student", "collection", c, "by", column, "error", err)
		return nil, fmt.Errorf("find student: %w", err)
	}
	return rec, nil
}

// Commit выполняет пакет одной транзакцией через pgx.Batch.
func (r *StudentRepository) Commit(ctx context.Context, writes []student.Write) error {
	if len(writes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, w := range writes {
		t, err := table(w.Collection)
		if err != nil {
			return fmt.Errorf("write %d: %w", i, err)
		}
		if w.ID == "" {
			return fmt.Errorf("write %d: %w: empty id", i, student.ErrInvalidData)
		}

		switch w.Kind {
		case student.WritePut:
			rec := w.Student.Clone()
			rec.ID = w.ID
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("write %d: marshal: %w", i, err)
			}
			batch.Queue(fmt.Sprintf(`
				INSERT INTO %s (id, hex_id, doc_key, data)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET hex_id = EXCLUDED.hex_id,
				    doc_key = EXCLUDED.doc_key,
				    data = EXCLUDED.data,
				    updated_at = NOW()`, t),
				rec.ID, rec.HexID, rec.Key(), data,
			)
		case student.WriteDelete:
			batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t), w.ID)
		default:
			return fmt.Errorf("write %d: unknown kind %d", i, w.Kind)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			r.log.Error("batch write failed", "index", i, "error", err)
			return fmt.Errorf("exec write %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("failed to commit batch", "writes", len(writes), "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func scanStudents(rows pgx.Rows) ([]student.Student, error) {
	var records []student.Student

	for rows.Next() {
		rec, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var id string
	var data []byte

	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}

	var rec student.Student
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	rec.ID = id

	return &rec, nil
}
