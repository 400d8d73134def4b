package roster

import (
	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

// Compared поля, которые сверяются у активных записей.
var Compared = []string{
	student.FieldCodigo,
	student.FieldNombreCompleto,
	student.FieldSexo,
	student.FieldFechaNacimiento,
}

type FieldChange struct {
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// Change запись с отличиями от ведомости. Excluded заполняется выбором пользователя.
type Change struct {
	Student      student.Student        `json:"student"`
	Changes      map[string]FieldChange `json:"changes"`
	Excluded     []string               `json:"excluded"`
	Reactivation bool                   `json:"reactivation,omitempty"`
}

// IsExcluded true, если поле исключено пользователем.
func (c Change) IsExcluded(field string) bool {
	for _, f := range c.Excluded {
		if f == field {
			return true
		}
	}
	return false
}

// ChangeSet результат сверки ведомости с набором записей.
type ChangeSet struct {
	Changed     []Change          `json:"changedStudents"`
	Missing     []student.Student `json:"missingStudents"`
	New         []student.Student `json:"newStudents"`
	Reactivated []student.Student `json:"reactivatedStudents"`
	Unchanged   []student.Student `json:"unchangedStudents"`
	SkippedRows int               `json:"skippedRows"`
}

// Empty true, если применять нечего.
func (cs ChangeSet) Empty() bool {
	return len(cs.Changed) == 0 && len(cs.Missing) == 0 && len(cs.New) == 0 && len(cs.Reactivated) == 0
}

// Reconciler сверяет ведомость с текущими записями.
type Reconciler struct {
	extract KeyExtractor
	log     *slog.Logger
}

// NewReconciler nil extract означает колонку Documento.
func NewReconciler(extract KeyExtractor, log *slog.Logger) *Reconciler {
	if extract == nil {
		extract = DocumentoColumn
	}
	return &Reconciler{
		extract: extract,
		log:     log.With("component", "reconciler"),
	}
}

// Reconcile ничего не пишет: результат показывается пользователю для выбора.
func (r *Reconciler) Reconcile(rows []Row, current []student.Student) ChangeSet {
	cs := ChangeSet{
		Changed:     []Change{},
		Missing:     []student.Student{},
		New:         []student.Student{},
		Reactivated: []student.Student{},
		Unchanged:   []student.Student{},
	}

	index := make(map[string][]int, len(current))
	for i, rec := range current {
		k := rec.Key()
		if k == "" {
			cs.Missing = append(cs.Missing, rec.Clone())
			continue
		}
		index[k] = append(index[k], i)
	}

	seen := make(map[string]bool, len(rows))
	for n, row := range rows {
		raw := r.extract(row)
		key := student.NormalizeKey(raw)
		if key == "" || seen[key] {
			r.log.Debug("roster row skipped", "row", n+1, "key", raw, "duplicate", key != "")
			cs.SkippedRows++
			continue
		}
		seen[key] = true

		matches, ok := index[key]
		if !ok {
			cs.New = append(cs.New, newStudent(row, raw))
			continue
		}
		delete(index, key)

		for _, i := range matches {
			rec := current[i]
			if !rec.IsActive() {
				cs.Reactivated = append(cs.Reactivated, rec.Clone())
				cs.Changed = append(cs.Changed, reactivation(rec, row))
				continue
			}

			if changes := diff(rec, row); len(changes) > 0 {
				cs.Changed = append(cs.Changed, Change{Student: rec.Clone(), Changes: changes, Excluded: []string{}})
			} else {
				cs.Unchanged = append(cs.Unchanged, rec.Clone())
			}
		}
	}

	for i, rec := range current {
		if _, left := index[rec.Key()]; left {
			cs.Missing = append(cs.Missing, current[i].Clone())
		}
	}

	r.log.Info("roster reconciled",
		"rows", len(rows),
		"changed", len(cs.Changed),
		"new", len(cs.New),
		"missing", len(cs.Missing),
		"reactivated", len(cs.Reactivated),
		"unchanged", len(cs.Unchanged),
		"skipped", cs.SkippedRows,
	)

	return cs
}

// diff отличия по сверяемым полям; пустое значение ведомости не считается изменением.
func diff(rec student.Student, row Row) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for _, f := range Compared {
		nv := row.Get(f)
		if nv == "" {
			continue
		}
		if ov := rec.Get(f); ov != nv {
			changes[f] = FieldChange{OldValue: ov, NewValue: nv}
		}
	}
	return changes
}

func reactivation(rec student.Student, row Row) Change {
	changes := diff(rec, row)
	changes[student.FieldActivo] = FieldChange{OldValue: "false", NewValue: "true"}
	if fb := rec.Get(student.FieldFechaBaja); fb != "" {
		changes[student.FieldFechaBaja] = FieldChange{OldValue: fb, NewValue: ""}
	}
	return Change{Student: rec.Clone(), Changes: changes, Excluded: []string{}, Reactivation: true}
}

func newStudent(row Row, key string) student.Student {
	s := student.FromFields(row.Fields)
	if s.Documento == "" {
		s.Documento = key
	}
	s.Activo = true
	return s
}
