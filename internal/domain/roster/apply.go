package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"tejanitos/internal/domain/student"
)

var ErrMissingTurno = errors.New("new student has no Turno")

var validate = validator.New()

// newcomer обязательные поля нового ученика перед применением.
type newcomer struct {
	Documento string `validate:"required"`
	Turno     string `validate:"required"`
}

// Selection подтвержденная пользователем часть ChangeSet.
type Selection struct {
	Changed     []Change
	Missing     []student.Student
	New         []student.Student
	Reactivated []student.Student
}

// Select выбирает все пункты ChangeSet.
func (cs ChangeSet) Select() Selection {
	return Selection{
		Changed:     cs.Changed,
		Missing:     cs.Missing,
		New:         cs.New,
		Reactivated: cs.Reactivated,
	}
}

type Stats struct {
	Total          int `json:"total"`
	Updated        int `json:"updated"`
	New            int `json:"new"`
	MarkedInactive int `json:"markedInactive"`
	Unchanged      int `json:"unchanged"`
	Reactivated    int `json:"reactivated"`
}

// Result итог применения: новый набор записей и затронутые записи по видам.
type Result struct {
	Students    []student.Student
	Stats       Stats
	Updated     []student.Student
	Inactivated []student.Student
	Created     []student.Student
}

// ValidateNew проверяет, что у каждого нового ученика есть Turno.
func ValidateNew(list []student.Student) error {
	for _, s := range list {
		err := validate.Struct(newcomer{Documento: s.Documento, Turno: s.Get(student.FieldTurno)})
		if err != nil {
			return fmt.Errorf("%w: %s", ErrMissingTurno, s.Documento)
		}
	}
	return nil
}

// Apply применяет выбор к копии current. Если хоть у одного нового ученика нет Turno,
// ничего не применяется.
func Apply(sel Selection, current []student.Student, now time.Time) (Result, error) {
	res := Result{
		Stats: Stats{
			Total: len(sel.Changed) + len(sel.Missing) + len(sel.New) + len(sel.Reactivated),
		},
	}

	if err := ValidateNew(sel.New); err != nil {
		return res, err
	}

	out := make([]student.Student, len(current))
	idx := newLocator(current)
	for i, rec := range current {
		out[i] = rec.Clone()
	}

	touched := make(map[int]bool)

	for _, ch := range sel.Changed {
		matches := idx.find(ch.Student)
		if len(matches) == 0 {
			res.Stats.Unchanged++
			continue
		}

		applied := false
		for _, i := range matches {
			if applyChange(&out[i], ch) {
				applied = true
				touched[i] = true
			}
		}
		if applied {
			res.Stats.Updated++
		} else {
			res.Stats.Unchanged++
		}
	}

	// уже выбывшие записи остаются как есть, их FechaBaja не переписывается
	for _, m := range sel.Missing {
		matches := idx.find(m)
		marked := false
		for _, i := range matches {
			if !out[i].IsActive() {
				continue
			}
			out[i].Activo = false
			out[i].Set(student.FieldFechaBaja, now.Format(student.DateLayout))
			delete(touched, i)
			res.Inactivated = append(res.Inactivated, out[i].Clone())
			marked = true
		}
		switch {
		case marked:
			res.Stats.MarkedInactive++
		case len(matches) > 0:
			res.Stats.Unchanged++
		}
	}

	for _, r := range sel.Reactivated {
		matches := idx.find(r)
		for _, i := range matches {
			out[i].Activo = true
			out[i].Unset(student.FieldFechaBaja)
			touched[i] = true
		}
		if len(matches) > 0 {
			res.Stats.Reactivated++
		}
	}

	for _, n := range sel.New {
		rec := n.Clone()
		rec.Activo = true
		out = append(out, rec)
		res.Created = append(res.Created, rec.Clone())
		res.Stats.New++
	}

	for i := range current {
		if touched[i] {
			res.Updated = append(res.Updated, out[i].Clone())
		}
	}

	res.Students = out
	return res, nil
}

// locator ищет записи по нормализованному ключу, для записей без ключа - по id.
type locator struct {
	byKey map[string][]int
	byID  map[string]int
}

func newLocator(list []student.Student) locator {
	l := locator{
		byKey: make(map[string][]int, len(list)),
		byID:  make(map[string]int, len(list)),
	}
	for i, rec := range list {
		if k := rec.Key(); k != "" {
			l.byKey[k] = append(l.byKey[k], i)
		}
		if rec.ID != "" {
			l.byID[rec.ID] = i
		}
	}
	return l
}

func (l locator) find(rec student.Student) []int {
	if k := rec.Key(); k != "" {
		return l.byKey[k]
	}
	if i, ok := l.byID[rec.ID]; ok && rec.ID != "" {
		return []int{i}
	}
	return nil
}

// applyChange true, если запись изменилась.
func applyChange(rec *student.Student, ch Change) bool {
	changed := !rec.Activo
	rec.Activo = true

	for field, fc := range ch.Changes {
		if field == student.FieldActivo || ch.IsExcluded(field) {
			continue
		}
		if rec.Get(field) == fc.NewValue {
			continue
		}
		rec.Set(field, fc.NewValue)
		changed = true
	}
	return changed
}
