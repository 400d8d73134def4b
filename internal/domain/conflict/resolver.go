package conflict

import (
	"errors"
	"fmt"
	"sort"

	"tejanitos/internal/domain/student"
)

// Strategy способ разрешения конфликта активной и восстанавливаемой записи.
type Strategy string

const (
	KeepActive   Strategy = "keepActive"
	KeepInactive Strategy = "keepInactive"
	Merge        Strategy = "merge"
	Custom       Strategy = "custom"
)

var (
	ErrUnknownStrategy = errors.New("unknown merge strategy")
	ErrNoCustomData    = errors.New("custom strategy requires resolved fields")
)

// Strategies все стратегии в порядке показа пользователю.
var Strategies = []Strategy{KeepActive, KeepInactive, Merge, Custom}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// bookkeeping поля, которые слияние никогда не переносит из неактивной записи.
var bookkeeping = map[string]bool{
	student.FieldID:            true,
	student.FieldHexID:         true,
	student.FieldActivo:        true,
	student.FieldInactiveSince: true,
	student.FieldReason:        true,
	student.FieldFechaBaja:     true,
}

// FindDuplicate ищет активную запись с тем же нормализованным полным именем.
func FindDuplicate(active []student.Student, inactive student.Student) *student.Student {
	name := student.NormalizeName(inactive.Get(student.FieldNombreCompleto))
	if name == "" {
		return nil
	}

	for i := range active {
		if active[i].ID != "" && active[i].ID == inactive.ID {
			continue
		}
		if student.NormalizeName(active[i].Get(student.FieldNombreCompleto)) == name {
			found := active[i].Clone()
			return &found
		}
	}
	return nil
}

// Resolve строит итоговую запись. Результат всегда активен и несет id активной записи.
func Resolve(active, inactive student.Student, strategy Strategy, custom map[string]string) (student.Student, error) {
	var out student.Student

	switch strategy {
	case KeepActive:
		out = active.Clone()
	case KeepInactive:
		out = inactive.Clone()
		out.ID = active.ID
		out.HexID = active.HexID
	case Merge:
		out = active.Clone()
		for field, value := range inactive.Map() {
			if bookkeeping[field] || value == "" {
				continue
			}
			out.Set(field, value)
		}
	case Custom:
		if len(custom) == 0 {
			return student.Student{}, ErrNoCustomData
		}
		out = student.FromFields(custom)
		out.ID = active.ID
		out.HexID = active.HexID
	default:
		return student.Student{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	out.Activo = true
	out.Unset(student.FieldInactiveSince)
	out.Unset(student.FieldReason)
	out.Unset(student.FieldFechaBaja)

	if out.Key() == "" {
		return student.Student{}, student.ErrMissingKey
	}
	return out, nil
}

// Diff поле, значения которого отличаются у двух записей.
type Diff struct {
	Field    string
	Active   string
	Inactive string
}

// Diffs отличающиеся поля без служебных, в алфавитном порядке.
func Diffs(active, inactive student.Student) []Diff {
	a, in := active.Map(), inactive.Map()
	names := make(map[string]struct{}, len(a)+len(in))
	for k := range a {
		names[k] = struct{}{}
	}
	for k := range in {
		names[k] = struct{}{}
	}

	out := make([]Diff, 0)
	for name := range names {
		if bookkeeping[name] || a[name] == in[name] {
			continue
		}
		out = append(out, Diff{Field: name, Active: a[name], Inactive: in[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Pick собирает поля для Custom: для каждого отличающегося поля берется сторона из choices
// (true - неактивная запись), остальные поля берутся из активной записи.
func Pick(active, inactive student.Student, choices map[string]bool) map[string]string {
	fields := active.Map()
	in := inactive.Map()
	for field, useInactive := range choices {
		if bookkeeping[field] || !useInactive {
			continue
		}
		fields[field] = in[field]
	}
	return fields
}
