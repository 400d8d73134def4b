package student

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Имена полей записи так, как они хранятся в документах.
const (
	FieldID              = "id"
	FieldHexID           = "hexId"
	FieldDocumento       = "Documento"
	FieldActivo          = "Activo"
	FieldCodigo          = "Codigo"
	FieldNombreCompleto  = "Nombre Completo"
	FieldSexo            = "Sexo"
	FieldFechaNacimiento = "FechaNacimiento"
	FieldFechaBaja       = "FechaBaja"
	FieldTurno           = "Turno"
	FieldInactiveSince   = "inactiveSince"
	FieldReason          = "reason"
)

// DateLayout формат дат в полях FechaBaja и FechaNacimiento.
const DateLayout = "2006-01-02"

// Student запись ученика: обязательное ядро плюс плоская карта остальных полей.
type Student struct {
	ID        string            `validate:"omitempty"`
	HexID     string            `validate:"omitempty,max=64"`
	Documento string            `validate:"required"`
	Activo    bool              `validate:"-"`
	Fields    map[string]string `validate:"-"`
}

// Patch частичное обновление: имя поля -> новое значение.
type Patch map[string]string

// New собирает запись из сырой карты полей. Отсутствующий Activo означает активную запись.
func New(raw map[string]any) Student {
	s := Student{
		Activo: true,
		Fields: make(map[string]string),
	}

	for k, v := range raw {
		if k == FieldActivo {
			s.Activo = parseActivo(v)
			continue
		}
		s.Set(k, stringify(v))
	}

	return s
}

// FromFields то же, что New, для строковой карты.
func FromFields(fields map[string]string) Student {
	raw := make(map[string]any, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return New(raw)
}

// Key нормализованный бизнес-ключ.
func (s Student) Key() string {
	return NormalizeKey(s.Documento)
}

// IsActive запись неактивна только при явном Activo=false.
func (s Student) IsActive() bool {
	return s.Activo
}

// Get возвращает значение поля, включая поля ядра.
func (s Student) Get(field string) string {
	switch field {
	case FieldID:
		return s.ID
	case FieldHexID:
		return s.HexID
	case FieldDocumento:
		return s.Documento
	case FieldActivo:
		return strconv.FormatBool(s.Activo)
	}
	return s.Fields[field]
}

// Set записывает значение поля. Пустое значение удаляет необязательное поле.
func (s *Student) Set(field, value string) {
	switch field {
	case FieldID:
		s.ID = value
		return
	case FieldHexID:
		s.HexID = value
		return
	case FieldDocumento:
		s.Documento = strings.TrimSpace(value)
		return
	case FieldActivo:
		s.Activo = parseActivo(value)
		return
	}

	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	if value == "" {
		delete(s.Fields, field)
		return
	}
	s.Fields[field] = value
}

// Unset удаляет необязательное поле.
func (s *Student) Unset(field string) {
	delete(s.Fields, field)
}

// Apply накладывает patch. id и уже назначенный hexId не перезаписываются.
func (s *Student) Apply(p Patch) {
	for k, v := range p {
		if k == FieldID {
			continue
		}
		if k == FieldHexID && s.HexID != "" {
			continue
		}
		s.Set(k, v)
	}
}

// Patch все поля записи, кроме id.
func (s Student) Patch() Patch {
	p := Patch(s.Map())
	delete(p, FieldID)
	return p
}

// ReplacePatch патч, превращающий prev в s: поля, которых нет в s, передаются пустыми
// и при наложении удаляются.
func (s Student) ReplacePatch(prev Student) Patch {
	p := s.Patch()
	for k := range prev.Fields {
		if _, ok := s.Fields[k]; !ok {
			p[k] = ""
		}
	}
	return p
}

// Map плоское строковое представление записи.
func (s Student) Map() map[string]string {
	m := make(map[string]string, len(s.Fields)+4)
	for k, v := range s.Fields {
		m[k] = v
	}
	if s.ID != "" {
		m[FieldID] = s.ID
	}
	if s.HexID != "" {
		m[FieldHexID] = s.HexID
	}
	m[FieldDocumento] = s.Documento
	m[FieldActivo] = strconv.FormatBool(s.Activo)
	return m
}

// Document представление для JSON-документов: Activo остается булевым.
func (s Student) Document() map[string]any {
	doc := make(map[string]any, len(s.Fields)+4)
	for k, v := range s.Fields {
		doc[k] = v
	}
	if s.ID != "" {
		doc[FieldID] = s.ID
	}
	if s.HexID != "" {
		doc[FieldHexID] = s.HexID
	}
	doc[FieldDocumento] = s.Documento
	doc[FieldActivo] = s.Activo
	return doc
}

// FieldNames имена всех полей записи в стабильном порядке.
func (s Student) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s Student) Clone() Student {
	c := s
	c.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	return c
}

func (s Student) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

func (s *Student) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal student: %w", err)
	}
	*s = New(raw)
	return nil
}

func parseActivo(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "false", "0", "no", "n":
			return false
		}
		return true
	case float64:
		return val != 0
	}
	return true
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
