package student

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "123", want: "123"},
		{name: "surrounding whitespace", in: "  123\t", want: "123"},
		{name: "trailing hyphen", in: "123-", want: "123"},
		{name: "periods and hyphens", in: "12.345.678-9", want: "123456789"},
		{name: "embedded spaces", in: "12 34\n5", want: "12345"},
		{name: "only separators", in: " .- ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.in))
		})
	}
}

func TestNormalizeKey_Invariance(t *testing.T) {
	keys := []string{"1", "123456", "AB12", "0099"}
	decorate := []func(string) string{
		func(k string) string { return "  " + k + " " },
		func(k string) string { return k[:1] + "-" + k[1:] },
		func(k string) string { return k[:1] + "." + k[1:] + "." },
		func(k string) string { return "\t" + k[:1] + " - " + k[1:] },
	}

	for _, k := range keys {
		for _, d := range decorate {
			assert.Equal(t, NormalizeKey(k), NormalizeKey(d(k)), "key %q decorated as %q", k, d(k))
		}
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "juan perez", NormalizeName("  Juan   PEREZ "))
	assert.Equal(t, NormalizeName("juan perez"), NormalizeName("JUAN\tPerez"))
}

func TestStudent_UnmarshalJSON(t *testing.T) {
	t.Run("absent Activo means active", func(t *testing.T) {
		var s Student
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a1","Documento":"123","Nombre Completo":"Ana"}`), &s))
		assert.True(t, s.Activo)
		assert.Equal(t, "a1", s.ID)
		assert.Equal(t, "Ana", s.Get(FieldNombreCompleto))
	})

	t.Run("explicit false", func(t *testing.T) {
		var s Student
		require.NoError(t, json.Unmarshal([]byte(`{"Documento":"123","Activo":false}`), &s))
		assert.False(t, s.IsActive())
	})

	t.Run("string false", func(t *testing.T) {
		var s Student
		require.NoError(t, json.Unmarshal([]byte(`{"Documento":"123","Activo":"false"}`), &s))
		assert.False(t, s.IsActive())
	})

	t.Run("non string values are stringified", func(t *testing.T) {
		var s Student
		require.NoError(t, json.Unmarshal([]byte(`{"Documento":12345,"Codigo":7,"Becado":true}`), &s))
		assert.Equal(t, "12345", s.Documento)
		assert.Equal(t, "7", s.Get(FieldCodigo))
		assert.Equal(t, "true", s.Get("Becado"))
	})
}

func TestStudent_MarshalRoundTripKeepsFlatShape(t *testing.T) {
	s := FromFields(map[string]string{
		FieldID:             "a1",
		FieldHexID:          "abc",
		FieldDocumento:      "123",
		FieldNombreCompleto: "Ana",
	})
	s.Activo = false

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, false, raw[FieldActivo])
	assert.Equal(t, "Ana", raw[FieldNombreCompleto])
	assert.Equal(t, "abc", raw[FieldHexID])
}

func TestStudent_ApplyKeepsIdentity(t *testing.T) {
	s := FromFields(map[string]string{FieldID: "a1", FieldHexID: "abc", FieldDocumento: "123"})

	s.Apply(Patch{
		FieldID:             "other",
		FieldHexID:          "zzz",
		FieldNombreCompleto: "Ana",
		FieldActivo:         "false",
	})

	assert.Equal(t, "a1", s.ID)
	assert.Equal(t, "abc", s.HexID)
	assert.Equal(t, "Ana", s.Get(FieldNombreCompleto))
	assert.False(t, s.Activo)
}

func TestStudent_SetEmptyRemovesField(t *testing.T) {
	s := FromFields(map[string]string{FieldDocumento: "1", FieldFechaBaja: "2024-01-01"})
	s.Set(FieldFechaBaja, "")
	_, ok := s.Fields[FieldFechaBaja]
	assert.False(t, ok)
}

func TestStudent_ReplacePatch(t *testing.T) {
	prev := FromFields(map[string]string{FieldID: "a1", FieldDocumento: "1", FieldTurno: "Tarde", FieldSexo: "F"})
	next := FromFields(map[string]string{FieldID: "a1", FieldDocumento: "1", FieldSexo: "M"})

	p := next.ReplacePatch(prev)
	v, ok := p[FieldTurno]
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, "M", p[FieldSexo])

	prev.Apply(p)
	assert.Equal(t, next.Fields, prev.Fields)
}

func TestStudent_CloneIsDeep(t *testing.T) {
	s := FromFields(map[string]string{FieldDocumento: "1", FieldSexo: "F"})
	c := s.Clone()
	c.Set(FieldSexo, "M")
	assert.Equal(t, "F", s.Get(FieldSexo))
}

func TestStudent_Validate(t *testing.T) {
	assert.NoError(t, FromFields(map[string]string{FieldDocumento: "123"}).Validate())
	assert.ErrorIs(t, FromFields(map[string]string{FieldDocumento: " - "}).Validate(), ErrMissingKey)
	assert.ErrorIs(t, FromFields(map[string]string{FieldNombreCompleto: "Ana"}).Validate(), ErrMissingKey)

	valid, dropped := ValidateAll([]Student{
		FromFields(map[string]string{FieldDocumento: "1"}),
		FromFields(map[string]string{}),
	})
	assert.Len(t, valid, 1)
	assert.Equal(t, 1, dropped)
}

func TestNewHexID(t *testing.T) {
	a, b := NewHexID(), NewHexID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}
