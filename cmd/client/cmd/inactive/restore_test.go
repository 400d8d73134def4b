package inactive

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tejanitos/internal/domain/conflict"
	"tejanitos/internal/domain/student"
)

func TestPick(t *testing.T) {
	st, err := pick("3")
	require.NoError(t, err)
	assert.Equal(t, conflict.Merge, st)

	st, err = pick("keepInactive")
	require.NoError(t, err)
	assert.Equal(t, conflict.KeepInactive, st)

	_, err = pick("9")
	assert.Error(t, err)
	_, err = pick("other")
	assert.ErrorIs(t, err, conflict.ErrUnknownStrategy)
}

func TestAskStrategy_Custom(t *testing.T) {
	active := student.New(map[string]any{"id": "a", "Documento": "1", "Nombre Completo": "Ana", "Sexo": "F"})
	inactive := student.New(map[string]any{"id": "b", "Documento": "2", "Nombre Completo": "Ana", "Sexo": "M", "Activo": false})

	// отличаются Documento и Sexo: документ берем у выбывшей, пол у активной
	in := bufio.NewReader(strings.NewReader("4\nв\nа\n"))
	var out bytes.Buffer

	st, custom, err := askStrategy(in, &out, active, inactive)
	require.NoError(t, err)
	assert.Equal(t, conflict.Custom, st)
	assert.Equal(t, "2", custom["Documento"])
	assert.Equal(t, "F", custom["Sexo"])
	assert.Contains(t, out.String(), "Sexo")
}

func TestAskStrategy_Plain(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("keepActive\n"))
	var out bytes.Buffer

	st, custom, err := askStrategy(in, &out, student.New(map[string]any{"Documento": "1"}), student.New(map[string]any{"Documento": "2"}))
	require.NoError(t, err)
	assert.Equal(t, conflict.KeepActive, st)
	assert.Nil(t, custom)
}
