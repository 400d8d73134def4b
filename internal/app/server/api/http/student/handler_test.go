package student

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockService) CreateRecord(ctx context.Context, s student.Student) (student.Student, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(student.Student), args.Error(1)
}

func (m *MockService) UpdateRecord(ctx context.Context, id string, p student.Patch) error {
	return m.Called(ctx, id, p).Error(0)
}

func (m *MockService) DeleteRecord(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockService) FindByBusinessKey(ctx context.Context, key string) (*student.Student, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockService) ListAll(ctx context.Context) ([]student.Student, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]student.Student), args.Error(1)
}

func (m *MockService) ListInactive(ctx context.Context) ([]student.Student, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]student.Student), args.Error(1)
}

func (m *MockService) GetInactive(ctx context.Context, id string) (*student.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockService) RestoreRecord(ctx context.Context, inactiveID string, target student.Student) error {
	return m.Called(ctx, inactiveID, target).Error(0)
}

func (m *MockService) DeleteInactive(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockService) BulkImport(ctx context.Context, records []student.Student) (student.ImportResult, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(student.ImportResult), args.Error(1)
}

func (m *MockService) BatchUpdate(ctx context.Context, records []student.Student) (student.BatchResult, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(student.BatchResult), args.Error(1)
}

func (m *MockService) RecoverDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se))
	return se.GetStatus()
}

func TestHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, slog.Default(), nil)

		created := student.FromFields(map[string]string{
			student.FieldID:        "a1",
			student.FieldHexID:     "abc",
			student.FieldDocumento: "123",
		})
		svc.On("CreateRecord", mock.Anything, mock.MatchedBy(func(s student.Student) bool {
			return s.Documento == "123" && s.Activo
		})).Return(created, nil)

		input := &createInput{}
		input.Body.Student = document{"Documento": "123", "Nombre Completo": "Ana"}

		out, err := h.create(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "Ok", out.Body.Status)
		assert.Equal(t, "a1", out.Body.Student["id"])
		assert.Equal(t, "abc", out.Body.Student["hexId"])
		svc.AssertExpectations(t)
	})

	t.Run("MissingKey", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, slog.Default(), nil)

		svc.On("CreateRecord", mock.Anything, mock.Anything).Return(student.Student{}, student.ErrMissingKey)

		input := &createInput{}
		input.Body.Student = document{"Nombre Completo": "Ana"}

		_, err := h.create(context.Background(), input)
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})
}

func TestHandler_FindByKey(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, slog.Default(), nil)

	found := student.FromFields(map[string]string{student.FieldID: "a1", student.FieldDocumento: "123"})
	svc.On("FindByBusinessKey", mock.Anything, "123").Return(&found, nil)
	svc.On("FindByBusinessKey", mock.Anything, "999").Return(nil, nil)

	out, err := h.findByKey(context.Background(), &byKeyInput{Key: "123"})
	require.NoError(t, err)
	assert.Equal(t, "a1", out.Body.Student["id"])

	_, err = h.findByKey(context.Background(), &byKeyInput{Key: "999"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestHandler_Update(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, slog.Default(), nil)

	svc.On("UpdateRecord", mock.Anything, "a1", student.Patch{"Sexo": "F"}).Return(nil)
	svc.On("UpdateRecord", mock.Anything, "gone", mock.Anything).Return(student.ErrNotFound)

	input := &updateInput{ID: "a1"}
	input.Body.Fields = map[string]string{"Sexo": "F"}
	out, err := h.update(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "a1", out.Body.ID)

	input = &updateInput{ID: "gone"}
	_, err = h.update(context.Background(), input)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestHandler_Delete(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, slog.Default(), nil)

	svc.On("DeleteRecord", mock.Anything, "a1", "traslado").Return(nil)

	out, err := h.delete(context.Background(), &deleteInput{ID: "a1", Reason: "traslado"})
	require.NoError(t, err)
	assert.Equal(t, "Ok", out.Body.Status)
	svc.AssertExpectations(t)
}

func TestHandler_BulkImport(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, slog.Default(), nil)

	svc.On("BulkImport", mock.Anything, mock.MatchedBy(func(r []student.Student) bool {
		return len(r) == 2 && r[0].Documento == "1"
	})).Return(student.ImportResult{Created: 1, Errors: 1, Total: 2}, nil)

	input := &recordsInput{}
	input.Body.Students = []document{{"Documento": "1"}, {"Nombre Completo": "sin documento"}}

	out, err := h.bulkImport(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Body.Errors)
	assert.Equal(t, 2, out.Body.Total)
}

func TestHandler_ListError(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, slog.Default(), nil)

	svc.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	_, err := h.list(context.Background(), &struct{}{})
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
}
