package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

// MockMigrator мок Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func engineFor(m Migrator, gotSource *string) MigrationEngine {
	return func(source, db string) (Migrator, error) {
		if gotSource != nil {
			*gotSource = source
		}
		return m, nil
	}
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Version").Return(uint(1), false, nil)
	mockM.On("Close").Return(nil, nil)

	var source string
	mg := NewMigration("migrations", "postgres://db", engineFor(mockM, &source), slog.Default())

	assert.NoError(t, mg.Up())
	assert.Equal(t, "file://migrations", source)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	mg := NewMigration("migrations", "", engineFor(mockM, nil), slog.Default())

	assert.NoError(t, mg.Up())
	mockM.AssertNotCalled(t, "Version")
}

func TestMigration_Up_EngineError(t *testing.T) {
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("no such directory")
	}

	mg := NewMigration("missing", "", engine, slog.Default())

	assert.Error(t, mg.Up())
}

func TestMigration_Up_UpError(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("syntax error"))
	mockM.On("Close").Return(nil, nil)

	mg := NewMigration("migrations", "", engineFor(mockM, nil), slog.Default())

	err := mg.Up()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestMigration_Up_CloseErrorsJoined(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(errors.New("source closed"), errors.New("db closed"))

	mg := NewMigration("migrations", "", engineFor(mockM, nil), slog.Default())

	err := mg.Up()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source closed")
	assert.Contains(t, err.Error(), "db closed")
}
