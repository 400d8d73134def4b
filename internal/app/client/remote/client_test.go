package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"tejanitos/internal/app/server/api"
	"tejanitos/internal/domain/student"
	"tejanitos/internal/infrastructure/storage/memory"
)

const token = "client-token"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)

	svc := student.NewService(memory.NewStudentRepository(), slog.Default())
	srv := httptest.NewServer(api.New(svc, api.Options{Storage: "memory", TokenHash: string(hash)}, slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(url, tok string) *Client {
	return New(Options{BaseURL: url, Token: tok, Enabled: true}, slog.Default())
}

func TestClient_Ready(t *testing.T) {
	assert.False(t, New(Options{BaseURL: "http://x", Enabled: false}, slog.Default()).Ready())
	assert.False(t, New(Options{Enabled: true}, slog.Default()).Ready())
	assert.True(t, New(Options{BaseURL: "http://x", Enabled: true}, slog.Default()).Ready())
}

func TestClient_NotReadyIsUnavailable(t *testing.T) {
	c := New(Options{}, slog.Default())

	_, err := c.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, c.Online(context.Background()))
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(url, token)
	assert.False(t, c.Online(context.Background()))

	_, err := c.CreateRecord(context.Background(), student.New(map[string]any{"Documento": "1"}))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv.URL, "wrong")

	assert.True(t, c.Online(context.Background()), "health is public")

	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := newClient(srv.URL, token)

	created, err := c.CreateRecord(ctx, student.New(map[string]any{
		"Documento":       "12.345-6",
		"Nombre Completo": "Ana Diaz",
	}))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.HexID)

	found, err := c.FindByBusinessKey(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := c.FindByBusinessKey(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, c.UpdateRecord(ctx, created.ID, student.Patch{student.FieldSexo: "F"}))
	err = c.UpdateRecord(ctx, "unknown", student.Patch{student.FieldSexo: "F"})
	assert.ErrorIs(t, err, student.ErrNotFound)

	list, err := c.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "F", list[0].Get(student.FieldSexo))

	require.NoError(t, c.DeleteRecord(ctx, created.ID, "baja voluntaria"))

	inactive, err := c.ListInactive(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.False(t, inactive[0].Activo)
	assert.Equal(t, "baja voluntaria", inactive[0].Get(student.FieldReason))

	got, err := c.GetInactive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.HexID, got.HexID)

	require.NoError(t, c.RestoreRecord(ctx, created.ID, *got))

	list, err = c.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Activo)
	assert.Empty(t, list[0].Get(student.FieldReason))
}

func TestClient_ImportBatchPurge(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := newClient(srv.URL, token)

	res, err := c.BulkImport(ctx, []student.Student{
		student.New(map[string]any{"Documento": "1"}),
		student.New(map[string]any{"Documento": "2"}),
		student.New(map[string]any{"Nombre Completo": "sin documento"}),
	})
	require.NoError(t, err)
	assert.Equal(t, student.ImportResult{Created: 2, Errors: 1, Total: 3}, res)

	list, err := c.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	list[0].Set(student.FieldTurno, "Tarde")
	batch, err := c.BatchUpdate(ctx, list[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Count)

	for _, r := range list {
		require.NoError(t, c.DeleteRecord(ctx, r.ID, ""))
	}

	count, err := c.DeleteInactive(ctx, []string{list[0].ID, list[1].ID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = c.DeleteInactive(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
