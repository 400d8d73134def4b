package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"tejanitos/internal/app/client/config"
	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/app/client/remote"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Env:          "local",
		ConfigDir:    dir,
		DataPath:     filepath.Join(dir, "cache.db"),
		InboxDir:     filepath.Join(dir, "inbox"),
		AppPrefix:    "test",
		DefaultTurno: "Tarde",
	}
}

func TestNew_LocalOnly(t *testing.T) {
	app, err := New(testConfig(t), slog.Default())
	require.NoError(t, err)
	defer app.Shutdown()

	assert.ErrorIs(t, app.CheckConnection(context.Background()), remote.ErrUnavailable)
	assert.Equal(t, queue.StatusSynced, app.Engine().Status())
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, slog.Default())
	assert.Error(t, err)
}

func TestRun_AppliesDroppedRoster(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0o700))

	app, err := New(cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, true) }()

	roster := []byte("Codigo,Nombre,Sexo,Documento,Nacimiento\nA1,Ana,F,1,\nA2,Luis,M,2,\n")
	path := filepath.Join(cfg.InboxDir, "roster.csv")

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, roster, 0o600)
		list, err := app.Data().LoadAll(ctx, false)
		return err == nil && len(list) == 2
	}, 10*time.Second, 700*time.Millisecond)

	list, err := app.Data().LoadAll(ctx, false)
	require.NoError(t, err)
	for _, s := range list {
		assert.Equal(t, "Tarde", s.Get("Turno"))
	}

	cancel()
	require.NoError(t, <-done)
	app.Shutdown()
}
