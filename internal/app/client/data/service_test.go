package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"tejanitos/internal/app/client/cache"
	"tejanitos/internal/app/client/queue"
	"tejanitos/internal/domain/conflict"
	"tejanitos/internal/domain/student"
	"tejanitos/internal/infrastructure/storage/memory"
)

var (
	errDown  = errors.New("remote write failed")
	fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
)

type fakeConn struct {
	online atomic.Bool
}

func (f *fakeConn) Online(context.Context) bool { return f.online.Load() }

// flakyRemote удаленное хранилище поверх student.Service, у которого можно отключить запись.
type flakyRemote struct {
	*student.Service
	down atomic.Bool
}

func (f *flakyRemote) CreateRecord(ctx context.Context, s student.Student) (student.Student, error) {
	if f.down.Load() {
		return student.Student{}, errDown
	}
	return f.Service.CreateRecord(ctx, s)
}

func (f *flakyRemote) UpdateRecord(ctx context.Context, id string, p student.Patch) error {
	if f.down.Load() {
		return errDown
	}
	return f.Service.UpdateRecord(ctx, id, p)
}

func (f *flakyRemote) DeleteRecord(ctx context.Context, id, reason string) error {
	if f.down.Load() {
		return errDown
	}
	return f.Service.DeleteRecord(ctx, id, reason)
}

type fixture struct {
	svc     *Service
	remote  *flakyRemote
	backend *student.Service
	conn    *fakeConn
	engine  *queue.Engine
	cache   *cache.Cache
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	log := slog.Default()
	backend := student.NewService(memory.NewStudentRepository(), log)
	remote := &flakyRemote{Service: backend}
	conn := &fakeConn{}
	conn.online.Store(true)

	c := cache.New(cache.NewMemoryStore(), "test", log)
	k := c.Keys()
	engine := queue.NewEngine(c, queue.Keys{Pending: k.Pending, Status: k.Status, Stats: k.Stats}, remote, conn, log)

	svc := NewService(c, remote, conn, engine, opts, log)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, remote: remote, backend: backend, conn: conn, engine: engine, cache: c}
}

func rec(doc string, fields ...string) student.Student {
	raw := map[string]any{student.FieldDocumento: doc}
	for i := 0; i+1 < len(fields); i += 2 {
		raw[fields[i]] = fields[i+1]
	}
	return student.New(raw)
}

func TestAddRecord_DualWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	list, err := f.svc.AddRecord(ctx, nil, rec("1.234", student.FieldNombreCompleto, "Ana"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	hexID := list[0].HexID
	assert.NotEmpty(t, hexID)

	f.svc.Wait()

	remote, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, hexID, remote[0].HexID)
	assert.Zero(t, f.engine.PendingCount())

	cached := f.cache.GetAll()
	require.Len(t, cached, 1)
	assert.Equal(t, remote[0].ID, cached[0].ID, "remote id is stored locally")
}

func TestAddRecord_RemoteFailureKeepsData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.remote.down.Store(true)

	_, err := f.svc.AddRecord(ctx, nil, rec("42", student.FieldNombreCompleto, "Luis"))
	require.NoError(t, err)
	f.svc.Wait()

	require.Equal(t, 1, f.engine.PendingCount())
	pending := f.engine.Pending()
	assert.Equal(t, queue.KindAdd, pending[0].Op.Kind())

	list, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1, "pending add is visible over the remote snapshot")
	assert.Equal(t, "42", list[0].Documento)

	f.conn.online.Store(false)
	list, err = f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1, "cache serves the record while offline")

	f.conn.online.Store(true)
	f.remote.down.Store(false)
	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, f.engine.PendingCount())

	remote, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, list[0].HexID, remote[0].HexID)
}

func TestAddRecord_OfflineQueuesWithoutRemoteCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.conn.online.Store(false)

	_, err := f.svc.AddRecord(ctx, nil, rec("7"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.engine.PendingCount())
	assert.Equal(t, queue.StatusPending, f.engine.Status())

	remote, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestAddRecord_RejectsMissingKey(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.AddRecord(context.Background(), nil, rec(" - "))
	assert.ErrorIs(t, err, student.ErrMissingKey)
	assert.False(t, f.cache.HasRecords())
	assert.Zero(t, f.engine.PendingCount())
}

func TestAddRecord_LocalOnly(t *testing.T) {
	log := slog.Default()
	c := cache.New(cache.NewMemoryStore(), "local", log)
	k := c.Keys()
	engine := queue.NewEngine(c, queue.Keys{Pending: k.Pending, Status: k.Status, Stats: k.Stats}, nil, nil, log)
	svc := NewService(c, nil, nil, engine, Options{}, log)

	_, err := svc.AddRecord(context.Background(), nil, rec("1"))
	require.NoError(t, err)
	svc.Wait()

	assert.Zero(t, engine.PendingCount())
	list, err := svc.LoadAll(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddRecord_ExistingKeyIsUpserted(t *testing.T) {
	f := newFixture(t, Options{})
	f.conn.online.Store(false)

	existing := []student.Student{
		student.New(map[string]any{"id": "x", "Documento": "5", "Activo": false, "FechaBaja": "2023-01-01", "Sexo": "F"}),
	}
	list, err := f.svc.AddRecord(context.Background(), existing, rec("5.", student.FieldNombreCompleto, "Eva"))
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.True(t, list[0].Activo)
	assert.Equal(t, "x", list[0].ID)
	assert.Equal(t, "Eva", list[0].Get(student.FieldNombreCompleto))
	assert.Equal(t, "F", list[0].Get(student.FieldSexo))
	assert.Empty(t, list[0].Get(student.FieldFechaBaja))
	assert.False(t, existing[0].Activo, "input is not mutated")
}

func TestLoadAll_FallbackChain(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"Codigo,Nombre,Sexo,Documento,Nacimiento",
		"A1,Ana,F,1,",
		"A2,Luis,M,2,",
	}, "\n")), 0o600))

	f := newFixture(t, Options{RosterPath: path, DefaultTurno: "Tarde"})
	f.conn.online.Store(false)

	list, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tarde", list[0].Get(student.FieldTurno))
	assert.NotEmpty(t, list[0].HexID)
	assert.True(t, f.cache.HasRecords(), "roster data is cached")

	require.NoError(t, os.Remove(path))
	again, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, list[0].HexID, again[0].HexID, "second load comes from cache")
}

func TestLoadAll_NoSource(t *testing.T) {
	f := newFixture(t, Options{})
	f.conn.online.Store(false)

	list, err := f.svc.LoadAll(context.Background(), true)
	assert.ErrorIs(t, err, ErrNoData)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	list, err := f.svc.AddRecord(ctx, nil, rec("1", student.FieldNombreCompleto, "Ana"))
	require.NoError(t, err)
	f.svc.Wait()
	list, err = f.svc.LoadAll(ctx, false)
	require.NoError(t, err)

	changed := list[0].Clone()
	changed.Set(student.FieldNombreCompleto, "Ana Maria")
	changed.HexID = "other"
	list, err = f.svc.UpdateRecord(ctx, list, changed)
	require.NoError(t, err)
	f.svc.Wait()

	assert.NotEqual(t, "other", list[0].HexID, "hexId is immutable")
	remote, err := f.backend.FindByBusinessKey(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, remote)
	assert.Equal(t, "Ana Maria", remote.Get(student.FieldNombreCompleto))

	_, err = f.svc.UpdateRecord(ctx, list, rec("999"))
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestUpdateRecord_ClearedFieldReachesRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.AddRecord(ctx, nil, rec("5", student.FieldNombreCompleto, "Eva", student.FieldTurno, "Tarde"))
	require.NoError(t, err)
	f.svc.Wait()
	list, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)

	changed := list[0].Clone()
	changed.Unset(student.FieldTurno)
	_, err = f.svc.UpdateRecord(ctx, list, changed)
	require.NoError(t, err)
	f.svc.Wait()

	remote, err := f.backend.FindByBusinessKey(ctx, "5")
	require.NoError(t, err)
	require.NotNil(t, remote)
	assert.Empty(t, remote.Get(student.FieldTurno))
	assert.Equal(t, "Eva", remote.Get(student.FieldNombreCompleto))

	list, err = f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Get(student.FieldTurno), "reload keeps the cleared field")
	assert.Zero(t, f.engine.PendingCount())
}

func TestUpdateRecord_ClearedFieldSurvivesOfflineReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.AddRecord(ctx, nil, rec("6", student.FieldTurno, "Tarde"))
	require.NoError(t, err)
	f.svc.Wait()
	list, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)

	f.remote.down.Store(true)
	changed := list[0].Clone()
	changed.Unset(student.FieldTurno)
	_, err = f.svc.UpdateRecord(ctx, list, changed)
	require.NoError(t, err)
	f.svc.Wait()
	require.Equal(t, 1, f.engine.PendingCount())

	list, err = f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Get(student.FieldTurno), "pending update is overlaid over the remote snapshot")

	f.remote.down.Store(false)
	_, err = f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, f.engine.PendingCount())

	remote, err := f.backend.FindByBusinessKey(ctx, "6")
	require.NoError(t, err)
	assert.Empty(t, remote.Get(student.FieldTurno))
}

func TestUpdateRecord_ResolvesIDByKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	created, err := f.backend.CreateRecord(ctx, rec("3", student.FieldSexo, "M"))
	require.NoError(t, err)

	local := []student.Student{rec("3", student.FieldSexo, "M")}
	_, err = f.svc.UpdateRecord(ctx, local, rec("3", student.FieldSexo, "F"))
	require.NoError(t, err)
	f.svc.Wait()

	got, err := f.backend.FindByBusinessKey(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "F", got.Get(student.FieldSexo))
	assert.Zero(t, f.engine.PendingCount())
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.AddRecord(ctx, nil, rec("1"))
	require.NoError(t, err)
	f.svc.Wait()
	list, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)

	list, err = f.svc.DeleteRecord(ctx, list, list[0], "moved")
	require.NoError(t, err)
	f.svc.Wait()

	require.Len(t, list, 1)
	assert.False(t, list[0].Activo)
	assert.Equal(t, "2024-03-15", list[0].Get(student.FieldFechaBaja))

	active, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	inactive, err := f.backend.ListInactive(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "moved", inactive[0].Get(student.FieldReason))

	visible, err := f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := f.svc.LoadAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.DeleteRecord(ctx, list, list[0], "again")
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestDeleteBatch_FailureQueuesEachRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	current := []student.Student{rec("1"), rec("2"), rec("3")}
	f.remote.down.Store(true)

	list, err := f.svc.DeleteBatch(ctx, current, current[:2], "graduated")
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, 2, f.engine.PendingCount())
	assert.Len(t, activeOnly(list), 1)
}

// twins активная и неактивная записи с одним и тем же именем.
func twins(t *testing.T, f *fixture) (student.Student, student.Student) {
	t.Helper()
	ctx := context.Background()

	active, err := f.backend.CreateRecord(ctx, rec("1",
		student.FieldNombreCompleto, "Ana Diaz",
		student.FieldSexo, "F",
	))
	require.NoError(t, err)

	gone, err := f.backend.CreateRecord(ctx, rec("2",
		student.FieldNombreCompleto, "ana  DIAZ",
		student.FieldCodigo, "C2",
		student.FieldTurno, "Tarde",
	))
	require.NoError(t, err)
	require.NoError(t, f.backend.DeleteRecord(ctx, gone.ID, "left"))

	inactive, err := f.backend.GetInactive(ctx, gone.ID)
	require.NoError(t, err)
	return active, *inactive
}

func TestRestoreInactive_DuplicateChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	active, inactive := twins(t, f)

	res := f.svc.RestoreInactive(ctx, inactive.ID, "", nil)

	assert.False(t, res.Success)
	assert.True(t, res.Duplicate)
	require.NotNil(t, res.ExistingStudent)
	require.NotNil(t, res.InactiveStudent)
	assert.Equal(t, active.ID, res.ExistingStudent.ID)
	assert.Equal(t, inactive.ID, res.InactiveStudent.ID)

	f.svc.Wait()
	activeList, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	inactiveList, err := f.backend.ListInactive(ctx)
	require.NoError(t, err)
	assert.Len(t, activeList, 1)
	assert.Len(t, inactiveList, 1)
	assert.Zero(t, f.engine.PendingCount())
}

func TestRestoreInactive_Strategies(t *testing.T) {
	tests := []struct {
		name      string
		strategy  conflict.Strategy
		custom    map[string]string
		documento string
		check     func(t *testing.T, got student.Student)
	}{
		{
			name:      "keep active",
			strategy:  conflict.KeepActive,
			documento: "1",
			check: func(t *testing.T, got student.Student) {
				assert.Empty(t, got.Get(student.FieldCodigo))
			},
		},
		{
			name:      "keep inactive",
			strategy:  conflict.KeepInactive,
			documento: "2",
			check: func(t *testing.T, got student.Student) {
				assert.Equal(t, "C2", got.Get(student.FieldCodigo))
				assert.Empty(t, got.Get(student.FieldReason))
			},
		},
		{
			name:      "merge",
			strategy:  conflict.Merge,
			documento: "2",
			check: func(t *testing.T, got student.Student) {
				assert.Equal(t, "F", got.Get(student.FieldSexo))
				assert.Equal(t, "Tarde", got.Get(student.FieldTurno))
			},
		},
		{
			name:      "custom",
			strategy:  conflict.Custom,
			custom:    map[string]string{"Documento": "1", "Nombre Completo": "Ana D."},
			documento: "1",
			check: func(t *testing.T, got student.Student) {
				assert.Equal(t, "Ana D.", got.Get(student.FieldNombreCompleto))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, Options{})
			active, inactive := twins(t, f)

			res := f.svc.RestoreInactive(ctx, inactive.ID, tt.strategy, tt.custom)
			require.Empty(t, res.Error)
			assert.True(t, res.Success)
			assert.True(t, res.Merged)
			require.NotNil(t, res.Student)
			assert.Equal(t, active.ID, res.Student.ID)
			assert.Equal(t, active.HexID, res.Student.HexID)

			activeList, err := f.backend.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, activeList, 1)
			assert.Equal(t, active.ID, activeList[0].ID)
			assert.Equal(t, tt.documento, activeList[0].Documento)
			tt.check(t, activeList[0])

			inactiveList, err := f.backend.ListInactive(ctx)
			require.NoError(t, err)
			assert.Empty(t, inactiveList)

			cached := activeOnly(f.cache.GetAll())
			require.Len(t, cached, 1)
			assert.Equal(t, active.ID, cached[0].ID)
			assert.Len(t, f.cache.GetAll(), 1, "inactive copy removed from cache")
		})
	}
}

func TestRestoreInactive_Plain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	created, err := f.backend.CreateRecord(ctx, rec("9", student.FieldNombreCompleto, "Solo"))
	require.NoError(t, err)
	require.NoError(t, f.backend.DeleteRecord(ctx, created.ID, "left"))

	res := f.svc.RestoreInactive(ctx, created.ID, "", nil)
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Duplicate)
	assert.False(t, res.Merged)
	f.svc.Wait()

	active, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)
	assert.Empty(t, active[0].Get(student.FieldReason))

	inactive, err := f.backend.ListInactive(ctx)
	require.NoError(t, err)
	assert.Empty(t, inactive)

	cached := f.cache.GetAll()
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Activo)
}

func TestRestoreInactive_OfflineConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	_, inactive := twins(t, f)

	_, err := f.svc.LoadAll(ctx, true)
	require.NoError(t, err)
	f.conn.online.Store(false)

	res := f.svc.RestoreInactive(ctx, inactive.ID, conflict.Merge, nil)
	assert.False(t, res.Success)
	assert.True(t, res.Duplicate)
	assert.Equal(t, ErrOfflineConflict.Error(), res.Error)
	assert.Zero(t, f.engine.PendingCount())
}

func TestRestoreInactive_NotFound(t *testing.T) {
	f := newFixture(t, Options{})

	res := f.svc.RestoreInactive(context.Background(), "missing", "", nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestDeleteInactivePermanently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	_, inactive := twins(t, f)

	_, err := f.svc.LoadAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, f.cache.GetAll(), 2)

	res := f.svc.DeleteInactivePermanently(ctx, []student.Student{inactive})
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)

	left, err := f.backend.ListInactive(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Len(t, f.cache.GetAll(), 1)

	f.conn.online.Store(false)
	res = f.svc.DeleteInactivePermanently(ctx, []student.Student{inactive})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestGetInactive_FallsBackToCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	twins(t, f)

	online, err := f.svc.GetInactive(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)

	_, err = f.svc.LoadAll(ctx, true)
	require.NoError(t, err)
	f.conn.online.Store(false)

	offline, err := f.svc.GetInactive(ctx)
	require.NoError(t, err)
	require.Len(t, offline, 1)
	assert.Equal(t, online[0].ID, offline[0].ID)
}

func TestProcessRosterFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DefaultTurno: "Matutino"})

	_, err := f.backend.CreateRecord(ctx, rec("1", student.FieldNombreCompleto, "Ana"))
	require.NoError(t, err)
	_, err = f.backend.CreateRecord(ctx, rec("2", student.FieldNombreCompleto, "Luis"))
	require.NoError(t, err)

	current, err := f.svc.LoadAll(ctx, true)
	require.NoError(t, err)

	csv := strings.Join([]string{
		"Codigo,Nombre,Sexo,Documento,Nacimiento",
		"C1,Ana Maria,F,1,",
		"C3,Nuevo,M,3,",
	}, "\n")

	preview, err := f.svc.ProcessRosterFile(ctx, "roster.csv", strings.NewReader(csv), current, false)
	require.NoError(t, err)
	assert.Nil(t, preview.Applied)
	assert.Len(t, preview.ChangeSet.Changed, 1)
	assert.Len(t, preview.ChangeSet.Missing, 1)
	require.Len(t, preview.ChangeSet.New, 1)
	assert.Equal(t, "Matutino", preview.ChangeSet.New[0].Get(student.FieldTurno))

	out, err := f.svc.ProcessRosterFile(ctx, "roster.csv", strings.NewReader(csv), current, true)
	require.NoError(t, err)
	require.NotNil(t, out.Applied)
	f.svc.Wait()

	stats := out.Applied.Stats
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.MarkedInactive)
	assert.Len(t, out.Applied.Students, 3)
	assert.Zero(t, f.engine.PendingCount())

	active, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	docs := make(map[string]student.Student)
	for _, r := range active {
		docs[r.Documento] = r
	}
	assert.Len(t, docs, 2)
	assert.Equal(t, "Ana Maria", docs["1"].Get(student.FieldNombreCompleto))
	assert.Equal(t, "Matutino", docs["3"].Get(student.FieldTurno))

	inactive, err := f.backend.ListInactive(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "2", inactive[0].Documento)
	assert.Equal(t, RosterReason, inactive[0].Get(student.FieldReason))
}

func TestProcessRosterFile_SkipsAlreadyInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DefaultTurno: "Tarde"})

	list, err := f.svc.AddRecord(ctx, nil, rec("1", student.FieldNombreCompleto, "Ana"))
	require.NoError(t, err)
	f.svc.Wait()
	list, err = f.svc.LoadAll(ctx, false)
	require.NoError(t, err)
	_, err = f.svc.DeleteRecord(ctx, list, list[0], "left")
	require.NoError(t, err)
	f.svc.Wait()

	current, err := f.svc.LoadAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.False(t, current[0].Activo)
	withdrawn := current[0].Get(student.FieldFechaBaja)
	require.NotEmpty(t, withdrawn)

	csv := "Codigo,Nombre,Sexo,Documento,Nacimiento\nC2,Luis,M,2,\n"
	out, err := f.svc.ProcessRosterFile(ctx, "roster.csv", strings.NewReader(csv), current, true)
	require.NoError(t, err)
	require.NotNil(t, out.Applied)
	f.svc.Wait()

	assert.Zero(t, out.Applied.Stats.MarkedInactive)
	assert.Equal(t, 1, out.Applied.Stats.New)
	for _, s := range out.Applied.Students {
		if s.Documento == "1" {
			assert.False(t, s.Activo)
			assert.Equal(t, withdrawn, s.Get(student.FieldFechaBaja))
		}
	}
	assert.Zero(t, f.engine.PendingCount())
	assert.Equal(t, queue.StatusSynced, f.engine.Status())
}

func TestApplyChanges_RemoteFailureQueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DefaultTurno: "Tarde"})
	f.conn.online.Store(false)

	current := []student.Student{rec("1")}
	csv := "Codigo,Nombre,Sexo,Documento\nX,Nuevo,M,2\n"

	out, err := f.svc.ProcessRosterFile(ctx, "r.csv", strings.NewReader(csv), current, true)
	require.NoError(t, err)
	require.NotNil(t, out.Applied)

	kinds := make(map[queue.Kind]int)
	for _, p := range f.engine.Pending() {
		kinds[p.Op.Kind()]++
	}
	assert.Equal(t, map[queue.Kind]int{queue.KindDelete: 1, queue.KindImport: 1}, kinds)
}

func TestInitialize_SyncsPendingOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.engine.Enqueue(queue.AddOp{Record: rec("1")})

	f.svc.Initialize(ctx)
	f.svc.Initialize(ctx)
	f.svc.Wait()

	assert.Zero(t, f.engine.PendingCount())
	remote, err := f.backend.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remote, 1)
}

func TestExpired(t *testing.T) {
	list := []student.Student{
		student.New(map[string]any{"id": "old", "Documento": "1", "Activo": false, "inactiveSince": "2024-01-01T00:00:00Z"}),
		student.New(map[string]any{"id": "baja", "Documento": "2", "Activo": false, "FechaBaja": "2023-12-01"}),
		student.New(map[string]any{"id": "fresh", "Documento": "3", "Activo": false, "inactiveSince": "2024-03-10T00:00:00Z"}),
		student.New(map[string]any{"id": "nodate", "Documento": "4", "Activo": false}),
		student.New(map[string]any{"id": "active", "Documento": "5", "FechaBaja": "2020-01-01"}),
	}

	got := Expired(list, 30, fixedNow)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"old", "baja"}, ids)
}
