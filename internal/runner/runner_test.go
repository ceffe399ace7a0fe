package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/upmusync/internal/config"
	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/metastore"
	"git.home.luguber.info/inful/upmusync/internal/metrics"
	"git.home.luguber.info/inful/upmusync/internal/reconcile"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
	"git.home.luguber.info/inful/upmusync/internal/testutil"
)

const fleetINI = `
[A]
Location = X
    [[L1MAG]]
    uuid = u1
    [[FREQ_L1_1S]]
    uuid = u2

[C]
%alias = lab
Site = Z
    [[C1MAG]]
    uuid = u4
`

type fixture struct {
	cfg   *config.Config
	store *metastore.MemoryStore
	svc   *Service
}

func newFixture(t *testing.T, desired string, options ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Desired = testutil.WriteFile(t, dir, "upmuconfig.ini", desired)
	cfg.Paths.Previous = filepath.Join(dir, "state", "backupconfig.ini")

	store := metastore.NewMemoryStore()
	opts := append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStoreOpener(func(context.Context, config.StoreConfig) (metastore.Store, error) {
			return store, nil
		}),
	}, options...)
	return &fixture{cfg: cfg, store: store, svc: NewService(cfg, opts...)}
}

func TestRun_FirstRunWritesEverythingAndSavesSnapshot(t *testing.T) {
	f := newFixture(t, fleetINI)

	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count(reconcile.ActionUpdated))
	assert.Equal(t, metastore.MemoryCalls{Upsert: 3}, f.store.Calls())
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	doc, ok := f.store.Get("u4")
	require.True(t, ok)
	assert.Equal(t, metastore.Document{"Site": "Z", "uuid": "u4"}, doc)

	saved, err := snapshot.Load(f.cfg.Paths.Previous)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, saved.Keys())
	testutil.NewFileAssertions(t, filepath.Dir(f.cfg.Paths.Previous)).AssertNoTempFiles()
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t, fleetINI)
	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	f.store.ResetCalls()

	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)

	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls())
	assert.Equal(t, 2, res.Count(reconcile.ActionUnchanged))
}

func TestRun_ForceByAlias(t *testing.T) {
	f := newFixture(t, fleetINI)
	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	f.store.ResetCalls()

	res, err := f.svc.Run(t.Context(), Request{Force: []string{"lab"}})
	require.NoError(t, err)

	assert.Equal(t, metastore.MemoryCalls{Upsert: 1}, f.store.Calls())
	rep, _ := res.Report("C")
	assert.Equal(t, reconcile.ReasonAlias, rep.Reason)
}

func TestRun_UpdateAllIgnoresPrevious(t *testing.T) {
	f := newFixture(t, fleetINI)
	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	f.store.ResetCalls()

	_, err = f.svc.Run(t.Context(), Request{UpdateAll: true})
	require.NoError(t, err)

	assert.Equal(t, metastore.MemoryCalls{Upsert: 3}, f.store.Calls())
}

func TestRun_RemovedDeviceIsDeleted(t *testing.T) {
	f := newFixture(t, fleetINI)
	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.cfg.Paths.Desired, []byte("[C]\n%alias = lab\nSite = Z\n[[C1MAG]]\nuuid = u4\n"), 0o600))
	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)

	rep, _ := res.Report("A")
	assert.Equal(t, reconcile.ActionRemoved, rep.Action)
	_, ok := f.store.Get("u1")
	assert.False(t, ok)
	saved, err := snapshot.Load(f.cfg.Paths.Previous)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, saved.Keys())
}

func TestRun_StoreFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t, fleetINI)
	f.store.FailOn(metastore.OpUpsert, "u1", errors.New("down"))

	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	require.Len(t, res.Failures(), 1)

	testutil.NewFileAssertions(t, "").AssertFileContains(f.cfg.Paths.Previous, "%mustupdate = true")
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t, fleetINI)

	res, err := f.svc.Run(t.Context(), Request{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Count(reconcile.ActionUpdated))
	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls(), "dry run must not use the configured store")
	testutil.NewFileAssertions(t, "").AssertFileNotExists(f.cfg.Paths.Previous)
}

func TestRun_MissingDesiredIsFatal(t *testing.T) {
	f := newFixture(t, fleetINI)
	require.NoError(t, os.Remove(f.cfg.Paths.Desired))

	_, err := f.svc.Run(t.Context(), Request{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestRun_MalformedDesiredIsFatal(t *testing.T) {
	f := newFixture(t, "[A]\n[[[L1MAG]]]\nuuid = u1\n")

	_, err := f.svc.Run(t.Context(), Request{})
	require.Error(t, err)
	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls())
}

func TestRun_StoreOpenFailureIsReturned(t *testing.T) {
	boom := ferrors.StoreError("open mongo store").Fatal().Build()
	f := newFixture(t, fleetINI, WithStoreOpener(func(context.Context, config.StoreConfig) (metastore.Store, error) {
		return nil, boom
	}))

	_, err := f.svc.Run(t.Context(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder(nil)
	f := newFixture(t, fleetINI, WithRecorder(recorder))
	f.cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "upmusync.prom")

	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)

	data, err := os.ReadFile(f.cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `upmusync_device_outcomes_total{outcome="updated"} 2`)
	assert.Contains(t, string(data), `upmusync_store_operations_total{op="upsert",result="success"} 3`)
	assert.Contains(t, string(data), "upmusync_pending_retries 0")
}

func TestRun_SavesAndReloadsListsAndMixedQuotes(t *testing.T) {
	f := newFixture(t, "[A]\nNote = '''it's \"x\", y'''\nTags = feeder, bay 3\n    [[L1MAG]]\n    uuid = u1\n\n[B]\n    [[L1MAG]]\n    uuid = u2\n")

	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	testutil.NewFileAssertions(t, "").AssertFileExists(f.cfg.Paths.Previous)

	doc, ok := f.store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, `it's "x", y`, doc["Note"])
	assert.Equal(t, []any{"feeder", "bay 3"}, doc["Tags"])

	f.store.ResetCalls()
	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls())
	assert.Equal(t, 2, res.Count(reconcile.ActionUnchanged))
}

func TestRun_YAMLSnapshotIsIdempotent(t *testing.T) {
	f := newFixture(t, fleetINI)
	dir := t.TempDir()
	f.cfg.Paths.Desired = testutil.WriteFile(t, dir, "upmuconfig.yaml", "A:\n  Rate: 120\n  L1MAG:\n    uuid: u1\n")
	f.cfg.Paths.Previous = filepath.Join(dir, "backupconfig.yaml")

	_, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	f.store.ResetCalls()

	res, err := f.svc.Run(t.Context(), Request{})
	require.NoError(t, err)
	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls())
	rep, _ := res.Report("A")
	assert.Equal(t, reconcile.ActionUnchanged, rep.Action)
}

func TestRun_MixedSnapshotFormatsAreRejected(t *testing.T) {
	f := newFixture(t, fleetINI)
	dir := t.TempDir()
	f.cfg.Paths.Desired = testutil.WriteFile(t, dir, "upmuconfig.yaml", "A:\n  Rate: 120\n  L1MAG:\n    uuid: u1\n")
	f.cfg.Paths.Previous = filepath.Join(dir, "backupconfig.ini")

	_, err := f.svc.Run(t.Context(), Request{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Equal(t, metastore.MemoryCalls{}, f.store.Calls())
	testutil.NewFileAssertions(t, "").AssertFileNotExists(f.cfg.Paths.Previous)
}
