package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upmuconfig.ini")
	require.NoError(t, os.WriteFile(path, []byte("[A]\n"), 0o600))

	var calls atomic.Int32
	fw, err := NewFileWatcher(path, 100*time.Millisecond,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(context.Context) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- fw.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(path, []byte("[A]\nn = "+string(rune('0'+i))+"\n"), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.ini"), []byte("x = 1\n"), 0o600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestFileWatcher_RunWaitsForCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upmuconfig.ini")
	require.NoError(t, os.WriteFile(path, []byte("[A]\n"), 0o600))

	started := make(chan struct{})
	var finished atomic.Bool
	fw, err := NewFileWatcher(path, 20*time.Millisecond,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(context.Context) {
			close(started)
			time.Sleep(200 * time.Millisecond)
			finished.Store(true)
		})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- fw.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[A]\nn = 1\n"), 0o600))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("callback did not start")
	}
	cancel()
	require.NoError(t, <-errCh)
	require.True(t, finished.Load(), "Run returned while a callback was still running")
}

func TestFileWatcher_NoCallbackAfterRunReturns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upmuconfig.ini")
	require.NoError(t, os.WriteFile(path, []byte("[A]\n"), 0o600))

	var calls atomic.Int32
	fw, err := NewFileWatcher(path, 150*time.Millisecond,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(context.Context) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- fw.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[A]\nn = 1\n"), 0o600))
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	afterRun := calls.Load()
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, afterRun, calls.Load())
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "missing", "f.ini"), time.Millisecond, nil, func(context.Context) {})
	require.NoError(t, err)
	require.Error(t, fw.Run(t.Context()))
}
