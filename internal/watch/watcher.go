// Package watch re-runs a callback whenever a file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/upmusync/internal/logfields"
)

// FileWatcher monitors one file and calls onChange, debounced, after it is
// written, created or renamed into place. Calls to onChange never overlap.
type FileWatcher struct {
	path         string
	onChange     func(ctx context.Context)
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	reloadChan   chan struct{}
	debounceTime time.Duration
	runMu        sync.Mutex
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, debounce time.Duration, logger *slog.Logger, onChange func(ctx context.Context)) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	return &FileWatcher{
		path:         absPath,
		onChange:     onChange,
		watcher:      watcher,
		logger:       logger,
		reloadChan:   make(chan struct{}, 1),
		debounceTime: debounce,
	}, nil
}

// Run watches until ctx is done. The watcher is closed on return.
func (fw *FileWatcher) Run(ctx context.Context) error {
	defer func() {
		if err := fw.watcher.Close(); err != nil {
			fw.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	// Editors replace files by rename, which drops a watch on the file itself.
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	fw.logger.Info("Watching for changes", logfields.Path(fw.path))

	done := make(chan struct{})
	go func() {
		defer close(done)
		fw.reloadLoop(ctx)
	}()
	fw.watchLoop(ctx)
	<-done
	return nil
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(fw.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				fw.logger.Debug("File change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				fw.trigger()
			case event.Has(fsnotify.Remove):
				fw.logger.Warn("Watched file removed", logfields.Path(event.Name))
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (fw *FileWatcher) reloadLoop(ctx context.Context) {
	// inflight counts scheduled or running callbacks.
	var inflight sync.WaitGroup
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil && timer.Stop() {
				inflight.Done()
			}
			inflight.Wait()
			return
		case <-fw.reloadChan:
			if timer != nil && timer.Stop() {
				inflight.Done()
			}
			inflight.Add(1)
			timer = time.AfterFunc(fw.debounceTime, func() {
				defer inflight.Done()
				if ctx.Err() != nil {
					return
				}
				fw.runMu.Lock()
				defer fw.runMu.Unlock()
				fw.onChange(ctx)
			})
		}
	}
}

// trigger requests a debounced call to onChange.
func (fw *FileWatcher) trigger() {
	select {
	case fw.reloadChan <- struct{}{}:
	default:
	}
}
