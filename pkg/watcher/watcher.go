// Package watcher analyzes files dropped into an inbox directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/link-analyzer/pkg/finder"
	"github.com/ritzau/link-analyzer/pkg/logging"
)

// batchWindow groups raw fsnotify events before they reach the debouncer.
const batchWindow = 100 * time.Millisecond

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeWrite ChangeType = iota
	ChangeTypeRemove
)

func (c ChangeType) String() string {
	if c == ChangeTypeRemove {
		return "remove"
	}
	return "write"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches an inbox directory tree for input files
type FileWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan ChangeEvent
}

// NewFileWatcher creates a new file system watcher for an inbox directory
func NewFileWatcher(dir string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start watches the directory and its subdirectories until ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs, err := finder.FindDirs(fw.dir)
	if err != nil {
		return fmt.Errorf("failed to walk inbox: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}

	logging.Info("started watching inbox", "path", fw.dir, "directories", len(dirs))

	go fw.processEvents(ctx)
	return nil
}

// processEvents filters file system events to input files and batches them
// by type.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	var writes, removes []string

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	send := func(t ChangeType, paths []string) bool {
		if len(paths) == 0 {
			return true
		}
		select {
		case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) && fw.addDir(event.Name) {
				continue
			}
			if !finder.IsInput(event.Name) {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				removes = append(removes, event.Name)
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				writes = append(writes, event.Name)
			default:
				continue
			}
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !send(ChangeTypeRemove, removes) || !send(ChangeTypeWrite, writes) {
				fw.watcher.Close()
				return
			}
			writes, removes = nil, nil

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// addDir starts watching a newly created directory and queues the input
// files already inside it.
func (fw *FileWatcher) addDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if finder.Ignored(filepath.Base(path)) {
		return true
	}
	dirs, err := finder.FindDirs(path)
	if err != nil {
		logging.Warn("failed to walk new directory", "path", path, "error", err)
		return true
	}
	for _, dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}
	if files, err := finder.FindInputFiles(path); err == nil && len(files) > 0 {
		select {
		case fw.events <- ChangeEvent{Type: ChangeTypeWrite, Paths: files, Timestamp: time.Now()}:
		default:
			logging.Warn("dropping files from new directory, event queue full", "path", path, "files", len(files))
		}
	}
	return true
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
