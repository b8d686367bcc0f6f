// Package watcher feeds files dropped into an inbox directory to a handler.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called once a new file has stopped changing
type Handler func(path string)

// Inbox watches a directory and calls a handler for files that settle
type Inbox struct {
	dir      string
	accept   func(path string) bool
	debounce time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewInbox watches dir. accept filters paths; nil accepts every regular
// file. Hidden files are always ignored.
func NewInbox(dir string, accept func(string) bool, debounce time.Duration, logger *zap.Logger) (*Inbox, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(absDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absDir, err)
	}

	return &Inbox{
		dir:      absDir,
		accept:   accept,
		debounce: debounce,
		logger:   logger.With(zap.String("component", "watcher"), zap.String("dir", absDir)),
		watcher:  w,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Existing lists accepted files already in the directory, sorted by name
func (in *Inbox) Existing() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		path := filepath.Join(in.dir, e.Name())
		if e.Type().IsRegular() && in.wants(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (in *Inbox) wants(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return in.accept == nil || in.accept(path)
}

// Run delivers settled files to handle until ctx is done. Pending
// callbacks are cancelled; callbacks already running are waited for.
func (in *Inbox) Run(ctx context.Context, handle Handler) error {
	defer in.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return in.watcher.Close()

		case event, ok := <-in.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && in.wants(event.Name) {
				in.schedule(event.Name, handle)
			}

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule restarts the debounce timer for path
func (in *Inbox) schedule(path string, handle Handler) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if timer, exists := in.timers[path]; exists {
		if timer.Stop() {
			in.wg.Done()
		}
	}

	in.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(in.debounce, func() {
		defer in.wg.Done()
		in.mu.Lock()
		if in.timers[path] == timer {
			delete(in.timers, path)
		}
		in.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		in.logger.Debug("file settled", zap.String("path", path))
		handle(path)
	})
	in.timers[path] = timer
}

func (in *Inbox) stopTimers() {
	in.mu.Lock()
	for path, timer := range in.timers {
		if timer.Stop() {
			in.wg.Done()
		}
		delete(in.timers, path)
	}
	in.mu.Unlock()
	in.wg.Wait()
}
