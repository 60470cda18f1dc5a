// Package watcher re-runs work when watched files change.
//
// It backs apply --watch: the manifest's directory is watched with fsnotify,
// bursts of events for the same file are debounced into a single
// notification, and the callback runs on the caller's goroutine so that two
// reconciliations never overlap.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"alpaca/pkg/logging"
)

// DefaultDebounce is used when New is given a zero interval.
const DefaultDebounce = 500 * time.Millisecond

// Operation describes what happened to a file.
type Operation string

const (
	OperationWrite  Operation = "write"
	OperationRemove Operation = "remove"
)

// Event is a debounced change of one watched file.
type Event struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher watches individual files for changes.
type Watcher struct {
	mu sync.Mutex

	debounce time.Duration
	files    map[string]bool
	dirs     map[string]bool
	pending  map[string]*pendingEvent
	fired    chan Event
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New creates a watcher with the given debounce interval.
func New(debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*pendingEvent),
		fired:    make(chan Event, 16),
	}
}

// Add registers a file. Its directory is watched rather than the file
// itself, so editors that replace the file on save are followed.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[abs] = true
	w.dirs[filepath.Dir(abs)] = true
	return nil
}

// Run watches until ctx is cancelled and calls fn for every debounced
// event. fn is never called concurrently.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	w.mu.Lock()
	if len(w.files) == 0 {
		w.mu.Unlock()
		return errors.New("no files to watch")
	}
	for dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			w.mu.Unlock()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Debug("Watcher", "Watching directory: %s", dir)
	}
	w.mu.Unlock()
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher", err, "File watcher error")

		case ev := <-w.fired:
			logging.Debug("Watcher", "Change detected: %s %s", ev.Operation, ev.Path)
			fn(ev)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	watched := w.files[path]
	w.mu.Unlock()
	if !watched {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		op = OperationWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A replacing save shows up as rename or remove followed by create.
		op = OperationRemove
	default:
		return
	}
	w.schedule(Event{Path: path, Operation: op, Timestamp: time.Now()})
}

// schedule debounces events per file. The last operation of a burst wins.
func (w *Watcher) schedule(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[ev.Path]; ok {
		p.timer.Stop()
	}
	p := &pendingEvent{event: ev}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		current, ok := w.pending[ev.Path]
		if ok && current == p {
			delete(w.pending, ev.Path)
		}
		w.mu.Unlock()
		if !ok || current != p {
			return
		}
		select {
		case w.fired <- p.event:
		default:
			logging.Warn("Watcher", "Event queue full, dropping change of %s", p.event.Path)
		}
	})
	w.pending[ev.Path] = p
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingEvent)
}
