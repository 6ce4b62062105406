// Package watcher reports files appearing, disappearing, moving and being
// rewritten in place in a task directory. It is a thin, restartable stream over fsnotify: each Start opens a
// fresh handle and a fresh event channel, and Stop tears both down.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taskgen/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ErrUnavailable means the platform watcher could not be set up. Callers keep
// working without live listing refresh.
var ErrUnavailable = errors.New("directory watching unavailable")

// Kind classifies a change.
type Kind int

const (
	Created Kind = iota + 1
	Deleted
	Moved
	Modified
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is one change inside the watched directory.
// For Moved, DestPath is empty: the new name arrives as its own Created event.
type Event struct {
	Kind     Kind
	Path     string
	DestPath string
}

// Name returns the base name of the affected path.
func (e Event) Name() string {
	return filepath.Base(e.Path)
}

// Stats tracks watcher activity.
type Stats struct {
	Created       int
	Deleted       int
	Moved         int
	Modified      int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventKind Kind
}

// Watcher watches one directory, non-recursively.
type Watcher struct {
	mu      sync.RWMutex
	dir     string
	suffix  string
	buffer  int
	fsw     *fsnotify.Watcher
	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	// run loop only takes statsMu; Stop holds mu while waiting for it.
	statsMu sync.Mutex
	stats   Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSuffix only reports names ending in suffix (case-insensitive).
func WithSuffix(suffix string) Option {
	return func(w *Watcher) { w.suffix = strings.ToLower(suffix) }
}

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n >= 0 {
			w.buffer = n
		}
	}
}

// New creates a stopped watcher for dir.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, buffer: 16}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start opens the platform watcher and begins delivering events. Calling Start
// on a running watcher is a no-op. A run that ended because ctx was cancelled
// is cleaned up first, so Start can always be retried.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		select {
		case <-w.doneCh:
			w.teardownLocked()
		default:
			return nil
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.WatcherError("init failed: %v", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		logging.WatcherError("watch %s failed: %v", w.dir, err)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, w.dir, err)
	}

	w.fsw = fsw
	w.events = make(chan Event, w.buffer)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.run(ctx, fsw, w.events, w.stopCh, w.doneCh)
	logging.Watcher("watching %s", w.dir)
	return nil
}

// Stop ends the current run, waits for the loop to exit and releases the
// handle. It is safe to call repeatedly or on a watcher never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.teardownLocked()
	logging.Watcher("stopped")
}

func (w *Watcher) teardownLocked() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		logging.WatcherError("close: %v", err)
	}
	w.fsw = nil
	w.running = false
}

// Events returns the channel of the current run. It is closed when the run
// stops; after a restart, call Events again. Before the first Start it is nil.
func (w *Watcher) Events() <-chan Event {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.events
}

// IsWatching reports whether a run is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.running {
		return false
	}
	select {
	case <-w.doneCh:
		return false
	default:
		return true
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// ResetStats zeroes the activity counters.
func (w *Watcher) ResetStats() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats = Stats{}
}

// run only touches the handles passed in, never the fields, so a later Start
// cannot race with a loop that is still draining.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event, stopCh, doneCh chan struct{}) {
	defer close(out)
	defer close(doneCh)

	for {
		select {
		case <-ctx.Done():
			logging.WatcherDebug("context cancelled")
			return

		case <-stopCh:
			return

		case fe, ok := <-fsw.Events:
			if !ok {
				return
			}
			ev, ok := w.translate(fe)
			if !ok {
				continue
			}
			w.record(ev)
			select {
			case out <- ev:
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.WatcherError("fsnotify: %v", err)
			w.statsMu.Lock()
			w.stats.Errors++
			w.statsMu.Unlock()
		}
	}
}

// translate maps an fsnotify event to an Event. Chmods, directories, hidden
// names and names without the configured suffix are dropped. A write to an
// existing file becomes Modified; one save usually yields several.
func (w *Watcher) translate(fe fsnotify.Event) (Event, bool) {
	if strings.HasPrefix(filepath.Base(fe.Name), ".") {
		return Event{}, false
	}
	if w.suffix != "" && !strings.HasSuffix(strings.ToLower(fe.Name), w.suffix) {
		return Event{}, false
	}

	var kind Kind
	switch {
	case fe.Op&fsnotify.Create != 0:
		if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
			return Event{}, false
		}
		kind = Created
	case fe.Op&fsnotify.Remove != 0:
		kind = Deleted
	case fe.Op&fsnotify.Rename != 0:
		kind = Moved
	case fe.Op&fsnotify.Write != 0:
		kind = Modified
	default:
		return Event{}, false
	}

	logging.WatcherDebug("%s %s", kind, fe.Name)
	return Event{Kind: kind, Path: fe.Name}, true
}

func (w *Watcher) record(ev Event) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = ev.Path
	w.stats.LastEventKind = ev.Kind
	switch ev.Kind {
	case Created:
		w.stats.Created++
	case Deleted:
		w.stats.Deleted++
	case Moved:
		w.stats.Moved++
	case Modified:
		w.stats.Modified++
	}
}
