// Package filewatch tells open tabs when their file changes on disk, so
// the externally-modified check only runs when something happened.
package filewatch

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/signal"
)

// Target is what gets told about changes. *tab.Tab implements it.
type Target interface {
	SetWatched(watched bool)
	NotifyChangedOnDisk()
}

// DefaultDebounce collapses the burst of events one save produces
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches the directories of open files. Watch, Unwatch and the
// Changed signal belong to the loop goroutine; fsnotify events arrive on
// their own goroutine and are posted back to the loop.
type Watcher struct {
	sched    loop.Scheduler
	watcher  *fsnotify.Watcher
	debounce time.Duration

	// targets and dirs are only touched on the loop
	targets map[string][]Target
	dirs    map[string]int

	mu      sync.Mutex
	pending map[string]*time.Timer
	stop    chan struct{}
	stopped bool

	// Changed fires on the loop with the path after its targets were told
	Changed signal.Signal[string]
}

// New creates a watcher that delivers notifications through sched
func New(sched loop.Scheduler) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		sched:    sched,
		watcher:  w,
		debounce: DefaultDebounce,
		targets:  make(map[string][]Target),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before a change is reported
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Start begins delivering events
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops watching and cleans up resources
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.stop)
	w.watcher.Close()
	log.Printf("SCRIBE Watcher: Stopped")
}

// Watch reports changes of path to t. The file itself may not exist yet.
func (w *Watcher) Watch(path string, t Target) error {
	path = clean(path)
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			log.Printf("SCRIBE Watcher: Failed to watch %s: %v", dir, err)
			return err
		}
		log.Printf("SCRIBE Watcher: Watching %s", dir)
	}
	w.dirs[dir]++
	w.targets[path] = append(w.targets[path], t)
	t.SetWatched(true)
	return nil
}

// Unwatch undoes one Watch call
func (w *Watcher) Unwatch(path string, t Target) {
	path = clean(path)
	list := w.targets[path]
	found := false
	for i, x := range list {
		if x == t {
			list = append(list[:i], list[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	if len(list) == 0 {
		delete(w.targets, path)
	} else {
		w.targets[path] = list
	}
	t.SetWatched(false)

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if err := w.watcher.Remove(dir); err != nil {
			log.Printf("SCRIBE Watcher: Failed to unwatch %s: %v", dir, err)
		}
	}
}

// Watched reports whether any target is registered for path
func (w *Watcher) Watched(path string) bool {
	return len(w.targets[clean(path)]) > 0
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("SCRIBE Watcher: Error: %v", err)
		}
	}
}

// schedule restarts the debounce timer of path
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			w.sched.Post(func() { w.deliver(path) })
		}
	})
}

// deliver runs on the loop
func (w *Watcher) deliver(path string) {
	list := w.targets[path]
	if len(list) == 0 {
		return
	}
	log.Printf("SCRIBE Watcher: %s changed on disk", path)
	for _, t := range list {
		t.NotifyChangedOnDisk()
	}
	w.Changed.Emit(path)
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
