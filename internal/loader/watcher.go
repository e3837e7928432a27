package loader

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a single manifest file for writes, debouncing rapid
// successive edits (an editor's save-then-fsync, or rsync's rename dance)
// into one reload signal.
type Watcher struct {
	Path    string
	Changed <-chan struct{}

	changed  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the manifest at path. Start must be
// called to begin watching.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	w := &Watcher{
		Path:    path,
		Changed: ch,
		changed: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching the manifest's parent directory (fsnotify cannot
// watch a single file reliably across editors that replace it via
// rename, so the directory is watched and events are filtered by path).
func (w *Watcher) Start(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.watcher.Close()
		<-w.done
		close(w.changed)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	const debounce = 150 * time.Millisecond
	var pending bool
	var lastEvent time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.emit()
				}
				return
			}
			if event.Name != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = true
				lastEvent = time.Now()
			}

		case now, ok := <-ticker.C:
			if !ok {
				return
			}
			if pending && now.Sub(lastEvent) >= debounce {
				w.emit()
				pending = false
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// emit is a non-blocking send: a pending unread signal already means
// "reload", so a duplicate send while one is buffered is dropped safely.
func (w *Watcher) emit() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
