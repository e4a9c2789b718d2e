package session

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"storefront/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the session when the persisted slot changes on disk, so a
// `shop logout` in another terminal is reflected in a running UI.
// It watches the slot's directory because stores replace the file atomically.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	session     *Session
	dir         string
	base        string
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(s *Session, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		session:     s,
		dir:         filepath.Dir(path),
		base:        filepath.Base(path),
		debounceDur: 100 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking and idempotent.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.SessionDebug("Watcher: watching %s for %s", w.dir, w.base)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var pending <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			// Debounce bursts: sqlite touches the db and its journal per write.
			if timer == nil {
				timer = time.NewTimer(w.debounceDur)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounceDur)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := w.session.Reload(ctx); err != nil {
				logging.Get(logging.CategorySession).Warn("Watcher: reload failed: %v", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategorySession).Warn("Watcher error: %v", err)
		}
	}
}

// relevant matches the slot file and its sqlite companions (-journal, -wal).
func (w *Watcher) relevant(name string) bool {
	return strings.HasPrefix(filepath.Base(name), w.base)
}
