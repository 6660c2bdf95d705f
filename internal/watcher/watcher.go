// Package watcher delivers change notifications for the watched
// directory trees. Events carry no payload guarantees beyond
// "something changed near this root"; consumers must treat them as
// wake-up signals, not as a change log.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jontk/permd/internal/errors"
	"github.com/jontk/permd/internal/logging"
)

// eventBufferSize is the capacity of the handoff channel between the
// fsnotify delivery goroutine and the scheduler. The scheduler
// coalesces anyway, so dropped events while the buffer is full are
// harmless; blocking the delivery goroutine is not.
const eventBufferSize = 64

// Event signals that something changed under a watched tree. Root is
// the watch root the change was attributed to, or empty when the
// path could not be matched to one.
type Event struct {
	Root string
}

// Watcher watches a set of directory trees recursively. fsnotify
// watches single directories, so every subdirectory is registered at
// install time and newly created directories are added as their
// Create events arrive.
type Watcher struct {
	fsw     *fsnotify.Watcher
	roots   []string
	ignores []string
	events  chan Event

	mu     sync.Mutex
	closed bool
}

// New installs recursive watches on each root, skipping ignore roots,
// and starts delivering events. Failure to watch any root is returned
// as an error; the daemon treats that as fatal at startup.
func New(roots, ignoreDirs []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeWatch, "failed to create file watcher")
	}

	w := &Watcher{
		fsw:     fsw,
		roots:   append([]string(nil), roots...),
		ignores: cleanAll(ignoreDirs),
		events:  make(chan Event, eventBufferSize),
	}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			_ = fsw.Close()
			if os.IsNotExist(err) {
				return nil, errors.MissingRoot(root)
			}
			return nil, errors.WatchRoot(root, err)
		}
		logging.Infof("watching directory %s", root)
	}

	go w.run()

	return w, nil
}

// Events returns the channel change notifications are delivered on.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops watching. The events channel is closed after the
// delivery goroutine drains.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

// addRecursive registers path and every directory below it, skipping
// ignored trees.
func (w *Watcher) addRecursive(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			logging.Warnf("cannot watch %s: %v", p, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			if p == path {
				return err
			}
			logging.Warnf("cannot watch %s: %v", p, err)
		}
		return nil
	})
}

// run pumps fsnotify events into the handoff channel until the
// underlying watcher closes.
func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WithError(err).Warn().Msg("file watcher error")
		}
	}
}

// handle attributes an fsnotify event to a root and forwards it
// without ever blocking the delivery path.
func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	// New directories need their own watch before changes inside
	// them can be seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logging.Warnf("cannot watch new directory %s: %v", event.Name, err)
			}
		}
	}

	logging.Debugf("file system event: %s %s", event.Op, event.Name)

	select {
	case w.events <- Event{Root: w.rootFor(event.Name)}:
	default:
		// Consumer is behind; the pending notification already
		// guarantees a pass, so this one is redundant.
	}
}

// rootFor returns the watch root containing path, or "".
func (w *Watcher) rootFor(path string) string {
	cleaned := filepath.Clean(path)
	for _, root := range w.roots {
		if underRoot(cleaned, filepath.Clean(root)) {
			return root
		}
	}
	return ""
}

func (w *Watcher) ignored(path string) bool {
	cleaned := filepath.Clean(path)
	for _, ignore := range w.ignores {
		if underRoot(cleaned, ignore) {
			return true
		}
	}
	return false
}

// underRoot reports whether path sits at or below root, comparing
// whole path components.
func underRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func cleanAll(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned = append(cleaned, filepath.Clean(p))
	}
	return cleaned
}
