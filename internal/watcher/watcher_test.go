package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/permd/internal/errors"
)

func newWatcher(t *testing.T, roots, ignores []string) *Watcher {
	t.Helper()
	w, err := New(roots, ignores)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// expectEvent waits for at least one event, then drains whatever else
// the burst produced.
func expectEvent(t *testing.T, w *Watcher, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		drain(w)
		return ev
	case <-time.After(timeout):
		t.Fatal("expected a change event, got none")
		return Event{}
	}
}

func drain(w *Watcher) {
	for {
		select {
		case <-w.Events():
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}

func expectNoEvent(t *testing.T, w *Watcher, timeout time.Duration) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event, got one for root %q", ev.Root)
	case <-time.After(timeout):
	}
}

func TestNewFailsOnMissingRoot(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "gone")}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestFileCreationDeliversEvent(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, []string{root}, nil)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("x"), 0o644))

	ev := expectEvent(t, w, 2*time.Second)
	assert.Equal(t, root, ev.Root)
}

func TestChmodDeliversEvent(t *testing.T) {
	root := t.TempDir()
	f := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	w := newWatcher(t, []string{root}, nil)

	require.NoError(t, os.Chmod(f, 0o777))
	expectEvent(t, w, 2*time.Second)
}

func TestNestedDirsAreWatched(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	w := newWatcher(t, []string{root}, nil)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("x"), 0o644))
	expectEvent(t, w, 2*time.Second)
}

func TestNewDirectoriesArePickedUp(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, []string{root}, nil)

	sub := filepath.Join(root, "later")
	require.NoError(t, os.Mkdir(sub, 0o755))
	expectEvent(t, w, 2*time.Second)

	// The new directory got its own watch, so changes inside it are
	// seen too.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "inside.txt"), []byte("x"), 0o644))
	expectEvent(t, w, 2*time.Second)
}

func TestIgnoredTreeDeliversNoEvents(t *testing.T) {
	root := t.TempDir()
	ignored := filepath.Join(root, "ignoreme")
	require.NoError(t, os.Mkdir(ignored, 0o755))

	w := newWatcher(t, []string{root}, []string{ignored})

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "hidden.txt"), []byte("x"), 0o644))
	expectNoEvent(t, w, 500*time.Millisecond)
}

func TestEventsNeverBlockProducer(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, []string{root}, nil)

	// Nobody reads w.Events(); a storm of changes must still not
	// wedge the delivery goroutine.
	for i := 0; i < eventBufferSize*4; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte{byte(i)}, 0o644))
	}

	// The watcher is still alive and delivering.
	drain(w)
	require.NoError(t, os.WriteFile(filepath.Join(root, "after.txt"), []byte("x"), 0o644))
	expectEvent(t, w, 2*time.Second)
}

func TestCloseIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New([]string{root}, nil)
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestUnderRoot(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"root itself", "/a/b", "/a/b", true},
		{"direct child", "/a/b/c", "/a/b", true},
		{"nested", "/a/b/c/d", "/a/b", true},
		{"sibling prefix", "/a/bc", "/a/b", false},
		{"parent", "/a", "/a/b", false},
		{"unrelated", "/x", "/a/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, underRoot(tt.path, tt.root))
		})
	}
}
