package fswatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor drains events until want is seen or the timeout expires.
func waitFor(t *testing.T, w *Watcher, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case p, ok := <-w.Events():
			require.True(t, ok, "event channel closed before %s", want)
			if p == want {
				return
			}
		case <-timeout:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestWatcher_ReportsWrites(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scss"), 0o755))

	w, err := New(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	target := filepath.Join(root, "scss", "main.scss")
	require.NoError(t, os.WriteFile(target, []byte("body {}"), 0o644))

	waitFor(t, w, target)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()

	w, err := New(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	dir := filepath.Join(root, "components", "card")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	target := filepath.Join(dir, "card.scss")
	require.NoError(t, os.WriteFile(target, []byte(".card {}"), 0o644))

	waitFor(t, w, target)
}

func TestWatcher_RelativeRootReportsAbsolutePaths(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join("src", "scss"), 0o755))
	cwd, err := os.Getwd()
	require.NoError(t, err)

	w, err := New("src")
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join("src", "scss", "main.scss"), []byte("body {}"), 0o644))

	waitFor(t, w, filepath.Join(cwd, "src", "scss", "main.scss"))
}

func TestWatcher_CloseClosesChannels(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}

func TestNew_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
