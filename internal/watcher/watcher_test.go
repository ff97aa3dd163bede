package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, target string, onDelete func()) context.CancelFunc {
	t.Helper()

	w, err := New(target, onDelete)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Serve(ctx) }()

	// Give the watch a moment to establish before mutating the dir.
	time.Sleep(50 * time.Millisecond)
	return cancel
}

func TestWatcher_FiresOnDeletion(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vigil.db")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0600))

	fired := make(chan struct{})
	cancel := startWatcher(t, target, func() { close(fired) })
	defer cancel()

	require.NoError(t, os.Remove(target))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("deletion callback never fired")
	}
}

func TestWatcher_AtomicReplaceDoesNotFire(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vigil.db")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0600))

	fired := make(chan struct{}, 1)
	cancel := startWatcher(t, target, func() { fired <- struct{}{} })
	defer cancel()

	// Remove and immediately recreate, as an atomic swap would.
	require.NoError(t, os.Remove(target))
	require.NoError(t, os.WriteFile(target, []byte("y"), 0600))

	select {
	case <-fired:
		t.Fatal("replace fired the deletion callback")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vigil.db")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0600))

	fired := make(chan struct{}, 1)
	cancel := startWatcher(t, target, func() { fired <- struct{}{} })
	defer cancel()

	require.NoError(t, os.Remove(other))

	select {
	case <-fired:
		t.Fatal("unrelated deletion fired the callback")
	case <-time.After(500 * time.Millisecond):
	}
}
