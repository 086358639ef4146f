package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDeliversJSONFiles(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 4)
	w := NewWatcher(dir, 50*time.Millisecond, func(_ context.Context, path string, raw []byte, _ time.Time) {
		got <- filepath.Base(path) + "=" + string(raw)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.json"), []byte(`{"m":{}}`), 0o644))

	select {
	case msg := <-got:
		assert.Equal(t, `feed.json={"m":{}}`, msg)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not deliver the file")
	}
	select {
	case msg := <-got:
		t.Fatalf("unexpected delivery %s", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherRequiresHandler(t *testing.T) {
	assert.Error(t, NewWatcher(t.TempDir(), 0, nil).Run(context.Background()))
}
