package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/morozRed/ustgen/internal/ignore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func onlySources(rel string) bool {
	return strings.HasSuffix(rel, ".cs") || strings.HasSuffix(rel, ".java")
}

// startWatcher runs w in the background and returns the batch channel and
// a function that stops the watcher and waits for Run to return.
func startWatcher(t *testing.T, w *Watcher) (<-chan []string, func()) {
	t.Helper()
	batches := make(chan []string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan error, 1)
	go func() {
		finished <- w.Run(ctx, func(_ context.Context, files []string) error {
			batches <- files
			return nil
		})
	}()

	var once bool
	stop := func() {
		if once {
			return
		}
		once = true
		cancel()
		require.NoError(t, w.Stop())
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return")
		}
	}
	t.Cleanup(stop)
	return batches, stop
}

func waitForBatch(ch <-chan []string, timeout time.Duration) ([]string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return nil, false
	}
}

func TestWatcherBatchesSourceChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	file := filepath.Join(dir, "src", "Program.cs")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))

	w, err := New(dir, ignore.NewMatcher(nil), Options{Accept: onlySources, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	batches, _ := startWatcher(t, w)

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("class A { int x; }"), 0644))
	}

	batch, ok := waitForBatch(batches, 2*time.Second)
	require.True(t, ok, "expected a batch for the edited file")
	assert.Equal(t, []string{"src/Program.cs"}, batch)
}

func TestWatcherSkipsIgnoredAndUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0755))

	w, err := New(dir, ignore.NewMatcher(nil), Options{Accept: onlySources, Debounce: 30 * time.Millisecond})
	require.NoError(t, err)
	batches, _ := startWatcher(t, w)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "Gen.cs"), []byte("class G {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Main.java"), []byte("class Main {}"), 0644))

	batch, ok := waitForBatch(batches, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, []string{"Main.java"}, batch)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, nil, Options{Accept: onlySources, Debounce: 30 * time.Millisecond})
	require.NoError(t, err)
	batches, _ := startWatcher(t, w)

	time.Sleep(50 * time.Millisecond)
	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(sub, 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "Util.cs"), []byte("class U {}"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case batch := <-batches:
			if assert.NotEmpty(t, batch) && batch[len(batch)-1] == "lib/Util.cs" {
				return
			}
		case <-deadline:
			t.Fatal("expected a batch for lib/Util.cs")
		}
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil, Options{})
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	err = w.Run(context.Background(), func(context.Context, []string) error { return nil })
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestWatcherRunHonorsContext(t *testing.T) {
	w, err := New(t.TempDir(), nil, Options{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = w.Run(ctx, func(context.Context, []string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
