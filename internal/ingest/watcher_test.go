package ingest_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ingest/internal/ingest"
)

func collectEvents(t *testing.T, events <-chan string, want int, timeout time.Duration) map[string]struct{} {
	t.Helper()

	seen := map[string]struct{}{}
	deadline := time.After(timeout)
	for len(seen) < want {
		select {
		case path, ok := <-events:
			if !ok {
				return seen
			}
			seen[path] = struct{}{}
		case <-deadline:
			return seen
		}
	}
	return seen
}

func TestStartWatcher_InitialScanEmitsExistingPDFs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), []byte("%PDF"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.pdf"), []byte("%PDF"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        root,
		InitialScan: true,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	seen := collectEvents(t, events, 2, 2*time.Second)
	assert.Contains(t, seen, filepath.Join(root, "a.pdf"))
	assert.Contains(t, seen, filepath.Join(root, "b.pdf"))
	assert.NotContains(t, seen, filepath.Join(root, "notes.txt"))
}

// A burst of drops against a short debounce window exercises the flush and
// the event loop at the same time; run under -race this must stay clean and
// every file must still come through.
func TestStartWatcher_BurstOfDropsWithDebounce(t *testing.T) {
	t.Parallel()

	const fileCount = 200

	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:     root,
		Debounce: time.Millisecond,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	done := make(chan map[string]struct{}, 1)
	go func() {
		done <- collectEvents(t, events, fileCount, 10*time.Second)
	}()

	for i := 0; i < fileCount; i++ {
		name := filepath.Join(root, fmt.Sprintf("invoice-%03d.pdf", i))
		require.NoError(t, os.WriteFile(name, []byte("%PDF"), 0644))
	}

	seen := <-done
	assert.Len(t, seen, fileCount)
}

func TestStartWatcher_MissingRoot(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Root: ""}, slog.New(slog.DiscardHandler))
	require.Error(t, err)

	_, _, err = ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root: filepath.Join(t.TempDir(), "does-not-exist"),
	}, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}
