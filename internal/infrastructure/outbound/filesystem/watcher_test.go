package filesystem_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/mockdeck/internal/testutil"
)

func startWatcher(t *testing.T, dir string, attempts uint, onReload func() error) {
	t.Helper()
	w, err := filesystem.NewWatcher(dir, filesystem.WatchConfig{Debounce: 100 * time.Millisecond, Attempts: attempts}, &testutil.NoopLogger{}, onReload)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(w.Stop)
	w.Start()
}

func countingReload(n *atomic.Int32) func() error {
	return func() error {
		n.Add(1)
		return nil
	}
}

func TestWatcher_ReloadsOnCatalogChanges(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"definition", "users/get.yaml"},
		{"yml definition", "get.yml"},
		{"data bucket", "users/_data/users.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, filepath.FromSlash(tt.file))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				t.Fatal(err)
			}

			var reloads atomic.Int32
			startWatcher(t, dir, 1, countingReload(&reloads))

			if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			time.Sleep(500 * time.Millisecond)

			if reloads.Load() < 1 {
				t.Error("expected at least one reload")
			}
		})
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	startWatcher(t, dir, 1, countingReload(&reloads))

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644)
	os.WriteFile(filepath.Join(dir, ".mockdeck-123.yaml"), []byte("id: tmp"), 0o644)

	time.Sleep(500 * time.Millisecond)

	if reloads.Load() != 0 {
		t.Errorf("expected no reload, got %d", reloads.Load())
	}
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	startWatcher(t, dir, 1, countingReload(&reloads))

	for i := range 5 {
		os.WriteFile(filepath.Join(dir, "burst.yaml"), []byte("id: "+string(rune('a'+i))), 0o644)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if count := reloads.Load(); count < 1 || count > 2 {
		t.Errorf("expected 1-2 reloads (debounced), got %d", count)
	}
}

func TestWatcher_RetriesFailingReload(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	startWatcher(t, dir, 3, func() error {
		if calls.Add(1) < 3 {
			return errors.New("partial write")
		}
		return nil
	})

	os.WriteFile(filepath.Join(dir, "flaky.yaml"), []byte("id: flaky"), 0o644)

	time.Sleep(800 * time.Millisecond)

	if got := calls.Load(); got < 3 {
		t.Errorf("expected at least 3 reload attempts, got %d", got)
	}
}
