package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

// WatchConfig tunes a Watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before reloading.
	// It is also the delay between reload attempts.
	Debounce time.Duration
	// Attempts is how many times a failing reload is tried.
	Attempts uint
}

// Watcher watches the catalog for changes and triggers a reload callback.
// A failing reload, typically a file caught mid-write, is retried.
type Watcher struct {
	cfg      WatchConfig
	logger   ports.Logger
	watcher  *fsnotify.Watcher
	onReload func() error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a file watcher for rootDir and all its sub-directories.
func NewWatcher(rootDir string, cfg WatchConfig, logger ports.Logger, onReload func() error) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:      cfg,
		logger:   logger,
		watcher:  fsWatcher,
		onReload: onReload,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := w.addRecursive(rootDir); err != nil {
		cancel()
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher and waits for a running reload to finish.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !isCatalogFile(event.Name) {
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(event.Name)
					}
				}
				continue
			}

			w.logger.Debug("file change detected", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.cfg.Debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timerC:
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("reloading catalog due to file changes")

	err := retry.Do(w.onReload,
		retry.Context(w.ctx),
		retry.Attempts(w.cfg.Attempts),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(w.cfg.Debounce),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("catalog reload failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous catalog", "error", err)
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// isCatalogFile reports whether a change to name can affect the catalog:
// definition files and JSON data buckets. Hidden files, including the
// temp files of atomic writes, are ignored.
func isCatalogFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
