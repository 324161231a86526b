package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultStoreDebounce coalesces bursts of writes from one CLI command.
const DefaultStoreDebounce = 100 * time.Millisecond

// StoreWatcher signals preference changes written by other processes.
// It watches the data directory for the preference stamp file.
type StoreWatcher struct {
	watcher   *fsnotify.Watcher
	stampPath string
	debounce  time.Duration
	changes   chan struct{}
	logger    *zap.Logger
}

// NewStoreWatcher watches dataDir, creating it if needed.
func NewStoreWatcher(dataDir string, debounce time.Duration, logger *zap.Logger) (*StoreWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultStoreDebounce
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file; the stamp is replaced on every write
	if err := watcher.Add(dataDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dataDir, err)
	}

	return &StoreWatcher{
		watcher:   watcher,
		stampPath: filepath.Join(dataDir, PrefsStampName),
		debounce:  debounce,
		changes:   make(chan struct{}, 1),
		logger:    logger,
	}, nil
}

// Changes delivers at most one pending notification at a time.
func (w *StoreWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Run forwards stamp changes until ctx is cancelled, then closes the watcher.
func (w *StoreWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.stampPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(w.debounce)
			} else {
				debounceTimer.Reset(w.debounce)
			}
			fire = debounceTimer.C

		case <-fire:
			fire = nil
			w.notify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("store watcher error", zap.Error(err))
		}
	}
}

func (w *StoreWatcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
		// One pending notification is enough; the reader reloads everything
	}
}
