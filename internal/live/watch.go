// Package live refreshes the pipeline when the Messages store changes on
// disk. The store directory is watched rather than the file: the database
// is rewritten via WAL side files, so events arrive for chat.db-wal and
// chat.db-shm as often as for chat.db itself.
package live

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of filesystem events a single incoming
// message produces.
const DefaultDebounce = 2 * time.Second

// Watch blocks watching the chat.db directory, invoking onChange after each
// debounced burst of store writes. onChange also runs once at startup.
// Returns when ctx is cancelled or the watcher fails.
func Watch(ctx context.Context, chatDBPath string, debounce time.Duration, onChange func(), logf func(format string, args ...any)) error {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(chatDBPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	logf("Watching for message store changes in %s (debounce: %s)", dir, debounce)

	logf("[%s] Running initial refresh...", time.Now().Format("15:04:05"))
	onChange()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	base := filepath.Base(chatDBPath)
	trigger := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounce, onChange)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.Contains(filepath.Base(event.Name), base) {
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("watch error: %v", err)
		}
	}
}
