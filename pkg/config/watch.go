package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDuration is how long Watch waits after the last event before reloading.
const DebounceDuration = 100 * time.Millisecond

// Watch reloads path whenever it changes and passes each valid result to
// onChange. Load or validation failures go to onErr and the previous
// settings stay in effect. The parent directory is watched so editors that
// replace the file by rename are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config), onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	debounce := newDebounceTimer()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			resetDebounceTimer(debounce)

		case <-debounce.C:
			cfg, err := Load(path)
			if err == nil {
				err = cfg.ApplyEnv().Validate()
			}
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			onChange(cfg.ApplyEnv())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(fmt.Errorf("watcher: %w", err))
			}
		}
	}
}

// newDebounceTimer creates a stopped, drained timer.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(DebounceDuration)
}
