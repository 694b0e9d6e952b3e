package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch reloads the configuration each time the config file changes and
// passes it to onChange. It blocks until ctx is done.
func Watch(ctx context.Context, onChange func(Config)) error {
	return watchPath(ctx, configFilePath(), onChange)
}

func watchPath(ctx context.Context, path string, onChange func(Config)) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	// Editors replace the file on save, so watch the directory.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			debounce = time.After(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "[WARN] config watcher: %v\n", err)

		case <-debounce:
			debounce = nil
			cfg, err := loadWith(newFileBackend(path))
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] reloading config %s: %v. Keeping previous values.\n", path, err)
				continue
			}
			onChange(cfg)
		}
	}
}
