package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it is written, created or renamed
// into place and hands the result to onChange. It blocks until ctx is done.
// The directory is watched rather than the file so editors that replace the
// file atomically are still observed.
func Watch(ctx context.Context, cfg Config, onChange func(Config), onError func(error)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new config watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(cfg.DataDir); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Clean(cfg.ConfigPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			next, err := Load(cfg.DataDir)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onChange != nil {
				onChange(next)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
