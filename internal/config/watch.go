package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes on disk and invokes onReload with
// the freshly loaded Config. It runs until ctx-equivalent stop is closed.
// Editors often replace a file rather than writing it in place, so both
// Write and Create/Rename events trigger a reload.
func Watch(path string, logger *slog.Logger, onReload func(*Config), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Error("config reload failed, keeping previous configuration", slog.String("error", err.Error()))
					continue
				}
				logger.Info("configuration reloaded", slog.String("path", path))
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
