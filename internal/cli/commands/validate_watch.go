package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipWatchDirs are never watched: build output and dependency caches.
var skipWatchDirs = map[string]bool{
	"target":       true,
	"logs":         true,
	"dbt_packages": true,
	"node_modules": true,
	"__pycache__":  true,
}

// watchAndValidate calls validate after YAML files under root change,
// waiting for debounce of quiet first. It returns when ctx is done or
// validate returns an error.
func watchAndValidate(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, validate func(context.Context) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := addWatchDirs(w, root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchDirs(w, ev.Name)
				}
			}
			if !isSemanticFile(ev.Name) {
				continue
			}
			logger.Debug("semantic file changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := validate(ctx); err != nil {
				return err
			}
		}
	}
}

// addWatchDirs watches root and every directory below it, skipping hidden
// and generated directories.
func addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipWatchDirs[name]) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isSemanticFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
