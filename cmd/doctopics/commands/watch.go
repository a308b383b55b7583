package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
)

// watch compiles once and then recompiles the whole catalog after file
// changes settle, until ctx is done.
func (c *CompileCmd) watch(ctx context.Context, out io.Writer, cfg *config.Config) error {
	root, err := catalog.Find(c.Catalog)
	if err != nil {
		return err
	}
	watcher, err := setupFileWatcher(append([]string{root}, cfg.Compile.SymbolGraphDirs...))
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	c.recompile(ctx, out, cfg)

	rebuildReq, trigger := setupRebuildDebouncer(cfg.Compile.Debounce())
	slog.Info("Watching catalog for changes", "path", root, "debounce", cfg.Compile.Debounce())
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watch")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		case <-rebuildReq:
			slog.Info("Change detected; recompiling catalog")
			c.recompile(ctx, out, cfg)
		}
	}
}

func (c *CompileCmd) recompile(ctx context.Context, out io.Writer, cfg *config.Config) {
	if _, err := c.compileOnce(ctx, out, cfg); err != nil {
		slog.Warn("Compilation failed", "error", err)
	}
}

// setupFileWatcher creates a watcher over every directory below roots.
func setupFileWatcher(roots []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for _, root := range roots {
		if err := addDirsRecursive(watcher, root); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}
	return watcher, nil
}

// setupRebuildDebouncer returns the rebuild channel and a trigger that fires
// it once no further trigger arrived for delay.
func setupRebuildDebouncer(delay time.Duration) (<-chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent reports hidden and editor temp files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") {
		return true
	}
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp")
}
