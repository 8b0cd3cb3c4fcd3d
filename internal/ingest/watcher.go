package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots    []string      // directories to watch (recursive)
	Debounce time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits PDF paths created or written under the roots. Hidden directories are not
// watched, so files parked in .done or .failed never re-enter.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && IsHidden(path) {
				return filepath.SkipDir
			}
			return w.Add(path)
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close", "error", err)
			}
		}()

		// Debounce fires on a single timer channel owned by this goroutine.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var fire <-chan time.Time

		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) && !IsHidden(e.Name) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
					}
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name)) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Run scans the inbox once, then ingests files as they arrive until ctx is done. Every rescan
// interval the whole inbox is walked again so deferred files are retried; zero disables it.
// The watcher starts before the scan so nothing dropped in between is missed.
func (i *Inbox) Run(ctx context.Context, debounce, rescan time.Duration) error {
	events, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{i.root}, Debounce: debounce}, i.logger)
	if err != nil {
		return err
	}
	scan := func() {
		if _, _, err := i.IngestDirectory(ctx); err != nil && ctx.Err() == nil {
			i.logger.Warn("inbox scan", "error", err)
		}
	}
	scan()

	var tick <-chan time.Time
	if rescan > 0 {
		ticker := time.NewTicker(rescan)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			scan()
		case p, ok := <-events:
			if !ok {
				return nil
			}
			_, _ = i.IngestPath(ctx, p)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			i.logger.Warn("inbox watcher", "error", err)
		}
	}
}
