package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
)

// IngestDirectory walks the inbox in lexical order, skipping hidden entries, and calls IngestPath
// for each PDF. Files in one regulation folder therefore become versions in name order.
func (i *Inbox) IngestDirectory(ctx context.Context) ([]FileResult, DirStats, error) {
	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(i.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == i.root {
			return walkErr
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		results = append(results, r)
		switch {
		case r.Deferred:
			stats.Deferred++
			return nil
		case err != nil:
			stats.Failed++
			return nil
		}
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("inbox scan complete",
		"root", i.root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deferred", stats.Deferred,
	)
	return results, stats, nil
}
