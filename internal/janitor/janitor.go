// Package janitor keeps the output directory under a size quota by deleting
// the least recently modified files first.
package janitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recorder receives sweep results, typically the metrics collector
type Recorder interface {
	RecordSweep(files int, bytes, remaining int64)
}

// Result describes one sweep
type Result struct {
	Removed        int
	FreedBytes     int64
	RemainingBytes int64
}

// Janitor sweeps one directory. It shares nothing with the pipeline but the
// file system, and tolerates files disappearing under it.
type Janitor struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
	recorder Recorder
}

// New creates a janitor for dir. maxBytes <= 0 disables eviction.
func New(dir string, maxBytes int64, logger *zap.Logger, recorder Recorder) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("component", "janitor")),
		recorder: recorder,
	}
}

type entry struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep deletes the oldest files until the directory is within quota.
// Hidden files, such as in-flight temporary writes, are never touched.
func (j *Janitor) Sweep() (Result, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	var files []entry
	var total int64
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		files = append(files, entry{
			path:    filepath.Join(j.dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}

	result := Result{RemainingBytes: total}
	if j.maxBytes > 0 && total > j.maxBytes {
		sort.SliceStable(files, func(a, b int) bool {
			if !files[a].modTime.Equal(files[b].modTime) {
				return files[a].modTime.Before(files[b].modTime)
			}
			return files[a].path < files[b].path
		})

		for _, f := range files {
			if result.RemainingBytes <= j.maxBytes {
				break
			}
			err := os.Remove(f.path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				j.logger.Warn("failed to remove file", zap.String("path", f.path), zap.Error(err))
				continue
			}
			result.RemainingBytes -= f.size
			if err == nil {
				result.Removed++
				result.FreedBytes += f.size
			}
		}
		j.logger.Info("storage quota enforced",
			zap.Int("removed", result.Removed),
			zap.Int64("freed_bytes", result.FreedBytes),
			zap.Int64("remaining_bytes", result.RemainingBytes))
	}

	if j.recorder != nil {
		j.recorder.RecordSweep(result.Removed, result.FreedBytes, result.RemainingBytes)
	}
	return result, nil
}

// Run sweeps immediately and then every interval until ctx is done
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := j.Sweep(); err != nil {
			j.logger.Warn("storage sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
