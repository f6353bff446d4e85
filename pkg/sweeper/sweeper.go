// Package sweeper enforces the retention policy on the artifact directory:
// runs are bundled into compressed archives, then entries older than the
// retention window are pruned. Pruning never touches a run that failed to
// archive in the same cycle.
package sweeper

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/accesslens/accesslens/pkg/logging"
)

const archiveTimeFormat = "20060102T150405"

// Index is notified when a run's artifact directory has been pruned, so
// listings stop mentioning it.
type Index interface {
	Forget(ctx context.Context, runID string) error
}

// Observer receives a notification after each sweep cycle, successful or not.
type Observer interface {
	SweepCompleted(pruned int, err error)
}

// Config controls the sweep cycle.
type Config struct {
	RunsDir       string
	ArchiveDir    string
	RetentionDays int           // entries older than this are pruned (default 90)
	Interval      time.Duration // periodic sweep interval (default 24h)
}

func (c *Config) applyDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = filepath.Join(filepath.Dir(c.RunsDir), "archive")
	}
}

// Sweeper archives and prunes run artifacts.
type Sweeper struct {
	cfg   Config
	index Index
	log   logging.Logger

	observer Observer
	now      func() time.Time
}

func New(cfg Config, index Index, log logging.Logger) *Sweeper {
	cfg.applyDefaults()
	return &Sweeper{cfg: cfg, index: index, log: logging.OrNop(log), now: time.Now}
}

// SetObserver registers an observer for sweep outcomes. Call before Run.
func (s *Sweeper) SetObserver(o Observer) { s.observer = o }

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			s.log.Error("sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep performs one archive-then-prune cycle. Archive failures are logged
// and exempt the affected run from pruning; they do not abort the cycle.
func (s *Sweeper) Sweep(ctx context.Context) error {
	pruned, err := s.sweep(ctx)
	if s.observer != nil {
		s.observer.SweepCompleted(pruned, err)
	}
	return err
}

func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.cfg.RunsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read runs dir: %w", err)
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			runs = append(runs, e.Name())
		}
	}
	if len(runs) == 0 {
		return 0, nil
	}

	archived, err := s.archive(ctx, runs)
	if err != nil {
		// Without a bundle nothing is provably safe to prune.
		return 0, fmt.Errorf("archive runs: %w", err)
	}

	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	pruned := 0
	for _, runID := range runs {
		if ctx.Err() != nil {
			return pruned, ctx.Err()
		}
		if !archived[runID] {
			s.log.Warn("retention: keeping %s, archive failed this cycle", runID)
			continue
		}
		dir := filepath.Join(s.cfg.RunsDir, runID)
		info, err := os.Stat(dir)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log.Error("retention: remove %s: %v", runID, err)
			continue
		}
		s.log.Info("retention: removed run %s (aged %s)", runID, s.now().Sub(info.ModTime()).Round(time.Hour))
		if s.index != nil {
			if err := s.index.Forget(ctx, runID); err != nil {
				s.log.Warn("retention: forget %s in index: %v", runID, err)
			}
		}
		pruned++
	}
	if pruned > 0 {
		s.log.Info("retention: pruned %d of %d runs", pruned, len(runs))
	}
	return pruned, nil
}

// archive bundles every run directory into a timestamped tar.zst under the
// archive dir and reports which runs made it in. A run that fails to stream
// is skipped so it stays exempt from pruning.
func (s *Sweeper) archive(ctx context.Context, runs []string) (map[string]bool, error) {
	if err := os.MkdirAll(s.cfg.ArchiveDir, 0755); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("runs-%s.tar.zst", s.now().UTC().Format(archiveTimeFormat))
	finalPath := filepath.Join(s.cfg.ArchiveDir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, err
	}
	tw := tar.NewWriter(zw)

	archived := make(map[string]bool, len(runs))
	for _, runID := range runs {
		if err := ctx.Err(); err != nil {
			tw.Close()
			zw.Close()
			f.Close()
			return nil, err
		}
		if err := s.addRun(tw, runID); err != nil {
			s.log.Warn("archive: skipping run %s: %v", runID, err)
			continue
		}
		archived[runID] = true
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		f.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, err
	}

	s.log.Debug("archived %d runs to %s", len(archived), finalPath)
	return archived, nil
}

func (s *Sweeper) addRun(tw *tar.Writer, runID string) error {
	root := filepath.Join(s.cfg.RunsDir, runID)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.cfg.RunsDir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
}
