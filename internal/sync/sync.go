package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"stagesync/internal/config"
	"stagesync/internal/scan"
)

// Engine orchestrates the staging process
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
	dryRun bool
}

// NewEngine creates a new staging engine
func NewEngine(cfg *config.Config, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
		dryRun: dryRun,
	}
}

// Run executes the complete staging process.
//
// Only a destination root that cannot be created aborts the run; every
// per-file failure is reported and counted, and the remaining entries are
// still processed. The returned Summary is valid even on error.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	e.logger.Info("starting stage run",
		"source", e.cfg.Paths.SourceDir,
		"dest", e.cfg.Paths.DestDir,
		"pattern", e.cfg.Sync.Pattern,
		"dry_run", e.dryRun)

	summary := &Summary{}

	// Ensure destination directory exists
	if !e.dryRun {
		if err := os.MkdirAll(e.cfg.Paths.DestDir, 0755); err != nil {
			return summary, fmt.Errorf("failed to create destination directory: %w", err)
		}
	}

	matcher, err := scan.NewMatcher(e.cfg.Sync.Pattern)
	if err != nil {
		return summary, fmt.Errorf("failed to build file matcher: %w", err)
	}

	// Enumerate matched source entries. A missing source root degrades to
	// zero matches rather than an error.
	entries := scan.List(e.cfg.Paths.SourceDir, matcher)
	summary.Total = len(entries)
	e.logger.Info("found matching files", "count", summary.Total)

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			e.logger.Warn("run cancelled", "processed", i, "total", summary.Total)
			return summary, ctx.Err()
		default:
		}

		e.logger.Info("processing file",
			"processed", i+1,
			"total", summary.Total,
			"file", entry.Name)

		op := e.decide(entry)
		e.apply(op, summary)
	}

	e.logger.Info("all files processed",
		"total", summary.Total,
		"copied", summary.Copied,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

// decide checks the destination for an entry with the same base name.
// Existence by name is the whole check: contents and timestamps of a
// pre-existing destination entry are never compared or touched.
func (e *Engine) decide(entry scan.Entry) FileOp {
	destPath := filepath.Join(e.cfg.Paths.DestDir, entry.Name)
	if _, err := os.Lstat(destPath); err == nil {
		return FileOp{Entry: entry, Action: ActionSkip}
	}
	return FileOp{Entry: entry, Action: ActionCopy}
}

// apply executes a single file operation and updates the summary
func (e *Engine) apply(op FileOp, summary *Summary) {
	destPath := filepath.Join(e.cfg.Paths.DestDir, op.Entry.Name)

	switch op.Action {
	case ActionSkip:
		summary.Skipped++
		e.logger.Info("skipping file, already exists", "file", op.Entry.Name)

	case ActionCopy:
		if e.dryRun {
			summary.Copied++
			e.logger.Info("[dry-run] would copy", "file", op.Entry.Name, "dest", destPath)
			return
		}

		e.logger.Info("copying file", "file", op.Entry.Name, "dest", destPath)
		if err := copyFile(op.Entry.Path, destPath); err != nil {
			summary.Failed++
			e.logger.Error("failed to copy file", "file", op.Entry.Name, "error", err)
			return
		}

		// Carry the source's mtime over so the copy looks as old as the
		// original. The file counts as copied even if this fails.
		summary.Copied++
		if err := os.Chtimes(destPath, op.Entry.ModTime, op.Entry.ModTime); err != nil {
			e.logger.Warn("failed to set timestamp on copy", "file", op.Entry.Name, "error", err)
			return
		}
		e.logger.Info("copied, timestamp set", "file", op.Entry.Name)
	}
}

// copyFile copies a file from src to dst with atomic write
func copyFile(src, dst string) error {
	// Open source
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".stagesync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	// Copy content
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Get source permissions
	srcInfo, err := srcFile.Stat()
	if err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Set permissions on temp file
	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Close temp file
	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, dst); err != nil {
		return err
	}

	return nil
}
