package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelvault/internal/config"
	"reelvault/internal/digest"
	"reelvault/internal/fileutil"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
	"reelvault/internal/progress"
	"reelvault/internal/services"
	"reelvault/internal/sidecar"
)

// applyCopy materializes one copy action: skip when the target already holds
// verified bytes, otherwise stream to a temporary name, verify the written
// digest, and atomically rename into place. Only then is the journal updated.
func (m *Migrator) applyCopy(ctx context.Context, action manifest.Action, runID, targetRoot string) error {
	finalPath := filepath.Join(targetRoot, filepath.FromSlash(action.TargetPath))

	if fileutil.FileExists(finalPath) {
		match, observed, err := m.hasher.Verify(finalPath, action.Digest)
		if err == nil && match {
			m.logger.Debug("target already migrated",
				logging.String(logging.FieldPath, action.TargetPath))
			if err := m.journal.Record(ctx, progress.Entry{
				TargetPath:     action.TargetPath,
				RunID:          runID,
				Status:         progress.StatusSkipped,
				ObservedDigest: observed,
			}); err != nil {
				return err
			}
			m.mu.Lock()
			m.result.Skipped++
			m.mu.Unlock()
			return nil
		}
		// Existing file with wrong content: fall through and rewrite it.
	}

	tempPath := finalPath + partialSuffix
	var written int64

	copyOnce := func() error {
		if err := fileutil.EnsureParentDir(finalPath); err != nil {
			return services.Wrap(services.ErrTransient, "migrate", "create target directory", "", err)
		}
		observed, n, err := fileutil.CopyFileDigest(action.SourcePath, tempPath, m.cfg.HashBlockSize())
		if err != nil {
			return services.Wrap(services.ErrTransient, "migrate", "copy", action.SourcePath, err)
		}
		if !digest.Equal(observed, action.Digest) {
			_ = os.Remove(tempPath)
			return services.Wrap(services.ErrIntegrity, "migrate", "verify copy",
				fmt.Sprintf("expected %s, wrote %s", action.Digest, observed), nil)
		}
		written = n
		return nil
	}

	if err := services.Retry(ctx, m.cfg.Migration.RetryLimit, retryDelay, copyOnce); err != nil {
		return err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return services.Wrap(services.ErrTransient, "migrate", "publish target", finalPath, err)
	}

	if err := m.journal.Record(ctx, progress.Entry{
		TargetPath:     action.TargetPath,
		RunID:          runID,
		Status:         progress.StatusCompleted,
		ObservedDigest: action.Digest,
	}); err != nil {
		return err
	}

	m.writeSidecar(targetRoot, action)

	m.mu.Lock()
	m.result.Copied++
	m.result.CopiedBytes += written
	m.mu.Unlock()
	return nil
}

// applyReference preserves a duplicate's place in the taxonomy without a
// second byte transfer. The representation depends on migration.link_mode.
func (m *Migrator) applyReference(ctx context.Context, action manifest.Action, runID, targetRoot string) error {
	canonicalPath := filepath.Join(targetRoot, filepath.FromSlash(action.DuplicateOf))
	linkPath := filepath.Join(targetRoot, filepath.FromSlash(action.TargetPath))

	switch m.cfg.Migration.LinkMode {
	case config.LinkModeHardlink, config.LinkModeSymlink:
		if !fileutil.FileExists(canonicalPath) {
			return services.Wrap(services.ErrNotFound, "migrate", "link duplicate",
				fmt.Sprintf("canonical copy %s is not present", action.DuplicateOf), nil)
		}
	}

	linkOnce := func() error {
		switch m.cfg.Migration.LinkMode {
		case config.LinkModeHardlink:
			if err := fileutil.Hardlink(canonicalPath, linkPath); err != nil {
				return services.Wrap(services.ErrTransient, "migrate", "hardlink", linkPath, err)
			}
		case config.LinkModeSymlink:
			rel, err := filepath.Rel(filepath.Dir(linkPath), canonicalPath)
			if err != nil {
				rel = canonicalPath
			}
			if err := fileutil.Symlink(rel, linkPath); err != nil {
				return services.Wrap(services.ErrTransient, "migrate", "symlink", linkPath, err)
			}
		case config.LinkModeRecord:
			// Journal-only reference: no filesystem entry.
		}
		return nil
	}

	if err := services.Retry(ctx, m.cfg.Migration.RetryLimit, retryDelay, linkOnce); err != nil {
		return err
	}

	if err := m.journal.Record(ctx, progress.Entry{
		TargetPath:     action.TargetPath,
		RunID:          runID,
		Status:         progress.StatusLinked,
		ObservedDigest: action.Digest,
		Message:        "duplicate of " + action.DuplicateOf,
	}); err != nil {
		return err
	}

	m.writeSidecar(targetRoot, action)

	m.mu.Lock()
	m.result.Linked++
	m.mu.Unlock()
	return nil
}

// writeSidecar emits the catalog record for a migrated file. Sidecar
// problems are logged, not fatal: the bytes are already safe.
func (m *Migrator) writeSidecar(targetRoot string, action manifest.Action) {
	rec := sidecar.Record{
		ID:           action.Digest,
		SourcePath:   action.SourcePath,
		TargetPath:   action.TargetPath,
		Device:       action.Device,
		Category:     action.Category,
		SizeBytes:    action.Size,
		CreationDate: action.CreationDate,
		MigratedAt:   time.Now().UTC().Format(time.RFC3339),
		DuplicateOf:  action.DuplicateOf,
		DurationSecs: action.Probe.DurationSecs,
		Width:        action.Probe.Width,
		Height:       action.Probe.Height,
		FPS:          action.Probe.FPS,
		Codec:        action.Probe.Codec,
	}
	if err := sidecar.Write(targetRoot, rec); err != nil {
		m.logger.Warn("sidecar write failed",
			logging.String(logging.FieldPath, action.TargetPath),
			logging.Error(err))
	}
}
