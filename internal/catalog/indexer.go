package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/sidecar"
)

// IndexResult summarizes one indexing pass.
type IndexResult struct {
	Indexed int
	Failed  int
}

// Indexer rebuilds catalog rows from the sidecar tree under a target root.
type Indexer struct {
	store  *Store
	logger *slog.Logger
}

// NewIndexer constructs an Indexer over an open store.
func NewIndexer(store *Store, logger *slog.Logger) *Indexer {
	return &Indexer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Index walks <targetRoot>/Catalog/sidecars and upserts every parseable
// document. A malformed sidecar is logged and counted, not fatal, so one
// damaged file cannot block re-indexing the rest of the library.
func (ix *Indexer) Index(ctx context.Context, targetRoot string) (IndexResult, error) {
	root := filepath.Join(targetRoot, filepath.FromSlash(sidecar.Dir))
	if _, err := os.Stat(root); err != nil {
		return IndexResult{}, services.Wrap(services.ErrNotFound, "catalog", "locate sidecars",
			"no sidecar directory under target root", err)
	}

	var result IndexResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			ix.logger.Warn("sidecar walk error",
				logging.String(logging.FieldPath, path),
				logging.Error(walkErr))
			result.Failed++
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}

		rec, err := sidecar.Read(path)
		if err != nil {
			ix.logger.Warn("skipping unreadable sidecar",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			result.Failed++
			return nil
		}
		if err := ix.store.Upsert(ctx, rec); err != nil {
			return services.Wrap(services.ErrTransient, "catalog", "upsert clip",
				"failed to index sidecar", err)
		}
		result.Indexed++
		return nil
	})
	if err != nil {
		return result, err
	}

	ix.logger.Info("catalog index complete",
		logging.Int("indexed", result.Indexed),
		logging.Int("failed", result.Failed))
	return result, nil
}
