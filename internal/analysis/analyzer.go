// Package analysis drives the read-only half of a migration: scan, hash,
// enrich, deduplicate, and emit the manifest plus its companion reports.
//
// A run never touches the source tree or the target tree. Given unchanged
// input and configuration the emitted manifest is identical apart from its
// run identifier and timestamp.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelvault/internal/config"
	"reelvault/internal/dedupe"
	"reelvault/internal/digest"
	"reelvault/internal/inventory"
	"reelvault/internal/layout"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
	"reelvault/internal/metadata"
	"reelvault/internal/scan"
	"reelvault/internal/services"
)

const (
	ManifestFileName         = "migration_manifest.json"
	DuplicatesReportFileName = "duplicates_report.csv"
	SummaryFileName          = "analysis_summary.txt"
)

// Options tunes a single analysis run.
type Options struct {
	// StructuralOnly skips hashing and the media probe; device tags and
	// creation dates are still derived from paths and mtimes. The
	// resulting manifest carries no digests and cannot drive a migration;
	// it exists to preview the target layout cheaply.
	StructuralOnly bool
}

// HashError records a file that could not be hashed and was excluded from
// the manifest.
type HashError struct {
	Path string
	Err  error
}

// Result is everything a run produced.
type Result struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	ReportPath   string
	SummaryPath  string
	Groups       []*dedupe.Group
	ScanErrors   []scan.WalkError
	HashErrors   []HashError
	Elapsed      time.Duration
}

// Analyzer wires the scanning, hashing, and resolution stages together.
type Analyzer struct {
	cfg       *config.Config
	logger    *slog.Logger
	hasher    digest.Hasher
	extractor *metadata.Extractor
	mapper    *layout.Mapper
	resolver  *dedupe.Resolver
}

// New constructs an Analyzer from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "analyzer"),
		hasher:    digest.New(cfg.HashBlockSize()),
		extractor: metadata.NewExtractor(cfg, logger),
		mapper:    layout.NewMapper(cfg),
		resolver:  dedupe.NewResolver(cfg),
	}
}

// Run executes a full analysis pass and writes the manifest and reports into
// the configured output directory.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	result := &Result{}

	scanner := scan.New(a.cfg.Paths.SourceRoot, a.cfg, a.logger)
	stubs, err := scanner.Collect(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "analyzer", "scan source",
			"source traversal failed", err)
	}
	result.ScanErrors = scanner.Errors()
	a.logger.Info("scan complete",
		logging.Int("files", len(stubs)),
		logging.Int64("walked", scanner.FilesWalked()),
		logging.Int("errors", len(result.ScanErrors)))

	records := make([]*inventory.Record, 0, len(stubs))
	for _, stub := range stubs {
		records = append(records, &inventory.Record{
			SourcePath: stub.Path,
			RelPath:    stub.RelPath,
			Size:       stub.Size,
			ModTime:    stub.ModTime,
			Category:   stub.Category,
		})
	}

	if opts.StructuralOnly {
		for _, rec := range records {
			a.extractor.EnrichStructural(rec)
		}
	} else {
		records, result.HashErrors = a.hashAndEnrich(ctx, records)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for _, rec := range records {
		rec.TargetPath = a.mapper.TargetPath(rec)
	}
	uniquifyTargets(records)

	var groups []*dedupe.Group
	if !opts.StructuralOnly {
		groups = a.resolver.Resolve(records)
	}
	result.Groups = groups

	man := manifest.Build(records, groups, a.cfg.Paths.SourceRoot, !opts.StructuralOnly)
	result.Manifest = man

	result.ManifestPath = filepath.Join(a.cfg.Paths.OutputDir, ManifestFileName)
	if err := man.Write(result.ManifestPath); err != nil {
		return nil, err
	}
	result.ReportPath = filepath.Join(a.cfg.Paths.OutputDir, DuplicatesReportFileName)
	if err := writeDuplicatesReport(result.ReportPath, groups); err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(started)
	result.SummaryPath = filepath.Join(a.cfg.Paths.OutputDir, SummaryFileName)
	if err := writeSummary(result.SummaryPath, a.cfg, result); err != nil {
		return nil, err
	}

	a.logger.Info("analysis complete",
		logging.Int("files", len(man.Actions)),
		logging.Int("duplicate_groups", len(groups)),
		logging.Bool("hashed", man.Hashed),
		logging.Duration("elapsed", result.Elapsed))
	return result, nil
}

// hashAndEnrich digests and probes records with a bounded worker pool.
// Records that cannot be hashed are excluded from the run: an action without
// a trustworthy digest cannot be copied safely or deduplicated.
func (a *Analyzer) hashAndEnrich(ctx context.Context, records []*inventory.Record) ([]*inventory.Record, []HashError) {
	var mu sync.Mutex
	var failures []HashError

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.cfg.Hashing.Workers)
	for _, rec := range records {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			dig, err := a.hasher.File(rec.SourcePath)
			if err != nil {
				a.logger.Warn("hashing failed, excluding file",
					logging.String(logging.FieldPath, rec.RelPath),
					logging.Error(err))
				mu.Lock()
				failures = append(failures, HashError{Path: rec.RelPath, Err: err})
				mu.Unlock()
				return nil
			}
			rec.Digest = dig
			a.extractor.Enrich(groupCtx, rec)
			return nil
		})
	}
	// Workers only propagate context cancellation; per-file failures are
	// collected above.
	_ = group.Wait()

	kept := records[:0]
	for _, rec := range records {
		if rec.Hashed() {
			kept = append(kept, rec)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return kept, failures
}

// uniquifyTargets resolves target path collisions deterministically. Records
// are visited in relative path order, so the same population always yields
// the same final layout: the first claimant keeps the mapped path and later
// ones gain a numeric suffix before the extension.
func uniquifyTargets(records []*inventory.Record) {
	ordered := append([]*inventory.Record(nil), records...)
	inventory.SortRecords(ordered)

	taken := make(map[string]bool, len(ordered))
	for _, rec := range ordered {
		path := rec.TargetPath
		if !taken[path] {
			taken[path] = true
			continue
		}
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
			if !taken[candidate] {
				rec.TargetPath = candidate
				taken[candidate] = true
				break
			}
		}
	}
}
