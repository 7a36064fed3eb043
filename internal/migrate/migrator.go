// Package migrate replays a manifest against the target tree.
//
// Replay is idempotent and resumable: completed work is recorded in the
// progress journal after copy-and-verify succeeds, partially written files
// only ever exist under a temporary name, and a single file failure never
// aborts the run. An advisory lock serializes migrator invocations against
// the same target.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"reelvault/internal/config"
	"reelvault/internal/digest"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
	"reelvault/internal/progress"
	"reelvault/internal/services"
)

// LockFileName is the advisory lock inside the target root. Verification
// shares it so a verify pass never races an in-flight migration.
const LockFileName = ".reelvault.lock"

// JournalFileName is the per-target progress journal, kept inside the target
// root so resumption state travels with the tree it describes.
const JournalFileName = ".reelvault-journal.db"

const partialSuffix = ".partial"

const retryDelay = 2 * time.Second

// Failure describes one action that could not be completed.
type Failure struct {
	SourcePath string
	TargetPath string
	Reason     string
}

// Result aggregates a migration run.
type Result struct {
	Copied      int
	Skipped     int
	Linked      int
	Failed      int
	CopiedBytes int64
	Failures    []Failure
}

// Ok reports whether every action completed.
func (r *Result) Ok() bool {
	return r.Failed == 0
}

// Migrator replays manifest actions with a bounded worker pool.
type Migrator struct {
	cfg     *config.Config
	journal *progress.Store
	logger  *slog.Logger
	hasher  digest.Hasher

	mu     sync.Mutex
	result Result
}

// New constructs a Migrator. The journal must already be open; the migrator
// never writes anywhere else outside the target root.
func New(cfg *config.Config, journal *progress.Store, logger *slog.Logger) *Migrator {
	return &Migrator{
		cfg:     cfg,
		journal: journal,
		logger:  logging.NewComponentLogger(logger, "migrator"),
		hasher:  digest.New(cfg.HashBlockSize()),
	}
}

// Run replays the manifest against targetRoot. Copy actions run before
// duplicate references so links always have a canonical file to point at;
// within a phase, completion order does not affect the final state.
func (m *Migrator) Run(ctx context.Context, man *manifest.Manifest, targetRoot string) (*Result, error) {
	if !man.Hashed {
		return nil, services.Wrap(services.ErrConfiguration, "migrate", "validate manifest",
			"manifest was produced in structural-only mode and carries no digests; re-run analyze without --structural-only", nil)
	}
	info, err := os.Stat(targetRoot)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "migrate", "validate target",
			fmt.Sprintf("target root %q is not an existing directory", targetRoot), err)
	}

	lock := flock.New(filepath.Join(targetRoot, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "migrate", "acquire lock", "", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "migrate", "acquire lock",
			"another migration or verification is running against this target", nil)
	}
	defer func() { _ = lock.Unlock() }()

	done, err := m.journal.DoneTargets(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.result = Result{}
	m.mu.Unlock()

	var copies, refs []manifest.Action
	for _, action := range man.Actions {
		if action.Kind == manifest.KindDuplicateRef {
			refs = append(refs, action)
		} else {
			copies = append(copies, action)
		}
	}

	m.logger.Info("starting migration",
		logging.Int("copy_actions", len(copies)),
		logging.Int("duplicate_refs", len(refs)),
		logging.Int("workers", m.cfg.Migration.Workers),
		logging.String("target", targetRoot))

	if err := m.runPhase(ctx, copies, done, man.RunID, targetRoot); err != nil {
		return m.snapshot(), err
	}
	if err := m.runPhase(ctx, refs, done, man.RunID, targetRoot); err != nil {
		return m.snapshot(), err
	}

	result := m.snapshot()
	m.logger.Info("migration finished",
		logging.Int("copied", result.Copied),
		logging.Int("skipped", result.Skipped),
		logging.Int("linked", result.Linked),
		logging.Int("failed", result.Failed),
		logging.Int64("copied_bytes", result.CopiedBytes))
	return result, nil
}

func (m *Migrator) runPhase(ctx context.Context, actions []manifest.Action, done map[string]progress.Status, runID, targetRoot string) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Migration.Workers)

	for _, action := range actions {
		if status, ok := done[action.TargetPath]; ok && status.Done() {
			m.addSkip(action)
			continue
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			m.runAction(groupCtx, action, runID, targetRoot)
			return nil
		})
	}
	return group.Wait()
}

func (m *Migrator) runAction(ctx context.Context, action manifest.Action, runID, targetRoot string) {
	var err error
	if action.Kind == manifest.KindDuplicateRef {
		err = m.applyReference(ctx, action, runID, targetRoot)
	} else {
		err = m.applyCopy(ctx, action, runID, targetRoot)
	}
	if err != nil {
		m.recordFailure(ctx, action, runID, err)
	}
}

func (m *Migrator) recordFailure(ctx context.Context, action manifest.Action, runID string, cause error) {
	m.logger.Error("action failed",
		logging.String(logging.FieldPath, action.TargetPath),
		logging.Error(cause))
	if err := m.journal.Record(ctx, progress.Entry{
		TargetPath: action.TargetPath,
		RunID:      runID,
		Status:     progress.StatusFailed,
		Message:    cause.Error(),
	}); err != nil {
		m.logger.Error("journal write failed", logging.Error(err))
	}
	m.mu.Lock()
	m.result.Failed++
	m.result.Failures = append(m.result.Failures, Failure{
		SourcePath: action.SourcePath,
		TargetPath: action.TargetPath,
		Reason:     cause.Error(),
	})
	m.mu.Unlock()
}

func (m *Migrator) addSkip(action manifest.Action) {
	m.mu.Lock()
	if action.Kind == manifest.KindDuplicateRef {
		m.result.Linked++
	} else {
		m.result.Skipped++
	}
	m.mu.Unlock()
}

func (m *Migrator) snapshot() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.result
	cp.Failures = append([]Failure(nil), m.result.Failures...)
	return &cp
}
