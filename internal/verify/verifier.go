// Package verify independently re-hashes the target tree against a manifest.
//
// Verification is read-only: it never modifies source or target, and it
// reports overall success only when every expected file is present with the
// expected digest. Each discrepancy carries the path and both digests so a
// targeted re-run can be driven from the report alone.
package verify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"reelvault/internal/config"
	"reelvault/internal/digest"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
	"reelvault/internal/migrate"
	"reelvault/internal/services"
)

// Outcome classifies a single action's verification result.
type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeMissing  Outcome = "missing"
	// OutcomeSkipped marks duplicate references that have no physical
	// bytes of their own to check.
	OutcomeSkipped Outcome = "skipped"
)

// ActionResult is the per-action verification outcome.
type ActionResult struct {
	TargetPath string
	Outcome    Outcome
	Expected   string
	Observed   string
}

// Result aggregates a verification pass.
type Result struct {
	Verified   int
	Mismatched int
	Missing    int
	Skipped    int
	Problems   []ActionResult
}

// Ok reports whether every expected file was present and verified.
func (r *Result) Ok() bool {
	return r.Mismatched == 0 && r.Missing == 0
}

// Verifier re-hashes target files with a bounded worker pool.
type Verifier struct {
	cfg    *config.Config
	logger *slog.Logger
	hasher digest.Hasher
}

// New constructs a Verifier.
func New(cfg *config.Config, logger *slog.Logger) *Verifier {
	return &Verifier{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "verifier"),
		hasher: digest.New(cfg.HashBlockSize()),
	}
}

// Run verifies every manifest action against targetRoot.
func (v *Verifier) Run(ctx context.Context, man *manifest.Manifest, targetRoot string) (*Result, error) {
	if !man.Hashed {
		return nil, services.Wrap(services.ErrConfiguration, "verify", "validate manifest",
			"manifest was produced in structural-only mode and carries no digests", nil)
	}

	lock := flock.New(filepath.Join(targetRoot, migrate.LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "verify", "acquire lock",
			"failed to acquire target lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "verify", "acquire lock",
			"another migration or verification is running against this target", nil)
	}
	defer lock.Unlock()

	var mu sync.Mutex
	result := &Result{}

	record := func(ar ActionResult) {
		mu.Lock()
		defer mu.Unlock()
		switch ar.Outcome {
		case OutcomeVerified:
			result.Verified++
		case OutcomeMismatch:
			result.Mismatched++
			result.Problems = append(result.Problems, ar)
		case OutcomeMissing:
			result.Missing++
			result.Problems = append(result.Problems, ar)
		case OutcomeSkipped:
			result.Skipped++
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(v.cfg.Hashing.Workers)

	for _, action := range man.Actions {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			record(v.checkAction(action, targetRoot))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	sort.Slice(result.Problems, func(i, j int) bool {
		return result.Problems[i].TargetPath < result.Problems[j].TargetPath
	})

	v.logger.Info("verification finished",
		logging.Int("verified", result.Verified),
		logging.Int("mismatched", result.Mismatched),
		logging.Int("missing", result.Missing),
		logging.Int("skipped", result.Skipped))
	return result, nil
}

func (v *Verifier) checkAction(action manifest.Action, targetRoot string) ActionResult {
	ar := ActionResult{TargetPath: action.TargetPath, Expected: action.Digest}

	if action.Kind == manifest.KindDuplicateRef && v.cfg.Migration.LinkMode == config.LinkModeRecord {
		ar.Outcome = OutcomeSkipped
		return ar
	}

	path := filepath.Join(targetRoot, filepath.FromSlash(action.TargetPath))
	// Stat follows symlinks, so symlinked duplicate references verify
	// through to the canonical bytes.
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		ar.Outcome = OutcomeMissing
		return ar
	}

	match, observed, err := v.hasher.Verify(path, action.Digest)
	if err != nil {
		ar.Outcome = OutcomeMissing
		return ar
	}
	ar.Observed = observed
	if match {
		ar.Outcome = OutcomeVerified
	} else {
		ar.Outcome = OutcomeMismatch
	}
	return ar
}
