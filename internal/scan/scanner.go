// Package scan walks the source tree and produces file stubs for analysis.
//
// The walk is parallel (fastwalk) but emission is serialized, every
// non-excluded regular file is yielded exactly once, and unreadable paths are
// collected and logged without aborting the traversal.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"reelvault/internal/config"
	"reelvault/internal/inventory"
	"reelvault/internal/logging"
)

// Stub is the minimal view of a file produced by traversal, before hashing
// or metadata extraction.
type Stub struct {
	Path     string
	RelPath  string
	Size     int64
	ModTime  time.Time
	Category inventory.Category
}

// WalkError records a path the scanner had to skip.
type WalkError struct {
	Path string
	Err  error
}

// Scanner traverses a source root applying configured exclusions.
type Scanner struct {
	root    string
	exclude []string
	minSize int64
	cats    config.Categories
	logger  *slog.Logger

	mu     sync.Mutex
	errs   []WalkError
	walked int64
}

// New constructs a Scanner for the given root using scan configuration.
func New(root string, cfg *config.Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		root:    filepath.Clean(root),
		exclude: append([]string(nil), cfg.Scan.Exclude...),
		minSize: cfg.Scan.MinSizeBytes,
		cats:    cfg.Categories,
		logger:  logging.NewComponentLogger(logger, "scanner"),
	}
}

// Walk streams stubs to fn. fn is invoked serially; returning an error stops
// the walk and propagates the error. Unreadable paths are logged and skipped.
// Walk may be called again to restart the traversal from scratch.
func (s *Scanner) Walk(ctx context.Context, fn func(Stub) error) error {
	s.mu.Lock()
	s.errs = nil
	s.walked = 0
	s.mu.Unlock()

	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %q is not a directory", s.root)
	}

	conf := fastwalk.Config{Follow: false}

	var emitMu sync.Mutex
	var emitErr error

	walkErr := fastwalk.Walk(&conf, s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.recordError(path, err)
			return nil
		}

		rel := s.relPath(path)
		if rel == "." {
			return nil
		}
		if s.excluded(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.recordError(path, err)
			return nil
		}
		if info.Size() < s.minSize {
			return nil
		}
		category := inventory.Classify(path, s.cats)
		if category == inventory.CategoryUnknown {
			return nil
		}

		stub := Stub{
			Path:     path,
			RelPath:  rel,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Category: category,
		}

		emitMu.Lock()
		defer emitMu.Unlock()
		if emitErr != nil {
			return emitErr
		}
		if err := fn(stub); err != nil {
			emitErr = err
			return err
		}
		s.mu.Lock()
		s.walked++
		s.mu.Unlock()
		return nil
	})

	if emitErr != nil {
		return emitErr
	}
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return walkErr
	}
	return ctx.Err()
}

// Collect walks the tree and returns all stubs sorted by relative path.
func (s *Scanner) Collect(ctx context.Context) ([]Stub, error) {
	var stubs []Stub
	if err := s.Walk(ctx, func(stub Stub) error {
		stubs = append(stubs, stub)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].RelPath < stubs[j].RelPath })
	return stubs, nil
}

// Errors returns the paths skipped during the most recent walk.
func (s *Scanner) Errors() []WalkError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WalkError(nil), s.errs...)
}

// FilesWalked returns the number of stubs emitted by the most recent walk.
func (s *Scanner) FilesWalked() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walked
}

func (s *Scanner) recordError(path string, err error) {
	s.logger.Warn("skipping unreadable path", logging.String(logging.FieldPath, path), logging.Error(err))
	s.mu.Lock()
	s.errs = append(s.errs, WalkError{Path: path, Err: err})
	s.mu.Unlock()
}

func (s *Scanner) relPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	// Hidden files and directories are always skipped.
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
