package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelvault/internal/config"
	"reelvault/internal/digest"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
	"reelvault/internal/migrate"
	"reelvault/internal/services"
	"reelvault/internal/testsupport"
)

// migrated builds a source tree, migrates it, and returns the manifest and
// target so verification runs against a realistic tree.
func migrated(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *manifest.Manifest, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	src := cfg.Paths.SourceRoot

	canonicalSrc := filepath.Join(src, "GoPro", "clip.mp4")
	duplicateSrc := filepath.Join(src, "backup", "clip.mp4")
	uniqueSrc := filepath.Join(src, "Drone", "flight.mov")
	testsupport.WriteFile(t, canonicalSrc, "shared clip bytes")
	testsupport.WriteFile(t, duplicateSrc, "shared clip bytes")
	testsupport.WriteFile(t, uniqueSrc, "drone flight bytes")

	h := digest.New(0)
	sharedDigest, err := h.File(canonicalSrc)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	uniqueDigest, err := h.File(uniqueSrc)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	man := &manifest.Manifest{
		Version:    manifest.Version,
		RunID:      "test-run",
		Hashed:     true,
		SourceRoot: src,
		Actions: []manifest.Action{
			{SourcePath: uniqueSrc, TargetPath: "Originals/drone/flight.mov",
				Digest: uniqueDigest, Kind: manifest.KindCopy, Category: "video"},
			{SourcePath: canonicalSrc, TargetPath: "Originals/gopro/clip.mp4",
				Digest: sharedDigest, Kind: manifest.KindCopy, Category: "video"},
			{SourcePath: duplicateSrc, TargetPath: "Originals/_unknown/clip.mp4",
				Digest: sharedDigest, Kind: manifest.KindDuplicateRef, Category: "video",
				DuplicateOf: "Originals/gopro/clip.mp4"},
		},
	}

	target := cfg.Paths.TargetRoot
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}
	m := migrate.New(cfg, testsupport.MustOpenJournal(t), logging.NewNop())
	result, err := m.Run(context.Background(), man, target)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("migration failures: %+v", result.Failures)
	}
	return cfg, man, target
}

func TestRunAllVerified(t *testing.T) {
	cfg, man, target := migrated(t)
	v := New(cfg, logging.NewNop())

	result, err := v.Run(context.Background(), man, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("problems: %+v", result.Problems)
	}
	if result.Verified != 3 {
		t.Fatalf("verified = %d, want 3", result.Verified)
	}
}

func TestRunDetectsSingleFlippedByte(t *testing.T) {
	cfg, man, target := migrated(t)

	path := filepath.Join(target, "Originals", "drone", "flight.mov")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[0] ^= 0x01
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := New(cfg, logging.NewNop()).Run(context.Background(), man, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ok() {
		t.Fatal("corruption went undetected")
	}
	if result.Mismatched != 1 {
		t.Fatalf("mismatched = %d, want 1", result.Mismatched)
	}
	problem := result.Problems[0]
	if problem.Outcome != OutcomeMismatch {
		t.Fatalf("outcome = %q", problem.Outcome)
	}
	if problem.TargetPath != "Originals/drone/flight.mov" {
		t.Fatalf("target = %q", problem.TargetPath)
	}
	if problem.Observed == "" || problem.Observed == problem.Expected {
		t.Fatalf("observed digest not reported: %+v", problem)
	}
}

func TestRunDetectsMissingFile(t *testing.T) {
	cfg, man, target := migrated(t)
	if err := os.Remove(filepath.Join(target, "Originals", "gopro", "clip.mp4")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	result, err := New(cfg, logging.NewNop()).Run(context.Background(), man, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The hardlinked duplicate still holds the bytes, so only the canonical
	// path is missing.
	if result.Missing != 1 {
		t.Fatalf("missing = %d, want 1 (problems: %+v)", result.Missing, result.Problems)
	}
}

func TestRunSkipsRecordModeReferences(t *testing.T) {
	cfg, man, target := migrated(t, testsupport.WithLinkMode(config.LinkModeRecord))

	result, err := New(cfg, logging.NewNop()).Run(context.Background(), man, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ok() {
		t.Fatalf("problems: %+v", result.Problems)
	}
	if result.Verified != 2 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunRefusesStructuralManifest(t *testing.T) {
	cfg, man, target := migrated(t)
	man.Hashed = false

	_, err := New(cfg, logging.NewNop()).Run(context.Background(), man, target)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
