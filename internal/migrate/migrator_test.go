package migrate

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
	"reelvault/internal/progress"
	"reelvault/internal/services"
	"reelvault/internal/sidecar"
	"reelvault/internal/testsupport"
)

type fixture struct {
	cfg     *config.Config
	journal *progress.Store
	target  string
	man     *manifest.Manifest
}

// newFixture lays out two identical source clips and one unique clip, with
// the duplicate expressed as a reference to the canonical target path.
func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
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
			{
				SourcePath: uniqueSrc,
				TargetPath: "Originals/drone/2024/2024-07-04/flight.mov",
				Size:       int64(len("drone flight bytes")),
				Digest:     uniqueDigest,
				Kind:       manifest.KindCopy,
				Device:     "drone",
				Category:   "video",
			},
			{
				SourcePath: canonicalSrc,
				TargetPath: "Originals/gopro/2024/2024-07-04/clip.mp4",
				Size:       int64(len("shared clip bytes")),
				Digest:     sharedDigest,
				Kind:       manifest.KindCopy,
				Device:     "gopro",
				Category:   "video",
			},
			{
				SourcePath:  duplicateSrc,
				TargetPath:  "Originals/_unknown/clip.mp4",
				Size:        int64(len("shared clip bytes")),
				Digest:      sharedDigest,
				Kind:        manifest.KindDuplicateRef,
				Category:    "video",
				DuplicateOf: "Originals/gopro/2024/2024-07-04/clip.mp4",
			},
		},
	}

	target := cfg.Paths.TargetRoot
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}

	return &fixture{
		cfg:     cfg,
		journal: testsupport.MustOpenJournal(t),
		target:  target,
		man:     man,
	}
}

func (f *fixture) run(t *testing.T) *Result {
	t.Helper()
	m := New(f.cfg, f.journal, logging.NewNop())
	result, err := m.Run(context.Background(), f.man, f.target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func readTarget(t *testing.T, f *fixture, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.target, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestRunCopiesAndLinks(t *testing.T) {
	f := newFixture(t)
	result := f.run(t)

	if !result.Ok() {
		t.Fatalf("failures: %+v", result.Failures)
	}
	if result.Copied != 2 || result.Linked != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}
	if got := readTarget(t, f, "Originals/gopro/2024/2024-07-04/clip.mp4"); got != "shared clip bytes" {
		t.Fatalf("canonical content = %q", got)
	}
	if got := readTarget(t, f, "Originals/_unknown/clip.mp4"); got != "shared clip bytes" {
		t.Fatalf("hardlinked duplicate content = %q", got)
	}

	// No partial files are left behind.
	err := filepath.Walk(f.target, func(path string, info os.FileInfo, err error) error {
		if err == nil && filepath.Ext(path) == partialSuffix {
			t.Fatalf("partial file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	// Sidecars exist for every action.
	for _, action := range f.man.Actions {
		if _, err := sidecar.Read(sidecar.PathFor(f.target, action.TargetPath)); err != nil {
			t.Fatalf("sidecar for %s: %v", action.TargetPath, err)
		}
	}

	// Journal reflects the outcomes.
	entry, ok, err := f.journal.Get(context.Background(), "Originals/_unknown/clip.mp4")
	if err != nil || !ok {
		t.Fatalf("journal entry: ok=%v err=%v", ok, err)
	}
	if entry.Status != progress.StatusLinked {
		t.Fatalf("status = %q, want linked", entry.Status)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	second := f.run(t)
	if second.Copied != 0 {
		t.Fatalf("second run copied %d files, want 0", second.Copied)
	}
	if second.Skipped != 2 || second.Linked != 1 {
		t.Fatalf("second run = %+v", second)
	}
}

func TestRunRewritesCorruptedTarget(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	// Corrupt one target, clear its journal row by using a fresh journal.
	corrupted := filepath.Join(f.target, "Originals", "drone", "2024", "2024-07-04", "flight.mov")
	if err := os.WriteFile(corrupted, []byte("bit rot"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	f.journal = testsupport.MustOpenJournal(t)

	result := f.run(t)
	if !result.Ok() {
		t.Fatalf("failures: %+v", result.Failures)
	}
	if got := readTarget(t, f, "Originals/drone/2024/2024-07-04/flight.mov"); got != "drone flight bytes" {
		t.Fatalf("corrupted target was not rewritten: %q", got)
	}
}

func TestRunFailsOnCorruptedSource(t *testing.T) {
	f := newFixture(t)
	// The manifest digest no longer matches the source bytes.
	if err := os.WriteFile(filepath.Join(f.cfg.Paths.SourceRoot, "Drone", "flight.mov"),
		[]byte("changed since analysis"), 0o644); err != nil {
		t.Fatalf("rewrite source: %v", err)
	}

	result := f.run(t)
	if result.Ok() {
		t.Fatal("expected a failed action")
	}
	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if result.Copied != 1 || result.Linked != 1 {
		t.Fatalf("healthy actions should still complete: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(f.target, "Originals", "drone", "2024", "2024-07-04", "flight.mov")); !os.IsNotExist(err) {
		t.Fatal("mismatched copy must not be published")
	}
}

func TestRunResumesAfterInterruption(t *testing.T) {
	f := newFixture(t)

	// Simulate a killed run: the canonical clip finished and was journaled,
	// while the drone copy died mid-write, leaving a stale temp file and no
	// journal row.
	canonicalRel := "Originals/gopro/2024/2024-07-04/clip.mp4"
	testsupport.WriteFile(t, filepath.Join(f.target, filepath.FromSlash(canonicalRel)), "shared clip bytes")
	if err := f.journal.Record(context.Background(), progress.Entry{
		TargetPath: canonicalRel,
		RunID:      "test-run",
		Status:     progress.StatusCompleted,
	}); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	interruptedRel := "Originals/drone/2024/2024-07-04/flight.mov"
	stalePartial := filepath.Join(f.target, filepath.FromSlash(interruptedRel)+partialSuffix)
	testsupport.WriteFile(t, stalePartial, "half written jun")

	result := f.run(t)
	if !result.Ok() {
		t.Fatalf("failures: %+v", result.Failures)
	}
	if result.Copied != 1 || result.Skipped != 1 || result.Linked != 1 {
		t.Fatalf("result = %+v, want 1 copied, 1 skipped, 1 linked", result)
	}
	if got := readTarget(t, f, interruptedRel); got != "drone flight bytes" {
		t.Fatalf("interrupted copy not completed: %q", got)
	}
	if _, err := os.Stat(stalePartial); !os.IsNotExist(err) {
		t.Fatal("stale partial file left behind")
	}
}

func TestRunRefusesStructuralManifest(t *testing.T) {
	f := newFixture(t)
	f.man.Hashed = false
	for i := range f.man.Actions {
		f.man.Actions[i].Digest = ""
	}

	m := New(f.cfg, f.journal, logging.NewNop())
	_, err := m.Run(context.Background(), f.man, f.target)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestRunRecordMode(t *testing.T) {
	f := newFixture(t, testsupport.WithLinkMode(config.LinkModeRecord))
	result := f.run(t)
	if !result.Ok() {
		t.Fatalf("failures: %+v", result.Failures)
	}

	linkPath := filepath.Join(f.target, "Originals", "_unknown", "clip.mp4")
	if _, err := os.Lstat(linkPath); !os.IsNotExist(err) {
		t.Fatal("record mode must not create a filesystem entry")
	}
	entry, ok, err := f.journal.Get(context.Background(), "Originals/_unknown/clip.mp4")
	if err != nil || !ok {
		t.Fatalf("journal entry: ok=%v err=%v", ok, err)
	}
	if entry.Status != progress.StatusLinked {
		t.Fatalf("status = %q, want linked", entry.Status)
	}
}

func TestRunSymlinkMode(t *testing.T) {
	f := newFixture(t, testsupport.WithLinkMode(config.LinkModeSymlink))
	result := f.run(t)
	if !result.Ok() {
		t.Fatalf("failures: %+v", result.Failures)
	}

	linkPath := filepath.Join(f.target, "Originals", "_unknown", "clip.mp4")
	info, err := os.Lstat(linkPath)
	if err != nil {
		t.Fatalf("lstat link: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected a symlink")
	}
	if got := readTarget(t, f, "Originals/_unknown/clip.mp4"); got != "shared clip bytes" {
		t.Fatalf("symlink resolves to %q", got)
	}
}

func TestRunRefusesMissingTarget(t *testing.T) {
	f := newFixture(t)
	m := New(f.cfg, f.journal, logging.NewNop())
	_, err := m.Run(context.Background(), f.man, filepath.Join(f.target, "nope"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
