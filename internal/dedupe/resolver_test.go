package dedupe

import (
	"testing"
	"time"

	"reelvault/internal/inventory"
	"reelvault/internal/testsupport"
)

func rec(rel, dig, target string, mtime time.Time, size int64) *inventory.Record {
	return &inventory.Record{
		RelPath:    rel,
		Digest:     dig,
		TargetPath: target,
		ModTime:    mtime,
		Size:       size,
	}
}

func TestResolveGroupsByDigest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r := NewResolver(cfg)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*inventory.Record{
		rec("a/one.mp4", "sha256:aaa", "Originals/gopro/one.mp4", base, 100),
		rec("b/one-copy.mp4", "sha256:aaa", "Originals/drone/one-copy.mp4", base.Add(time.Hour), 100),
		rec("c/unique.mp4", "sha256:bbb", "Originals/gopro/unique.mp4", base, 50),
	}

	groups := r.Resolve(records)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Digest != "sha256:aaa" {
		t.Fatalf("digest = %q", g.Digest)
	}
	if len(g.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(g.Members))
	}
	if g.Canonical.RelPath != "a/one.mp4" {
		t.Fatalf("canonical = %q, want earliest mod time", g.Canonical.RelPath)
	}
	if g.DuplicateBytes() != 100 {
		t.Fatalf("duplicate bytes = %d, want 100", g.DuplicateBytes())
	}
}

func TestResolveSkipsUnhashed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r := NewResolver(cfg)

	records := []*inventory.Record{
		rec("a/one.mp4", "", "x", time.Now(), 10),
		rec("b/two.mp4", "", "y", time.Now(), 10),
	}
	if groups := r.Resolve(records); len(groups) != 0 {
		t.Fatalf("unhashed records must never group, got %d groups", len(groups))
	}
}

func TestCanonicalSelectionByPriority(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPriority(
		"Originals/**",
		"Projects/**",
	))
	r := NewResolver(cfg)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// The project copy is older, but the vault copy outranks it.
	records := []*inventory.Record{
		rec("projects/clip.mp4", "sha256:ccc", "Projects/Reel/clip.mp4", base, 10),
		rec("GoPro/clip.mp4", "sha256:ccc", "Originals/gopro/2024/2024-01-02/clip.mp4", base.Add(48*time.Hour), 10),
	}

	groups := r.Resolve(records)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if got := groups[0].Canonical.TargetPath; got != "Originals/gopro/2024/2024-01-02/clip.mp4" {
		t.Fatalf("canonical = %q, want the vault copy", got)
	}
}

func TestCanonicalTieBreaksAreDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPriority("Originals/**"))
	r := NewResolver(cfg)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := rec("a/clip.mp4", "sha256:ddd", "Originals/x/clip.mp4", base, 10)
	b := rec("b/clip.mp4", "sha256:ddd", "Originals/y/clip.mp4", base, 10)

	for _, records := range [][]*inventory.Record{{a, b}, {b, a}} {
		groups := r.Resolve(records)
		if len(groups) != 1 {
			t.Fatalf("got %d groups, want 1", len(groups))
		}
		if got := groups[0].Canonical.RelPath; got != "a/clip.mp4" {
			t.Fatalf("canonical = %q; input order must not matter", got)
		}
	}
}

func TestResolveSortsGroupsByDigest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r := NewResolver(cfg)

	base := time.Now()
	records := []*inventory.Record{
		rec("a1.mp4", "sha256:fff", "t1", base, 1),
		rec("a2.mp4", "sha256:fff", "t2", base, 1),
		rec("b1.mp4", "sha256:aaa", "t3", base, 1),
		rec("b2.mp4", "sha256:aaa", "t4", base, 1),
	}
	groups := r.Resolve(records)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Digest != "sha256:aaa" || groups[1].Digest != "sha256:fff" {
		t.Fatalf("groups not sorted by digest: %q, %q", groups[0].Digest, groups[1].Digest)
	}
}
