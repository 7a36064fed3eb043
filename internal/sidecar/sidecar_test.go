package sidecar

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFor(t *testing.T) {
	got := PathFor("/vault", "Originals/gopro/2024/2024-07-04/clip.mp4")
	want := filepath.Join("/vault", "Catalog", "sidecars",
		"Originals", "gopro", "2024", "2024-07-04", "clip.mp4.yaml")
	if got != want {
		t.Fatalf("PathFor = %q, want %q", got, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	root := t.TempDir()
	rec := Record{
		ID:           "sha256:aaa",
		SourcePath:   "/src/GoPro/clip.mp4",
		TargetPath:   "Originals/gopro/2024/2024-07-04/clip.mp4",
		Device:       "gopro",
		Category:     "video",
		SizeBytes:    1234,
		CreationDate: "2024-07-04T10:30:00Z",
		MigratedAt:   "2024-08-01T00:00:00Z",
		DurationSecs: 12.5,
		Width:        3840,
		Height:       2160,
		FPS:          59.94,
		Codec:        "hevc",
	}
	if err := Write(root, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := PathFor(root, rec.TargetPath)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if loaded != rec {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, rec)
	}
}

func TestReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{invalid"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected parse error")
	}
}
