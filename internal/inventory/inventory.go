// Package inventory defines the file records produced by analysis and
// consumed by duplicate resolution and manifest generation.
package inventory

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelvault/internal/config"
)

// Category classifies a file by its extension.
type Category string

const (
	CategoryVideo   Category = "video"
	CategoryAudio   Category = "audio"
	CategoryImage   Category = "image"
	CategoryUnknown Category = "unknown"
)

// ProbeSchemaVersion tags the probe metadata layout. Bump when fields change
// meaning so downstream consumers can tell records apart.
const ProbeSchemaVersion = 1

// Probe carries technical metadata extracted from a media file. The zero
// value is the well-defined "extraction failed or skipped" state.
type Probe struct {
	SchemaVersion int     `json:"schema_version"`
	DurationSecs  float64 `json:"duration_secs,omitempty"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
	Codec         string  `json:"codec,omitempty"`
	FPS           float64 `json:"fps,omitempty"`
	CreationTime  string  `json:"creation_time,omitempty"`
}

// Empty reports whether the probe carries no extracted data.
func (p Probe) Empty() bool {
	return p == Probe{} || p == Probe{SchemaVersion: p.SchemaVersion}
}

// Record describes one scanned file. A record is immutable once its digest
// has been computed; analysis fills fields in stages before that point.
type Record struct {
	SourcePath string
	RelPath    string
	Size       int64
	ModTime    time.Time
	Digest     string
	Device     string
	Category   Category
	CreatedAt  time.Time
	TargetPath string
	Probe      Probe
}

// Hashed reports whether a content digest has been computed for the record.
func (r *Record) Hashed() bool {
	return strings.TrimSpace(r.Digest) != ""
}

// Classify maps a file extension to its category using the configured
// extension sets.
func Classify(path string, cats config.Categories) Category {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return CategoryUnknown
	}
	for _, e := range cats.Video {
		if e == ext {
			return CategoryVideo
		}
	}
	for _, e := range cats.Audio {
		if e == ext {
			return CategoryAudio
		}
	}
	for _, e := range cats.Image {
		if e == ext {
			return CategoryImage
		}
	}
	return CategoryUnknown
}

// SortRecords orders records by relative source path. Analysis sorts before
// duplicate resolution so filesystem traversal order never leaks into
// canonical selection.
func SortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].RelPath < records[j].RelPath
	})
}
