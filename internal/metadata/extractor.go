// Package metadata derives technical and device metadata for scanned files.
//
// Extraction is best-effort: a failed probe leaves the record with an empty
// probe payload and a logged warning. It never blocks hashing or duplicate
// grouping.
package metadata

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"reelvault/internal/config"
	"reelvault/internal/inventory"
	"reelvault/internal/logging"
	"reelvault/internal/media/ffprobe"
)

// Extractor enriches inventory records with probe output and device tags.
type Extractor struct {
	cfg      *config.Config
	logger   *slog.Logger
	binary   string
	timeout  time.Duration
	prefixes []string
	datePat  *regexp.Regexp
}

// NewExtractor constructs an Extractor from validated configuration.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	prefixes := make([]string, 0, len(cfg.Devices))
	for prefix := range cfg.Devices {
		prefixes = append(prefixes, prefix)
	}
	// Longest prefix first so nested folders beat their parents.
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})

	var datePat *regexp.Regexp
	if cfg.AudioTracks.FilenameDatePattern != "" {
		// Pattern validity is checked by config.Validate.
		datePat = regexp.MustCompile(cfg.AudioTracks.FilenameDatePattern)
	}

	return &Extractor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "metadata"),
		binary:   cfg.FFprobeBinary(),
		timeout:  time.Duration(cfg.Metadata.ProbeTimeout) * time.Second,
		prefixes: prefixes,
		datePat:  datePat,
	}
}

// Enrich fills Device, Probe, and CreatedAt on the record. Probe failures
// degrade to an empty probe payload; the record always comes back usable.
func (e *Extractor) Enrich(ctx context.Context, rec *inventory.Record) {
	rec.Device = e.DeviceTag(rec.RelPath)

	if rec.Category == inventory.CategoryVideo || !e.cfg.Metadata.ProbeVideoOnly {
		rec.Probe = e.probe(ctx, rec.SourcePath)
	}

	rec.CreatedAt = e.creationDate(rec)
}

// EnrichStructural fills only the fields derivable without reading file
// bytes: the device tag and a creation date from the filename or mtime.
// Structural-only analysis uses it so the layout preview still lands files
// in their device lanes.
func (e *Extractor) EnrichStructural(rec *inventory.Record) {
	rec.Device = e.DeviceTag(rec.RelPath)
	rec.CreatedAt = e.creationDate(rec)
}

// DeviceTag resolves the device tag for a path relative to the source root.
// The longest matching configured folder prefix wins; audio-track paths fall
// back to the configured audio device.
func (e *Extractor) DeviceTag(relPath string) string {
	relPath = strings.TrimPrefix(filepathToSlash(relPath), "/")
	for _, prefix := range e.prefixes {
		if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return e.cfg.Devices[prefix]
		}
	}
	audio := e.cfg.AudioTracks
	if audio.SourcePrefix != "" && strings.HasPrefix(relPath, audio.SourcePrefix+"/") {
		return audio.Device
	}
	return ""
}

// DateFromFilename extracts a recording date embedded in a filename using the
// configured pattern (YYYYMMDD capture group).
func (e *Extractor) DateFromFilename(name string) (time.Time, bool) {
	if e.datePat == nil {
		return time.Time{}, false
	}
	match := e.datePat.FindStringSubmatch(name)
	if len(match) < 2 {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102", match[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (e *Extractor) probe(ctx context.Context, path string) inventory.Probe {
	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := ffprobe.Inspect(probeCtx, e.binary, path)
	if err != nil {
		e.logger.Warn("media probe failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		return inventory.Probe{SchemaVersion: inventory.ProbeSchemaVersion}
	}

	probe := inventory.Probe{
		SchemaVersion: inventory.ProbeSchemaVersion,
		DurationSecs:  result.DurationSeconds(),
	}
	if stream, ok := result.VideoStream(); ok {
		probe.Width = stream.Width
		probe.Height = stream.Height
		probe.Codec = stream.CodecName
		probe.FPS = stream.FPS()
	}
	if ts, ok := result.CreationTime(); ok {
		probe.CreationTime = ts.UTC().Format(time.RFC3339)
	}
	return probe
}

func (e *Extractor) creationDate(rec *inventory.Record) time.Time {
	if rec.Probe.CreationTime != "" {
		if ts, err := time.Parse(time.RFC3339, rec.Probe.CreationTime); err == nil {
			return ts
		}
	}
	if ts, ok := e.DateFromFilename(baseName(rec.RelPath)); ok {
		return ts
	}
	return rec.ModTime
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func baseName(rel string) string {
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		return rel[idx+1:]
	}
	return rel
}
