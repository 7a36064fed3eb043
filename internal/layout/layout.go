// Package layout derives target paths inside the organized vault.
//
// The taxonomy (raw-device vault, project tree, catalog area) is owned by an
// external scaffolding step; this package only places files inside it:
// project subtrees keep their configured destination, loose audio recordings
// are filed by the date in their filename, and everything else lands in the
// device vault by creation date. Files with no device and no date fall back
// to the _unknown folder for manual triage.
package layout

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"reelvault/internal/config"
	"reelvault/internal/inventory"
)

// UnknownDir receives files that match no device lane.
const UnknownDir = "Originals/_unknown"

// Mapper computes target paths relative to the target root.
type Mapper struct {
	projects []config.Project
	audio    config.AudioTracks
	datePat  *regexp.Regexp
}

// NewMapper constructs a Mapper from validated configuration.
func NewMapper(cfg *config.Config) *Mapper {
	m := &Mapper{
		projects: append([]config.Project(nil), cfg.Projects...),
		audio:    cfg.AudioTracks,
	}
	if cfg.AudioTracks.FilenameDatePattern != "" {
		m.datePat = regexp.MustCompile(cfg.AudioTracks.FilenameDatePattern)
	}
	return m
}

// TargetPath maps a record to its destination relative to the target root.
// The result uses forward slashes and never escapes the root.
func (m *Mapper) TargetPath(rec *inventory.Record) string {
	rel := strings.TrimPrefix(rec.RelPath, "/")
	name := path.Base(rel)

	for _, project := range m.projects {
		src := strings.Trim(project.SourcePath, "/")
		if rel != src && !strings.HasPrefix(rel, src+"/") {
			continue
		}
		target := strings.Trim(project.TargetPath, "/")
		if project.PreserveStructure {
			inner := strings.TrimPrefix(strings.TrimPrefix(rel, src), "/")
			if inner == "" {
				inner = name
			}
			return path.Join(target, inner)
		}
		return path.Join(target, name)
	}

	if prefix := strings.Trim(m.audio.SourcePrefix, "/"); prefix != "" && strings.HasPrefix(rel, prefix+"/") {
		if date, ok := m.dateFromFilename(name); ok {
			base := strings.Trim(m.audio.TargetBase, "/")
			return path.Join(base,
				fmt.Sprintf("%04d", date.Year()),
				date.Format("2006-01-02"),
				name)
		}
	}

	if rec.Device != "" && !rec.CreatedAt.IsZero() {
		return path.Join("Originals", rec.Device,
			fmt.Sprintf("%04d", rec.CreatedAt.Year()),
			rec.CreatedAt.Format("2006-01-02"),
			name)
	}

	return path.Join(UnknownDir, name)
}

func (m *Mapper) dateFromFilename(name string) (time.Time, bool) {
	if m.datePat == nil {
		return time.Time{}, false
	}
	match := m.datePat.FindStringSubmatch(name)
	if len(match) < 2 {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102", match[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
