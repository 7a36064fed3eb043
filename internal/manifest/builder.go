package manifest

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"reelvault/internal/dedupe"
	"reelvault/internal/inventory"
)

// Build assembles a manifest from the analyzed record population and the
// resolved duplicate groups. Actions are ordered by source path so the
// structural content is stable across runs on identical input.
func Build(records []*inventory.Record, groups []*dedupe.Group, sourceRoot string, hashed bool) *Manifest {
	canonicalByDigest := make(map[string]*inventory.Record, len(groups))
	for _, group := range groups {
		canonicalByDigest[group.Digest] = group.Canonical
	}

	ordered := append([]*inventory.Record(nil), records...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RelPath < ordered[j].RelPath })

	m := &Manifest{
		Version:    Version,
		RunID:      uuid.NewString(),
		Hashed:     hashed,
		SourceRoot: sourceRoot,
		Actions:    make([]Action, 0, len(ordered)),
	}

	for _, rec := range ordered {
		action := Action{
			SourcePath: rec.SourcePath,
			TargetPath: rec.TargetPath,
			Size:       rec.Size,
			Digest:     rec.Digest,
			Kind:       KindCopy,
			Device:     rec.Device,
			Category:   string(rec.Category),
			Probe:      rec.Probe,
		}
		if !rec.CreatedAt.IsZero() {
			action.CreationDate = rec.CreatedAt.UTC().Format(time.RFC3339)
		}
		if canonical, ok := canonicalByDigest[rec.Digest]; ok && rec.Hashed() && canonical != rec {
			action.Kind = KindDuplicateRef
			action.DuplicateOf = canonical.TargetPath
			m.Summary.DuplicateCount++
			m.Summary.DuplicateBytesSaved += rec.Size
		}
		m.Summary.TotalFiles++
		m.Summary.TotalBytes += rec.Size
		m.Actions = append(m.Actions, action)
	}

	m.Summary.GeneratedAt = time.Now().UTC()
	return m
}
