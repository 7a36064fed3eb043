// Package dedupe groups byte-identical files and selects one canonical copy
// per group.
//
// Equal content digests are treated as byte-identical content; collision
// probability is negligible at SHA-256 widths. Canonical selection is a pure
// function of group membership and the configured priority table, so
// re-running analysis on unchanged input always picks the same canonical
// copies regardless of scan order.
package dedupe

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"reelvault/internal/config"
	"reelvault/internal/inventory"
)

// Group collects the records sharing one content digest. Exactly one member
// is canonical; the rest become duplicate references.
type Group struct {
	Digest    string
	Members   []*inventory.Record
	Canonical *inventory.Record
}

// DuplicateBytes returns the bytes saved by not materializing the
// non-canonical members.
func (g *Group) DuplicateBytes() int64 {
	var total int64
	for _, rec := range g.Members {
		if rec != g.Canonical {
			total += rec.Size
		}
	}
	return total
}

// Resolver groups records by digest and applies the priority table.
type Resolver struct {
	priority []string
}

// NewResolver constructs a Resolver from validated configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{priority: append([]string(nil), cfg.Duplicates.Priority...)}
}

// Resolve builds duplicate groups from the full record population. Records
// without a digest are never grouped: two unhashed files are never declared
// duplicates. Groups are returned sorted by digest.
func (r *Resolver) Resolve(records []*inventory.Record) []*Group {
	byDigest := make(map[string][]*inventory.Record)
	for _, rec := range records {
		if !rec.Hashed() {
			continue
		}
		byDigest[rec.Digest] = append(byDigest[rec.Digest], rec)
	}

	groups := make([]*Group, 0, len(byDigest))
	for dig, members := range byDigest {
		if len(members) < 2 {
			continue
		}
		sortMembers(members)
		group := &Group{Digest: dig, Members: members}
		group.Canonical = r.selectCanonical(members)
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Digest < groups[j].Digest })
	return groups
}

// selectCanonical picks the group member whose target path matches the
// earliest priority pattern. Ties within the same tier are broken by
// earliest modification time, then by lexicographically smallest path.
func (r *Resolver) selectCanonical(members []*inventory.Record) *inventory.Record {
	best := members[0]
	bestRank := r.rank(best)
	for _, rec := range members[1:] {
		rank := r.rank(rec)
		switch {
		case rank < bestRank:
			best, bestRank = rec, rank
		case rank == bestRank:
			if rec.ModTime.Before(best.ModTime) ||
				(rec.ModTime.Equal(best.ModTime) && rec.RelPath < best.RelPath) {
				best = rec
			}
		}
	}
	return best
}

func (r *Resolver) rank(rec *inventory.Record) int {
	for i, pattern := range r.priority {
		if ok, err := doublestar.Match(pattern, rec.TargetPath); err == nil && ok {
			return i
		}
	}
	return len(r.priority)
}

func sortMembers(members []*inventory.Record) {
	sort.Slice(members, func(i, j int) bool {
		if !members[i].ModTime.Equal(members[j].ModTime) {
			return members[i].ModTime.Before(members[j].ModTime)
		}
		return members[i].RelPath < members[j].RelPath
	})
}
