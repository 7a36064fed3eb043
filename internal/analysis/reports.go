package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"reelvault/internal/config"
	"reelvault/internal/dedupe"
	"reelvault/internal/services"
)

// writeDuplicatesReport emits one CSV row per duplicate group member so the
// savings can be audited file by file. Groups arrive sorted by digest and
// members by modification time, so the report is stable across runs.
func writeDuplicatesReport(path string, groups []*dedupe.Group) error {
	f, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analyzer", "write report",
			"failed to create duplicates report", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"content_digest", "size_bytes", "role", "source_path", "target_path"}
	if err := w.Write(header); err != nil {
		return services.Wrap(services.ErrTransient, "analyzer", "write report",
			"failed to write duplicates report", err)
	}
	for _, group := range groups {
		for _, rec := range group.Members {
			role := "duplicate"
			if rec == group.Canonical {
				role = "canonical"
			}
			row := []string{
				group.Digest,
				strconv.FormatInt(rec.Size, 10),
				role,
				rec.RelPath,
				rec.TargetPath,
			}
			if err := w.Write(row); err != nil {
				return services.Wrap(services.ErrTransient, "analyzer", "write report",
					"failed to write duplicates report", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return services.Wrap(services.ErrTransient, "analyzer", "write report",
			"failed to flush duplicates report", err)
	}
	return nil
}

// writeSummary renders the human-readable recap of a run.
func writeSummary(path string, cfg *config.Config, result *Result) error {
	man := result.Manifest

	var b strings.Builder
	fmt.Fprintf(&b, "reelvault analysis summary\n")
	fmt.Fprintf(&b, "==========================\n\n")
	fmt.Fprintf(&b, "run id:            %s\n", man.RunID)
	fmt.Fprintf(&b, "generated at:      %s\n", man.Summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "source root:       %s\n", man.SourceRoot)
	fmt.Fprintf(&b, "target root:       %s\n", cfg.Paths.TargetRoot)
	fmt.Fprintf(&b, "hashed:            %t\n\n", man.Hashed)

	fmt.Fprintf(&b, "files:             %d\n", man.Summary.TotalFiles)
	fmt.Fprintf(&b, "total size:        %s\n", humanize.Bytes(uint64(man.Summary.TotalBytes)))
	fmt.Fprintf(&b, "duplicate files:   %d\n", man.Summary.DuplicateCount)
	fmt.Fprintf(&b, "duplicate groups:  %d\n", len(result.Groups))
	fmt.Fprintf(&b, "space reclaimed:   %s\n", humanize.Bytes(uint64(man.Summary.DuplicateBytesSaved)))
	fmt.Fprintf(&b, "elapsed:           %s\n", result.Elapsed.Round(time.Millisecond))

	if len(result.ScanErrors) > 0 {
		fmt.Fprintf(&b, "\nunreadable paths (%d):\n", len(result.ScanErrors))
		for _, we := range result.ScanErrors {
			fmt.Fprintf(&b, "  %s: %v\n", we.Path, we.Err)
		}
	}
	if len(result.HashErrors) > 0 {
		fmt.Fprintf(&b, "\nexcluded, hashing failed (%d):\n", len(result.HashErrors))
		for _, he := range result.HashErrors {
			fmt.Fprintf(&b, "  %s: %v\n", he.Path, he.Err)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "analyzer", "write summary",
			"failed to write analysis summary", err)
	}
	return nil
}
