// Package manifest defines the durable migration plan produced by analysis
// and replayed read-only by migration and verification.
//
// The document is versioned JSON. Given identical analysis input the
// structural content is byte-identical across runs; only the generation
// timestamp and run identifier differ, which keeps manifests reviewable with
// a plain diff before any copy occurs.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelvault/internal/inventory"
	"reelvault/internal/services"
)

// Version is the current manifest document version.
const Version = 1

// Kind discriminates migration action types.
type Kind string

const (
	// KindCopy materializes the file's bytes at the target path.
	KindCopy Kind = "copy"
	// KindDuplicateRef preserves a duplicate's place in the taxonomy
	// without a second byte transfer.
	KindDuplicateRef Kind = "duplicate_ref"
)

// Action is the unit of idempotent replay: one per analyzed file.
type Action struct {
	SourcePath   string          `json:"source_path"`
	TargetPath   string          `json:"target_path"`
	Size         int64           `json:"size"`
	Digest       string          `json:"content_digest,omitempty"`
	Kind         Kind            `json:"action_kind"`
	Device       string          `json:"device,omitempty"`
	Category     string          `json:"category"`
	DuplicateOf  string          `json:"duplicate_of,omitempty"`
	CreationDate string          `json:"creation_date,omitempty"`
	Probe        inventory.Probe `json:"probe,omitzero"`
}

// Summary aggregates plan statistics.
type Summary struct {
	TotalFiles          int       `json:"total_files"`
	TotalBytes          int64     `json:"total_bytes"`
	DuplicateCount      int       `json:"duplicate_count"`
	DuplicateBytesSaved int64     `json:"duplicate_bytes_saved"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Manifest is the complete migration plan. Write-once: the migrator records
// progress in a separate journal and never mutates this document.
type Manifest struct {
	Version    int      `json:"manifest_version"`
	RunID      string   `json:"run_id"`
	Hashed     bool     `json:"hashed"`
	SourceRoot string   `json:"source_root"`
	Actions    []Action `json:"actions"`
	Summary    Summary  `json:"summary"`
}

// CopyActions returns the actions that materialize bytes on the target.
func (m *Manifest) CopyActions() []Action {
	out := make([]Action, 0, len(m.Actions))
	for _, action := range m.Actions {
		if action.Kind == KindCopy {
			out = append(out, action)
		}
	}
	return out
}

// Write serializes the manifest to path via a temporary file and rename so a
// crash never leaves a truncated plan behind.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

// Load reads and validates a manifest. Malformed documents are configuration
// failures: they abort before any filesystem mutation.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "read", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "parse", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "validate", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Version != Version {
		return fmt.Errorf("unsupported manifest version %d (want %d)", m.Version, Version)
	}
	seen := make(map[string]struct{}, len(m.Actions))
	for i, action := range m.Actions {
		if action.SourcePath == "" {
			return fmt.Errorf("action %d: missing source_path", i)
		}
		if action.TargetPath == "" {
			return fmt.Errorf("action %d: missing target_path", i)
		}
		if _, dup := seen[action.TargetPath]; dup {
			return fmt.Errorf("action %d: duplicate target_path %q", i, action.TargetPath)
		}
		seen[action.TargetPath] = struct{}{}
		switch action.Kind {
		case KindCopy, KindDuplicateRef:
		default:
			return fmt.Errorf("action %d: unknown action_kind %q", i, action.Kind)
		}
		if m.Hashed && action.Digest == "" {
			return fmt.Errorf("action %d: hashed manifest is missing a content digest", i)
		}
		if action.Kind == KindDuplicateRef && action.DuplicateOf == "" {
			return fmt.Errorf("action %d: duplicate_ref without duplicate_of", i)
		}
	}
	return nil
}
