// Package sidecar emits the per-file metadata records consumed by the
// cataloging collaborator.
//
// One YAML document is written per migrated file under
// <target>/Catalog/sidecars/, mirroring the target tree. The shape is stable:
// fields are only ever added, and the digest doubles as the record identity.
package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dir is the sidecar area relative to the target root.
const Dir = "Catalog/sidecars"

// Record is one per-file metadata document.
type Record struct {
	ID           string  `yaml:"id"`
	SourcePath   string  `yaml:"source_path"`
	TargetPath   string  `yaml:"target_path"`
	Device       string  `yaml:"device,omitempty"`
	Category     string  `yaml:"category"`
	SizeBytes    int64   `yaml:"size_bytes"`
	CreationDate string  `yaml:"creation_date,omitempty"`
	MigratedAt   string  `yaml:"migrated_at"`
	DuplicateOf  string  `yaml:"duplicate_of,omitempty"`
	DurationSecs float64 `yaml:"duration_secs,omitempty"`
	Width        int     `yaml:"width,omitempty"`
	Height       int     `yaml:"height,omitempty"`
	FPS          float64 `yaml:"fps,omitempty"`
	Codec        string  `yaml:"codec,omitempty"`
}

// PathFor returns the sidecar location for a target-relative file path.
func PathFor(targetRoot, targetPath string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(targetPath), "/")
	return filepath.Join(targetRoot, filepath.FromSlash(Dir), filepath.FromSlash(rel)+".yaml")
}

// Write serializes the record to its sidecar location, creating parent
// directories as needed.
func Write(targetRoot string, rec Record) error {
	path := PathFor(targetRoot, rec.TargetPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sidecar directory: %w", err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// Read loads a sidecar document from disk.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse sidecar %s: %w", path, err)
	}
	return rec, nil
}
