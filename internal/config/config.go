package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the pipeline.
type Paths struct {
	SourceRoot string `toml:"source_root"`
	OutputDir  string `toml:"output_dir"`
	TargetRoot string `toml:"target_root"`
	LogDir     string `toml:"log_dir"`
	CatalogDB  string `toml:"catalog_db"`
}

// Scan contains configuration for source tree traversal.
type Scan struct {
	// Exclude holds doublestar patterns matched against paths relative to
	// the source root. Hidden files and known private application subtrees
	// are covered by the defaults.
	Exclude []string `toml:"exclude"`
	// MinSizeBytes drops files below this size (sidecar junk, thumbnails).
	MinSizeBytes int64 `toml:"min_size_bytes"`
}

// Categories maps media categories to their recognized file extensions.
type Categories struct {
	Video []string `toml:"video"`
	Audio []string `toml:"audio"`
	Image []string `toml:"image"`
}

// Project describes a source subtree that migrates as a unit to a fixed
// target location instead of the standard device layout.
type Project struct {
	SourcePath        string `toml:"source_path"`
	TargetPath        string `toml:"target_path"`
	PreserveStructure bool   `toml:"preserve_structure"`
}

// AudioTracks configures date extraction for loose audio recordings.
type AudioTracks struct {
	SourcePrefix        string `toml:"source_prefix"`
	FilenameDatePattern string `toml:"filename_date_pattern"`
	TargetBase          string `toml:"target_base"`
	Device              string `toml:"device"`
}

// Duplicates configures duplicate grouping and canonical selection.
type Duplicates struct {
	// Priority is an ordered list of doublestar patterns matched against
	// target paths. The first pattern a group member matches decides the
	// canonical copy; earlier patterns outrank later ones.
	Priority []string `toml:"priority"`
}

// Hashing configures content digest computation.
type Hashing struct {
	BlockSizeKiB int `toml:"block_size_kib"`
	Workers      int `toml:"workers"`
}

// Migration configures manifest replay against the target tree.
type Migration struct {
	Workers    int    `toml:"workers"`
	RetryLimit int    `toml:"retry_limit"`
	LinkMode   string `toml:"link_mode"`
}

// Metadata configures the external media probe.
type Metadata struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	ProbeTimeout   int    `toml:"probe_timeout"`
	ProbeVideoOnly bool   `toml:"probe_video_only"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// LinkMode values accepted by migration.link_mode.
const (
	LinkModeHardlink = "hardlink"
	LinkModeSymlink  = "symlink"
	LinkModeRecord   = "record"
)

// Config encapsulates all configuration values for reelvault.
//
// Configuration sections by subsystem:
//   - Paths: source/target roots, analysis output, log directory
//   - Scan: exclusion patterns and minimum file size
//   - Categories: extension sets per media category
//   - Devices: source folder prefix to device tag mapping
//   - Projects: subtrees migrated to fixed target locations
//   - AudioTracks: filename date extraction for loose recordings
//   - Duplicates: canonical selection priority table
//   - Hashing: digest block size and worker count
//   - Migration: copy workers, retry limit, duplicate link mode
//   - Metadata: ffprobe binary and timeout
//   - Logging: log format and level
type Config struct {
	Paths       Paths             `toml:"paths"`
	Scan        Scan              `toml:"scan"`
	Categories  Categories        `toml:"categories"`
	Devices     map[string]string `toml:"devices"`
	Projects    []Project         `toml:"projects"`
	AudioTracks AudioTracks       `toml:"audio_tracks"`
	Duplicates  Duplicates        `toml:"duplicates"`
	Hashing     Hashing           `toml:"hashing"`
	Migration   Migration         `toml:"migration"`
	Metadata    Metadata          `toml:"metadata"`
	Logging     Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelvault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the pipeline writes into. Source and
// target roots are never created here; their absence is a configuration error
// surfaced by the command that needs them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for media metadata.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Metadata.FFprobeBinary) != "" {
		return c.Metadata.FFprobeBinary
	}
	return "ffprobe"
}

// HashBlockSize returns the digest read block size in bytes.
func (c *Config) HashBlockSize() int {
	return c.Hashing.BlockSizeKiB * 1024
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
