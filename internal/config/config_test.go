package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for a missing file")
	}
	if cfg.Migration.LinkMode != LinkModeHardlink {
		t.Fatalf("default link mode = %q, want %q", cfg.Migration.LinkMode, LinkModeHardlink)
	}
	if cfg.Hashing.BlockSizeKiB != 128 {
		t.Fatalf("default block size = %d, want 128", cfg.Hashing.BlockSizeKiB)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reelvault.toml")
	body := strings.Join([]string{
		`[paths]`,
		`source_root = "` + filepath.Join(dir, "src") + `"`,
		`target_root = "` + filepath.Join(dir, "dst") + `"`,
		``,
		`[migration]`,
		`link_mode = "symlink"`,
		`workers = 8`,
		``,
		`[devices]`,
		`GoPro = "gopro"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Migration.LinkMode != LinkModeSymlink {
		t.Fatalf("link mode = %q, want symlink", cfg.Migration.LinkMode)
	}
	if cfg.Migration.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Migration.Workers)
	}
	if got := cfg.Devices["GoPro"]; got != "gopro" {
		t.Fatalf("device tag = %q, want gopro", got)
	}
	// Defaults survive alongside overrides.
	if len(cfg.Duplicates.Priority) == 0 {
		t.Fatal("expected default duplicate priority to be populated")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad link mode", func(c *Config) { c.Migration.LinkMode = "reflink" }},
		{"empty priority", func(c *Config) { c.Duplicates.Priority = nil }},
		{"bad exclude pattern", func(c *Config) { c.Scan.Exclude = []string{"[unclosed"} }},
		{"bad priority pattern", func(c *Config) { c.Duplicates.Priority = []string{"[unclosed"} }},
		{"project missing target", func(c *Config) {
			c.Projects = []Project{{SourcePath: "projects/reel"}}
		}},
		{"audio pattern without capture", func(c *Config) {
			c.AudioTracks.FilenameDatePattern = `\d{8}`
		}},
		{"bad log format", func(c *Config) { c.Logging.Format = "logfmt" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestHashBlockSize(t *testing.T) {
	cfg := Default()
	cfg.Hashing.BlockSizeKiB = 64
	if got := cfg.HashBlockSize(); got != 64*1024 {
		t.Fatalf("HashBlockSize = %d, want %d", got, 64*1024)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load (exists=%v): %v", exists, err)
	}
}
