package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelvault/internal/analysis"
	"reelvault/internal/inventory"
	"reelvault/internal/manifest"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestMigrateRefusesMissingTargetRoot(t *testing.T) {
	base := t.TempDir()
	output := filepath.Join(base, "analysis")
	target := filepath.Join(base, "missing-target")

	if err := os.MkdirAll(output, 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	man := manifest.Build([]*inventory.Record{{
		SourcePath: filepath.Join(base, "src", "clip.mp4"),
		RelPath:    "clip.mp4",
		Size:       10,
		ModTime:    time.Now(),
		Category:   inventory.CategoryVideo,
		Digest:     "sha256:" + strings.Repeat("a", 64),
		TargetPath: "Originals/_unknown/clip.mp4",
	}}, nil, filepath.Join(base, "src"), true)
	if err := man.Write(filepath.Join(output, analysis.ManifestFileName)); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfgPath := filepath.Join(base, "config.toml")
	cfgBody := fmt.Sprintf("[paths]\noutput_dir = %q\ntarget_root = %q\nlog_dir = %q\ncatalog_db = %q\n",
		output, target, filepath.Join(base, "logs"), filepath.Join(base, "catalog.db"))
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := runCLI(t, "migrate", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "not an existing directory") {
		t.Fatalf("err = %v, want a missing-target refusal", err)
	}
	// The root must not be conjured into existence, and no journal with it.
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("target root was created (stat err = %v)", statErr)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Metric", "Value"},
		[][]string{{"Files", "3"}, {"Total size", "1.2 MB"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "Files") || !strings.Contains(out, "1.2 MB") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("empty header should render nothing")
	}
}
