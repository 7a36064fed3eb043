package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelvault/internal/analysis"
	"reelvault/internal/config"
	"reelvault/internal/logging"
	"reelvault/internal/manifest"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// resolveManifest loads the manifest from an explicit flag value or the
// configured analysis output directory.
func (c *commandContext) resolveManifest(flagValue string) (*manifest.Manifest, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	path := strings.TrimSpace(flagValue)
	if path == "" {
		path = filepath.Join(cfg.Paths.OutputDir, analysis.ManifestFileName)
	} else {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, "", fmt.Errorf("resolve manifest path: %w", err)
		}
		path = expanded
	}
	man, err := manifest.Load(path)
	if err != nil {
		return nil, "", err
	}
	return man, path, nil
}

// targetRoot resolves an optional positional target argument against the
// configured default.
func (c *commandContext) targetRoot(args []string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return config.ExpandPath(args[0])
	}
	if cfg.Paths.TargetRoot == "" {
		return "", fmt.Errorf("no target root: set paths.target_root or pass one as an argument")
	}
	return cfg.Paths.TargetRoot, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
