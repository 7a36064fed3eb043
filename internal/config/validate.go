package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateProjects(); err != nil {
		return err
	}
	if err := c.validateAudioTracks(); err != nil {
		return err
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if err := c.validateMigration(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, pattern := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("scan.exclude: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateProjects() error {
	for i, project := range c.Projects {
		if project.SourcePath == "" {
			return fmt.Errorf("projects[%d].source_path must be set", i)
		}
		if project.TargetPath == "" {
			return fmt.Errorf("projects[%d].target_path must be set", i)
		}
	}
	return nil
}

func (c *Config) validateAudioTracks() error {
	if c.AudioTracks.FilenameDatePattern == "" {
		return nil
	}
	re, err := regexp.Compile(c.AudioTracks.FilenameDatePattern)
	if err != nil {
		return fmt.Errorf("audio_tracks.filename_date_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return errors.New("audio_tracks.filename_date_pattern must capture the date digits")
	}
	return nil
}

func (c *Config) validateDuplicates() error {
	if len(c.Duplicates.Priority) == 0 {
		return errors.New("duplicates.priority must list at least one pattern")
	}
	for _, pattern := range c.Duplicates.Priority {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("duplicates.priority: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateMigration() error {
	switch c.Migration.LinkMode {
	case LinkModeHardlink, LinkModeSymlink, LinkModeRecord:
	default:
		return fmt.Errorf("migration.link_mode must be one of hardlink, symlink, record; got %q", c.Migration.LinkMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}
	return nil
}
