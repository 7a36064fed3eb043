package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeCategories()
	c.normalizeDevices()
	c.normalizeHashing()
	c.normalizeMigration()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceRoot, err = expandPath(strings.TrimSpace(c.Paths.SourceRoot)); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	if c.Paths.TargetRoot, err = expandPath(strings.TrimSpace(c.Paths.TargetRoot)); err != nil {
		return fmt.Errorf("paths.target_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogDB) == "" {
		c.Paths.CatalogDB = defaultCatalogDB
	}
	if c.Paths.CatalogDB, err = expandPath(c.Paths.CatalogDB); err != nil {
		return fmt.Errorf("paths.catalog_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	cleaned := make([]string, 0, len(c.Scan.Exclude))
	for _, pattern := range c.Scan.Exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern != "" {
			cleaned = append(cleaned, pattern)
		}
	}
	c.Scan.Exclude = cleaned
	if c.Scan.MinSizeBytes < 0 {
		c.Scan.MinSizeBytes = 0
	}
}

func (c *Config) normalizeCategories() {
	c.Categories.Video = normalizeExtensions(c.Categories.Video)
	c.Categories.Audio = normalizeExtensions(c.Categories.Audio)
	c.Categories.Image = normalizeExtensions(c.Categories.Image)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeDevices() {
	if c.Devices == nil {
		c.Devices = map[string]string{}
		return
	}
	cleaned := make(map[string]string, len(c.Devices))
	for prefix, device := range c.Devices {
		prefix = strings.Trim(strings.TrimSpace(prefix), "/")
		device = strings.TrimSpace(device)
		if prefix == "" || device == "" {
			continue
		}
		cleaned[prefix] = device
	}
	c.Devices = cleaned
}

func (c *Config) normalizeHashing() {
	if c.Hashing.BlockSizeKiB <= 0 {
		c.Hashing.BlockSizeKiB = defaultBlockSizeKiB
	}
	if c.Hashing.Workers <= 0 {
		c.Hashing.Workers = defaultHashWorkers
	}
}

func (c *Config) normalizeMigration() {
	if c.Migration.Workers <= 0 {
		c.Migration.Workers = defaultMigrateWorkers
	}
	if c.Migration.RetryLimit <= 0 {
		c.Migration.RetryLimit = defaultRetryLimit
	}
	c.Migration.LinkMode = strings.ToLower(strings.TrimSpace(c.Migration.LinkMode))
	if c.Migration.LinkMode == "" {
		c.Migration.LinkMode = defaultLinkMode
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.FFprobeBinary = strings.TrimSpace(c.Metadata.FFprobeBinary)
	if c.Metadata.ProbeTimeout <= 0 {
		c.Metadata.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
