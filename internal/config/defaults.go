package config

const (
	defaultOutputDir       = "~/.local/share/reelvault/analysis"
	defaultLogDir          = "~/.local/share/reelvault/logs"
	defaultCatalogDB       = "~/.local/share/reelvault/catalog.db"
	defaultMinSizeBytes    = 1 << 20 // skip files under 1 MiB
	defaultBlockSizeKiB    = 128
	defaultHashWorkers     = 4
	defaultMigrateWorkers  = 4
	defaultRetryLimit      = 3
	defaultLinkMode        = LinkModeHardlink
	defaultProbeTimeout    = 30
	defaultAudioPrefix     = "audio-tracks"
	defaultAudioPattern    = `(\d{8})`
	defaultAudioTargetBase = "Originals/AUDIO_dji-mic-2"
	defaultAudioDevice     = "AUDIO_dji-mic-2"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CatalogDB: defaultCatalogDB,
		},
		Scan: Scan{
			Exclude: []string{
				"**/.*",
				"**/.Trashes/**",
				"**/.Spotlight-V100/**",
				"**/.fseventsd/**",
				"**/$RECYCLE.BIN/**",
				"**/System Volume Information/**",
				"**/*.tmp",
				"**/Thumbs.db",
			},
			MinSizeBytes: defaultMinSizeBytes,
		},
		Categories: Categories{
			Video: []string{".mp4", ".mov", ".mxf", ".m4v", ".avi", ".mkv", ".braw"},
			Audio: []string{".wav", ".mp3", ".m4a", ".flac", ".aif", ".aiff"},
			Image: []string{".jpg", ".jpeg", ".png", ".heic", ".dng", ".arw", ".raf"},
		},
		AudioTracks: AudioTracks{
			SourcePrefix:        defaultAudioPrefix,
			FilenameDatePattern: defaultAudioPattern,
			TargetBase:          defaultAudioTargetBase,
			Device:              defaultAudioDevice,
		},
		Duplicates: Duplicates{
			Priority: []string{
				"Originals/CAM_*/**",
				"Originals/AUDIO_*/**",
				"Originals/**",
				"Projects/**",
			},
		},
		Hashing: Hashing{
			BlockSizeKiB: defaultBlockSizeKiB,
			Workers:      defaultHashWorkers,
		},
		Migration: Migration{
			Workers:    defaultMigrateWorkers,
			RetryLimit: defaultRetryLimit,
			LinkMode:   defaultLinkMode,
		},
		Metadata: Metadata{
			ProbeTimeout:   defaultProbeTimeout,
			ProbeVideoOnly: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
