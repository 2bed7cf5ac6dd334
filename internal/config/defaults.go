package config

const (
	defaultDownloadDir       = "~/downloads"
	defaultExtractDir        = "~/downloads/Extract"
	defaultEndedDir          = "~/downloads/Ended"
	defaultLogDir            = "~/.local/share/sweeper/logs"
	defaultAria2Host         = "127.0.0.1"
	defaultAria2Port         = 6800
	defaultAria2Timeout      = 30
	defaultReconnectInterval = 5
	defaultScannerTimeout    = 10
	defaultExtractionTimeout = 1800
	defaultEventBuffer       = 64
	defaultShutdownGrace     = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			ExtractDir:  defaultExtractDir,
			EndedDir:    defaultEndedDir,
			LogDir:      defaultLogDir,
		},
		Aria2: Aria2{
			Host:              defaultAria2Host,
			Port:              defaultAria2Port,
			RequestTimeout:    defaultAria2Timeout,
			ReconnectInterval: defaultReconnectInterval,
		},
		Sonarr: Scanner{
			RequestTimeout: defaultScannerTimeout,
		},
		Radarr: Scanner{
			RequestTimeout: defaultScannerTimeout,
		},
		Extraction: Extraction{
			Timeout: defaultExtractionTimeout,
		},
		Workflow: Workflow{
			EventBuffer:   defaultEventBuffer,
			ShutdownGrace: defaultShutdownGrace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
