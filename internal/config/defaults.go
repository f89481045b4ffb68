package config

const (
	defaultSourceDir          = "/data/input"
	defaultDestinationDir     = "/data/output"
	defaultStagingSubdir      = "temp"
	defaultLogDir             = "logs"
	defaultStateDir           = "~/.local/share/xmlwatch"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 7
	defaultWorkers            = 1
	defaultQueueSize          = 256
	defaultDedupWindowSeconds = 2
	defaultStaleStagingHours  = 24
	defaultNotifyTimeout      = 10
)

var (
	defaultPlainExtensions    = []string{".txt"}
	defaultEnvelopeExtensions = []string{".xml"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:      defaultSourceDir,
			DestinationDir: defaultDestinationDir,
			StagingSubdir:  defaultStagingSubdir,
			LogDir:         defaultLogDir,
			StateDir:       defaultStateDir,
		},
		Ingest: Ingest{
			PlainExtensions:    append([]string(nil), defaultPlainExtensions...),
			EnvelopeExtensions: append([]string(nil), defaultEnvelopeExtensions...),
			Workers:            defaultWorkers,
			QueueSize:          defaultQueueSize,
			DedupWindowSeconds: defaultDedupWindowSeconds,
			StaleStagingHours:  defaultStaleStagingHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
	}
}
