package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.DestinationDir, err = expandPath(strings.TrimSpace(c.Paths.DestinationDir)); err != nil {
		return fmt.Errorf("paths.destination_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.StagingSubdir = filepath.Clean(strings.TrimSpace(c.Paths.StagingSubdir))
	if c.Paths.StagingSubdir == "." || c.Paths.StagingSubdir == "" {
		c.Paths.StagingSubdir = defaultStagingSubdir
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.PlainExtensions = normalizeExtensions(c.Ingest.PlainExtensions, defaultPlainExtensions)
	c.Ingest.EnvelopeExtensions = normalizeExtensions(c.Ingest.EnvelopeExtensions, defaultEnvelopeExtensions)
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = defaultWorkers
	}
	if c.Ingest.QueueSize <= 0 {
		c.Ingest.QueueSize = defaultQueueSize
	}
	if c.Ingest.DedupWindowSeconds < 0 {
		c.Ingest.DedupWindowSeconds = 0
	}
	if c.Ingest.StaleStagingHours < 0 {
		c.Ingest.StaleStagingHours = 0
	}
}

// normalizeExtensions trims, dots, and dedups extensions. Case is preserved
// because dispatch matching is case-sensitive.
func normalizeExtensions(values, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.TrimSpace(value)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	case "warning":
		c.Logging.Level = "warn"
	case "critical", "fatal":
		c.Logging.Level = "error"
	default:
		// Unknown levels fall back to info rather than refusing to start.
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
}
