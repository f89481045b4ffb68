package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.DestinationDir == "" {
		return errors.New("paths.destination_dir must be set")
	}
	if c.Paths.SourceDir == c.Paths.DestinationDir {
		return errors.New("paths.source_dir and paths.destination_dir must differ")
	}
	if filepath.IsAbs(c.Paths.StagingSubdir) || strings.HasPrefix(c.Paths.StagingSubdir, "..") {
		return fmt.Errorf("paths.staging_subdir %q must be a relative directory inside destination_dir", c.Paths.StagingSubdir)
	}
	return nil
}

func (c *Config) validateIngest() error {
	plain := make(map[string]struct{}, len(c.Ingest.PlainExtensions))
	for _, ext := range c.Ingest.PlainExtensions {
		plain[ext] = struct{}{}
	}
	for _, ext := range c.Ingest.EnvelopeExtensions {
		if _, dup := plain[ext]; dup {
			return fmt.Errorf("ingest: extension %q listed as both plain and envelope", ext)
		}
	}
	return ensurePositiveMap(map[string]int{
		"ingest.workers":    c.Ingest.Workers,
		"ingest.queue_size": c.Ingest.QueueSize,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
