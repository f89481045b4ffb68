package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables honoured on top of the TOML
// file. LOG_LEVEL and LOG_DIR keep the names operators already use.
type envOverrides struct {
	LogLevel       string `env:"LOG_LEVEL"`
	LogDir         string `env:"LOG_DIR"`
	LogFormat      string `env:"XMLWATCH_LOG_FORMAT"`
	SourceDir      string `env:"XMLWATCH_SOURCE_DIR"`
	DestinationDir string `env:"XMLWATCH_DESTINATION_DIR"`
	StateDir       string `env:"XMLWATCH_STATE_DIR"`
	NtfyTopic      string `env:"XMLWATCH_NTFY_TOPIC"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setIfPresent(&c.Logging.Level, overrides.LogLevel)
	setIfPresent(&c.Paths.LogDir, overrides.LogDir)
	setIfPresent(&c.Logging.Format, overrides.LogFormat)
	setIfPresent(&c.Paths.SourceDir, overrides.SourceDir)
	setIfPresent(&c.Paths.DestinationDir, overrides.DestinationDir)
	setIfPresent(&c.Paths.StateDir, overrides.StateDir)
	setIfPresent(&c.Notifications.NtfyTopic, overrides.NtfyTopic)
	return nil
}

func setIfPresent(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
