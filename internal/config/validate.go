package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/profile"
)

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Worker.Python) == "" {
		return fmt.Errorf("invalid worker.python: empty")
	}
	if strings.TrimSpace(c.Worker.ScriptDir) == "" {
		return fmt.Errorf("invalid worker.script_dir: empty")
	}
	if strings.TrimSpace(c.Worker.Script) == "" {
		return fmt.Errorf("invalid worker.script: empty")
	}
	for _, f := range c.Worker.RequiredFiles {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("invalid worker.required_files: empty entry")
		}
	}
	if c.Worker.ResultSuffix == "" {
		return fmt.Errorf("invalid worker.result_suffix: empty")
	}
	if strings.ContainsAny(c.Worker.ResultSuffix, `/\`) {
		return fmt.Errorf("invalid worker.result_suffix: %q (must not contain path separators)", c.Worker.ResultSuffix)
	}
	if c.Worker.DefaultSpeakers <= 0 {
		return fmt.Errorf("invalid worker.default_speakers: %d", c.Worker.DefaultSpeakers)
	}
	if !profile.Valid(c.Worker.DefaultProfile) {
		return fmt.Errorf("invalid worker.default_profile: %s (must be one of %s)", c.Worker.DefaultProfile, strings.Join(profile.IDs(), ", "))
	}

	if c.Orchestrator.GraceInterval <= 0 {
		return fmt.Errorf("invalid orchestrator.grace_interval: %v", c.Orchestrator.GraceInterval)
	}

	switch c.Notifications.Type {
	case "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.History.MaxSnapshots <= 0 {
		return fmt.Errorf("invalid history.max_snapshots: %d", c.History.MaxSnapshots)
	}

	return nil
}
