package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveDefaultConfig writes a commented default configuration to path.
// An empty path means GetConfigPath.
func SaveDefaultConfig(path string) (string, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(defaultTemplate(DefaultConfig())); err != nil {
		return "", fmt.Errorf("failed to write config content: %w", err)
	}
	return path, nil
}

func defaultTemplate(d *Config) string {
	files := make([]string, len(d.Worker.RequiredFiles))
	for i, f := range d.Worker.RequiredFiles {
		files[i] = fmt.Sprintf("%q", f)
	}

	return fmt.Sprintf(`# diarscribe configuration
# Environment variables prefixed with DIARSCRIBE_ override these values
# (e.g. DIARSCRIBE_WORKER_PYTHON, DIARSCRIBE_LOG_LEVEL).

# Transcription worker
[worker]
  python = %q               # Interpreter used to run the worker
  script_dir = %q
  script = %q      # Entry point, called as: script <audio> <speakers> <profile>
  required_files = [%s]
  result_suffix = %q   # Result is written to <audio without ext><suffix>.json
  default_speakers = %d             # Used when --speakers is omitted
  default_profile = %q        # tiny, base, small, medium, large

# Job orchestration
[orchestrator]
  grace_interval = %q          # Wait before re-checking a missing result (once)

# Export
[output]
  dir = %q                       # Default export directory (empty = next to the audio file)
  dark_mode = %t               # Editor color theme

# Job outcome notifications
[notifications]
  enabled = %t
  type = %q                  # "desktop", "log", "none"

[logging]
  level = %q                # trace, debug, info, warn, error

[metrics]
  textfile = %q                  # node-exporter textfile path (empty = disabled)

# Editor undo history
[history]
  max_snapshots = %d
`,
		d.Worker.Python, d.Worker.ScriptDir, d.Worker.Script, strings.Join(files, ", "),
		d.Worker.ResultSuffix, d.Worker.DefaultSpeakers, d.Worker.DefaultProfile,
		d.Orchestrator.GraceInterval.String(),
		d.Output.Dir, d.Output.DarkMode,
		d.Notifications.Enabled, d.Notifications.Type,
		d.Logging.Level,
		d.Metrics.Textfile,
		d.History.MaxSnapshots,
	)
}
