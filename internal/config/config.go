package config

import (
	"time"
)

// EnvPrefix namespaces every environment override, e.g. DIARSCRIBE_WORKER_PYTHON.
const EnvPrefix = "DIARSCRIBE_"

type Config struct {
	Worker        WorkerConfig        `toml:"worker" envPrefix:"WORKER_"`
	Orchestrator  OrchestratorConfig  `toml:"orchestrator" envPrefix:"ORCHESTRATOR_"`
	Output        OutputConfig        `toml:"output" envPrefix:"OUTPUT_"`
	Notifications NotificationsConfig `toml:"notifications" envPrefix:"NOTIFICATIONS_"`
	Logging       LoggingConfig       `toml:"logging" envPrefix:"LOG_"`
	Metrics       MetricsConfig       `toml:"metrics" envPrefix:"METRICS_"`
	History       HistoryConfig       `toml:"history" envPrefix:"HISTORY_"`
}

// WorkerConfig describes how the transcription worker is launched.
type WorkerConfig struct {
	Python        string   `toml:"python" env:"PYTHON"`
	ScriptDir     string   `toml:"script_dir" env:"SCRIPT_DIR"`
	Script        string   `toml:"script" env:"SCRIPT"`
	RequiredFiles []string `toml:"required_files" env:"REQUIRED_FILES" envSeparator:","`
	ResultSuffix  string   `toml:"result_suffix" env:"RESULT_SUFFIX"`
	// defaults for transcribe when flags are omitted
	DefaultSpeakers int    `toml:"default_speakers" env:"DEFAULT_SPEAKERS"`
	DefaultProfile  string `toml:"default_profile" env:"DEFAULT_PROFILE"`
}

type OrchestratorConfig struct {
	GraceInterval time.Duration `toml:"grace_interval" env:"GRACE_INTERVAL"`
}

type OutputConfig struct {
	Dir      string `toml:"dir" env:"DIR"` // empty = next to the source file
	DarkMode bool   `toml:"dark_mode" env:"DARK_MODE"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Type    string `toml:"type" env:"TYPE"` // "desktop", "log", "none"
}

type LoggingConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile path written after each run; empty disables it.
	Textfile string `toml:"textfile" env:"TEXTFILE"`
}

type HistoryConfig struct {
	MaxSnapshots int `toml:"max_snapshots" env:"MAX_SNAPSHOTS"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	ConfigPath      string
	EnvFile         string
	LogLevel        string
	Python          string
	ScriptDir       string
	OutputDir       string
	MetricsTextfile string
	GraceInterval   time.Duration
}
