package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			Python:          "python3",
			ScriptDir:       defaultScriptDir(),
			Script:          "transcribe.py",
			RequiredFiles:   []string{"transcribe.py", "whisper_transcriber.py"},
			ResultSuffix:    "_说话人识别结果",
			DefaultSpeakers: 2,
			DefaultProfile:  "small",
		},
		Orchestrator: OrchestratorConfig{
			GraceInterval: 2 * time.Second,
		},
		Output: OutputConfig{
			Dir:      "",
			DarkMode: false,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			MaxSnapshots: 200,
		},
	}
}

func defaultScriptDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "worker"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "diarscribe", "worker")
}
