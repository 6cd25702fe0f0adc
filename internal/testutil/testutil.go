package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// TestConfig returns a valid configuration whose worker directory and
// output paths live under a temp dir. The required worker files exist.
func TestConfig(t testing.TB) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Worker.ScriptDir = filepath.Join(dir, "worker")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Metrics.Textfile = ""
	cfg.Notifications.Type = "none"
	cfg.Orchestrator.GraceInterval = 50 * time.Millisecond

	if err := os.MkdirAll(cfg.Worker.ScriptDir, 0755); err != nil {
		t.Fatalf("Failed to create worker dir: %v", err)
	}
	for _, name := range cfg.Worker.RequiredFiles {
		if err := os.WriteFile(filepath.Join(cfg.Worker.ScriptDir, name), []byte("# stub\n"), 0644); err != nil {
			t.Fatalf("Failed to create worker file: %v", err)
		}
	}
	return cfg
}

// TestConfigWithInvalidValues returns a config with invalid values for testing validation
func TestConfigWithInvalidValues() *config.Config {
	return &config.Config{
		Worker: config.WorkerConfig{
			Python:          "",  // Invalid
			ResultSuffix:    "/", // Invalid
			DefaultSpeakers: 0,   // Invalid
			DefaultProfile:  "huge",
		},
		Orchestrator: config.OrchestratorConfig{
			GraceInterval: -time.Second, // Invalid
		},
		Notifications: config.NotificationsConfig{
			Type: "invalid", // Invalid
		},
	}
}

// SampleTranscript returns a small two-speaker transcript.
func SampleTranscript() transcript.Transcript {
	return transcript.Transcript{Turns: []transcript.SpeakerTurn{
		{SpeakerID: "说话人1", StartTime: 0, Segments: []transcript.Segment{
			{Text: "大家好", Start: 0, End: 1.5},
			{Text: "今天开会", Start: 1.5, End: 3},
		}},
		{SpeakerID: "说话人2", StartTime: 65, Segments: []transcript.Segment{
			{Text: "好的", Start: 65, End: 66},
		}},
	}}
}

// WriteArtifact writes t as a result document at path.
func WriteArtifact(t testing.TB, path string, tr transcript.Transcript) {
	t.Helper()
	data, err := transcript.MarshalArtifact(tr)
	if err != nil {
		t.Fatalf("Failed to marshal artifact: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t testing.TB, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
