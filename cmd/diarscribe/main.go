package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/metrics"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "diarscribe",
		Short:         "Speaker-labeled transcription with an editable transcript",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/diarscribe/config.toml)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "env file loaded before the environment is read (default .env)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		transcribeCmd(g),
		editCmd(g),
		exportCmd(g),
		checkCmd(g),
		profilesCmd(g),
		statusCmd(),
		cancelCmd(),
		versionCmd(),
		configCmd(g),
	)
	return root
}

func (g *globalFlags) overrides() config.Overrides {
	return config.Overrides{
		ConfigPath: g.configPath,
		EnvFile:    g.envFile,
		LogLevel:   g.logLevel,
	}
}

// loadConfig loads and validates the configuration with o applied on top.
func loadConfig(o config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(o)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes human-readable logs to w at the configured level.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(level)
}

// exportPath is where the plain-text transcript of source is written.
func exportPath(cfg *config.Config, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".txt"
	if cfg.Output.Dir != "" {
		return filepath.Join(cfg.Output.Dir, base)
	}
	return filepath.Join(filepath.Dir(source), base)
}

// readTranscript loads a result document (.json) or an exported text file.
func readTranscript(path string) (transcript.Transcript, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return transcript.ReadArtifact(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript.Transcript{}, err
	}
	t := transcript.Decode(string(data))
	if len(t.Turns) == 0 {
		return t, fmt.Errorf("%s: %w", path, transcript.ErrNoTurns)
	}
	return t, nil
}

func writeMetrics(cfg *config.Config, rec *metrics.Recorder, log zerolog.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Msg("failed to write metrics")
		return
	}
	log.Debug().Str("path", cfg.Metrics.Textfile).Msg("metrics written")
}
