package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/diarscribe/internal/bus"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/daemon"
	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/history"
	"github.com/leonardotrapani/diarscribe/internal/job"
	"github.com/leonardotrapani/diarscribe/internal/metrics"
	"github.com/leonardotrapani/diarscribe/internal/notify"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
	"github.com/leonardotrapani/diarscribe/internal/tui"
	"github.com/leonardotrapani/diarscribe/internal/worker"
)

type transcribeFlags struct {
	speakers        int
	profile         string
	interactive     bool
	edit            bool
	plain           bool
	python          string
	scriptDir       string
	outputDir       string
	metricsTextfile string
	grace           time.Duration
}

func transcribeCmd(g *globalFlags) *cobra.Command {
	f := &transcribeFlags{}
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file with speaker labels",
		Long: `Runs the transcription worker on an audio file, shows its progress and
recovers the speaker-labeled result it writes next to the audio.

The plain-text transcript is exported next to the audio file (or into
output.dir). Use --edit to open the transcript editor afterwards.

Press ctrl+c to cancel; other terminals can use "diarscribe cancel <job-id>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, g, f, args[0])
		},
	}
	cmd.Flags().IntVarP(&f.speakers, "speakers", "n", 0, "number of speakers (default worker.default_speakers)")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "model tier: tiny, base, small, medium, large")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "ask for speakers and model before starting")
	cmd.Flags().BoolVarP(&f.edit, "edit", "e", false, "open the editor when the transcription succeeds")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "print progress as lines instead of the progress view")
	cmd.Flags().StringVar(&f.python, "python", "", "python interpreter for the worker")
	cmd.Flags().StringVar(&f.scriptDir, "script-dir", "", "directory holding the worker scripts")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "directory for the exported transcript")
	cmd.Flags().StringVar(&f.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file")
	cmd.Flags().DurationVar(&f.grace, "grace", 0, "how long to wait for a late result file")
	return cmd
}

func runTranscribe(cmd *cobra.Command, g *globalFlags, f *transcribeFlags, source string) error {
	o := g.overrides()
	o.Python = f.python
	o.ScriptDir = f.scriptDir
	o.OutputDir = f.outputDir
	o.MetricsTextfile = f.metricsTextfile
	o.GraceInterval = f.grace

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()
	tui.Setup(out, cfg.Output.DarkMode)

	params := tui.JobParams{SpeakerCount: cfg.Worker.DefaultSpeakers, Profile: cfg.Worker.DefaultProfile}
	if f.speakers != 0 {
		params.SpeakerCount = f.speakers
	}
	if f.profile != "" {
		params.Profile = f.profile
	}
	if f.interactive {
		if params, err = tui.PromptJob(params); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	orch := newOrchestrator(cfg, rec, log)
	notifier := notify.New(cfg.Notifications.Type, log)
	if !cfg.Notifications.Enabled {
		notifier = notify.Nop{}
	}

	waitControl := startControlSocket(ctx, orch, log)
	defer func() {
		stop()
		waitControl()
	}()

	h, err := orch.Submit(ctx, job.Request{
		SourcePath:   source,
		SpeakerCount: params.SpeakerCount,
		Profile:      params.Profile,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "job %s\n", h.ID())

	if f.plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		tui.PlainProgress(h.Events(), out)
	} else {
		cancel := func() error { return orch.Cancel(h.ID()) }
		if _, err := tui.RunProgress(source, h.Events(), cancel, cmd.InOrStdin(), out); err != nil {
			// the view failed; keep the job running and fall back to plain output
			log.Warn().Err(err).Msg("progress view unavailable")
		}
	}

	result, jobErr := h.Wait(context.WithoutCancel(ctx))
	notify.JobOutcome(notifier, source, len(result.Turns), jobErr)
	writeMetrics(cfg, rec, log)
	if jobErr != nil {
		return jobErr
	}

	target := exportPath(cfg, source)
	if err := transcript.WriteFile(target, result); err != nil {
		return err
	}
	fmt.Fprintf(out, "transcript written to %s\n", target)

	if !f.edit {
		return nil
	}
	editor := &tui.Editor{
		History:    history.New(result, history.Options{MaxSnapshots: cfg.History.MaxSnapshots}),
		Prompter:   tui.HuhPrompter{Out: out},
		Metrics:    rec,
		ExportPath: target,
		Out:        out,
		Log:        log.With().Str("component", "editor").Logger(),
	}
	err = editor.Run()
	writeMetrics(cfg, rec, log)
	return err
}

func newOrchestrator(cfg *config.Config, rec *metrics.Recorder, log zerolog.Logger) *job.Orchestrator {
	return job.New(job.Options{
		Worker:        worker.NewSubprocess(cfg.Worker.Python, cfg.Worker.ScriptDir, cfg.Worker.Script),
		Checker:       deps.NewChecker(cfg.Worker.Python, cfg.Worker.ScriptDir, cfg.Worker.RequiredFiles),
		ResultSuffix:  cfg.Worker.ResultSuffix,
		GraceInterval: cfg.Orchestrator.GraceInterval,
		Metrics:       rec,
		Log:           log.With().Str("component", "orchestrator").Logger(),
	})
}

// startControlSocket serves status and cancel requests for the jobs of this
// process. Another running instance owns the socket; this one then runs
// without it. The returned func waits for the server to stop after ctx is
// done.
func startControlSocket(ctx context.Context, orch *job.Orchestrator, log zerolog.Logger) func() {
	paths, err := bus.DefaultPaths()
	if err != nil {
		log.Warn().Err(err).Msg("control socket disabled")
		return func() {}
	}
	d := daemon.New(orch, paths, log.With().Str("component", "control").Logger())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("control socket disabled")
		}
	}()
	return func() { <-done }
}
