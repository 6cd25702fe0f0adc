package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/diarscribe/internal/history"
	"github.com/leonardotrapani/diarscribe/internal/metrics"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
	"github.com/leonardotrapani/diarscribe/internal/tui"
	"github.com/leonardotrapani/diarscribe/internal/watch"
)

func editCmd(g *globalFlags) *cobra.Command {
	var (
		output   string
		follow   bool
		textfile string
	)
	cmd := &cobra.Command{
		Use:   "edit <result.json|transcript.txt>",
		Short: "Edit a transcript: fix text, rename and merge speakers",
		Long: `Opens the interactive editor on a result document or an exported
transcript. Edits can be undone and redone until you quit.

With --watch the transcript is written as plain text and every save of that
file from another editor is applied as one undoable edit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := g.overrides()
			o.MetricsTextfile = textfile
			cfg, err := loadConfig(o)
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			out := cmd.OutOrStdout()
			tui.Setup(out, cfg.Output.DarkMode)

			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = exportPath(cfg, args[0])
			}
			h := history.New(t, history.Options{MaxSnapshots: cfg.History.MaxSnapshots})
			rec := metrics.New()
			defer writeMetrics(cfg, rec, log)

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				fmt.Fprintf(out, "watching %s (ctrl+c to stop)\n", output)
				s := &watch.Session{
					History: h,
					Log:     log.With().Str("component", "watch").Logger(),
					OnApply: func(cur transcript.Transcript) {
						rec.EditApplied("text")
						fmt.Fprintf(out, "applied edit: %d turns, speakers %s\n", len(cur.Turns), strings.Join(cur.Speakers(), ", "))
					},
				}
				return s.Follow(ctx, output)
			}

			editor := &tui.Editor{
				History:    h,
				Prompter:   tui.HuhPrompter{Out: out},
				Metrics:    rec,
				ExportPath: output,
				Out:        out,
				Log:        log.With().Str("component", "editor").Logger(),
			}
			return editor.Run()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "export path (default next to the input)")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "apply external edits of the exported text file")
	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write prometheus metrics to this file")
	return cmd
}
