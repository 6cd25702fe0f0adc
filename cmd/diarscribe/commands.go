package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/diarscribe/internal/bus"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/daemon"
	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
	"github.com/leonardotrapani/diarscribe/internal/tui"
)

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		output string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "export <result.json>",
		Short: "Convert a result document to the plain-text transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := transcript.MarshalArtifact(t)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				return os.WriteFile(output, data, 0644)
			}
			if output == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), transcript.Encode(t))
				return err
			}
			if output == "" {
				cfg, err := loadConfig(g.overrides())
				if err != nil {
					return err
				}
				output = exportPath(cfg, args[0])
			}
			if err := transcript.WriteFile(output, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transcript written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path, "-" for stdout`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the normalized result document instead of text")
	return cmd
}

func checkCmd(g *globalFlags) *cobra.Command {
	var python, scriptDir string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the worker runtime and scripts are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			o := g.overrides()
			o.Python = python
			o.ScriptDir = scriptDir
			cfg, err := loadConfig(o)
			if err != nil {
				return err
			}
			tui.Setup(cmd.OutOrStdout(), cfg.Output.DarkMode)

			report := deps.NewChecker(cfg.Worker.Python, cfg.Worker.ScriptDir, cfg.Worker.RequiredFiles).Run(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderReport(report))
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&python, "python", "", "python interpreter for the worker")
	cmd.Flags().StringVar(&scriptDir, "script-dir", "", "directory holding the worker scripts")
	return cmd
}

func profilesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the model tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.overrides())
			if err != nil {
				return err
			}
			tui.Setup(cmd.OutOrStdout(), cfg.Output.DarkMode)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderProfiles(cfg.Worker.DefaultProfile))
			return nil
		},
	}
}

func client() (daemon.Client, error) {
	paths, err := bus.DefaultPaths()
	if err != nil {
		return daemon.Client{}, err
	}
	return daemon.Client{Paths: paths}, nil
}

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the jobs of the running transcription",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			jobs, err := c.Status()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tSTATE\tPROGRESS\tSOURCE")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n", j.ID, j.State, j.Percent, j.SourcePath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print job info as JSON")
	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			if err := c.Cancel(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get the control protocol version of the running transcription",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			v, err := c.Version()
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "proto=%s\n", v)
			return nil
		},
	}
}

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			written, err := config.SaveDefaultConfig(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", written)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
