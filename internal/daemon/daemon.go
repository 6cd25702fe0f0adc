package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/bus"
	"github.com/leonardotrapani/diarscribe/internal/job"
)

// Controller is the part of the orchestrator the control socket exposes.
type Controller interface {
	Jobs() []job.Info
	Cancel(jobID string) error
}

// Daemon answers control commands for the jobs of this process.
type Daemon struct {
	ctrl  Controller
	paths bus.Paths
	log   zerolog.Logger

	listen func() (net.Listener, error)
	wg     sync.WaitGroup
}

func New(ctrl Controller, paths bus.Paths, log zerolog.Logger) *Daemon {
	return &Daemon{ctrl: ctrl, paths: paths, log: log, listen: paths.Listen}
}

// Run serves the control socket until ctx is done. It returns only after
// every in-flight command has been answered.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.paths.CheckExisting(); err != nil {
		return err
	}

	ln, err := d.listen()
	if err != nil {
		return err
	}
	defer ln.Close()
	defer d.wg.Wait()

	if err := d.paths.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer d.paths.RemovePidFile()

	// Close the listener when context is done
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	d.log.Debug().Str("socket", d.paths.Sock()).Msg("control socket listening")

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handle(c)
		}()
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.log.Warn().Err(err).Msg("client read error")
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "s":
		data, err := json.Marshal(d.ctrl.Jobs())
		if err != nil {
			fmt.Fprintf(c, "ERR encode: %v\n", err)
			return
		}
		fmt.Fprintf(c, "STATUS %s\n", data)
	case "c":
		id := strings.TrimSpace(arg)
		if id == "" {
			fmt.Fprint(c, "ERR missing_job_id\n")
			return
		}
		switch err := d.ctrl.Cancel(id); {
		case err == nil:
			d.log.Info().Str("job_id", id).Msg("cancel requested over control socket")
			fmt.Fprintf(c, "OK cancelled=%s\n", id)
		case errors.Is(err, job.ErrJobNotFound):
			fmt.Fprintf(c, "ERR not_found=%s\n", id)
		case errors.Is(err, job.ErrJobFinished):
			fmt.Fprintf(c, "ERR finished=%s\n", id)
		default:
			fmt.Fprintf(c, "ERR %v\n", err)
		}
	case "v":
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	default:
		d.log.Warn().Str("command", cmd).Msg("unknown control command")
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}
