package daemon

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/bus"
	"github.com/leonardotrapani/diarscribe/internal/job"
)

// Client talks to a Daemon over its control socket.
type Client struct {
	Paths bus.Paths
}

// Status lists the jobs of the running process.
func (c Client) Status() ([]job.Info, error) {
	resp, err := c.Paths.SendCommand("s")
	if err != nil {
		return nil, fmt.Errorf("no running transcription: %w", err)
	}
	payload, ok := strings.CutPrefix(resp, "STATUS ")
	if !ok {
		return nil, fmt.Errorf("unexpected reply: %s", resp)
	}
	var jobs []job.Info
	if err := json.Unmarshal([]byte(payload), &jobs); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return jobs, nil
}

// Cancel asks the running process to cancel one job.
func (c Client) Cancel(jobID string) error {
	resp, err := c.Paths.SendCommand("c " + jobID)
	if err != nil {
		return fmt.Errorf("no running transcription: %w", err)
	}
	switch {
	case strings.HasPrefix(resp, "OK "):
		return nil
	case strings.HasPrefix(resp, "ERR not_found"):
		return fmt.Errorf("%w: %s", job.ErrJobNotFound, jobID)
	case strings.HasPrefix(resp, "ERR finished"):
		return fmt.Errorf("%w: %s", job.ErrJobFinished, jobID)
	default:
		return fmt.Errorf("cancel failed: %s", resp)
	}
}

// Version returns the protocol version of the running process.
func (c Client) Version() (string, error) {
	resp, err := c.Paths.SendCommand("v")
	if err != nil {
		return "", err
	}
	v, ok := strings.CutPrefix(resp, "STATUS proto=")
	if !ok {
		return "", fmt.Errorf("unexpected reply: %s", resp)
	}
	return v, nil
}
