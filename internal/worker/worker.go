package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Worker starts one transcription process. Implementations can wrap any
// executable that follows the progress line protocol and writes a result
// artifact next to the source file.
type Worker interface {
	Start(ctx context.Context, args []string) (Process, error)
}

// Process is a running worker.
type Process interface {
	// Stdout is the progress/log channel. It reaches EOF when the process
	// closes its output.
	Stdout() io.Reader
	// Stderr carries diagnostics; it may be nil.
	Stderr() io.Reader
	// Wait blocks until exit. A non-zero exit is reported through the code,
	// not the error; the error is reserved for failures to wait at all.
	Wait() (exitCode int, err error)
	// Kill terminates the process. Killing an exited process is a no-op.
	Kill() error
	PID() int
}

// Subprocess runs a script through an interpreter, e.g.
// `python3 -u transcribe.py <args...>`.
type Subprocess struct {
	Interpreter string
	// InterpreterArgs precede the script path; "-u" keeps python unbuffered
	// so progress lines arrive while the job runs.
	InterpreterArgs []string
	ScriptDir       string
	Script          string
	Env             []string
}

// NewSubprocess creates a worker for script inside scriptDir.
func NewSubprocess(interpreter, scriptDir, script string) *Subprocess {
	return &Subprocess{
		Interpreter:     interpreter,
		InterpreterArgs: []string{"-u"},
		ScriptDir:       scriptDir,
		Script:          script,
	}
}

// Command returns the argv the worker will execute.
func (s *Subprocess) Command(args []string) []string {
	argv := []string{s.Interpreter}
	argv = append(argv, s.InterpreterArgs...)
	argv = append(argv, filepath.Join(s.ScriptDir, s.Script))
	return append(argv, args...)
}

func (s *Subprocess) Start(ctx context.Context, args []string) (Process, error) {
	argv := s.Command(args)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.ScriptDir
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.Script, err)
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader

	mu     sync.Mutex
	exited bool
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) PID() int          { return p.cmd.Process.Pid }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when terminated by a signal
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
