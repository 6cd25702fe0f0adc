package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Message   string
}

// Report is the outcome of one readiness check.
type Report struct {
	Items []Status
}

// Ready reports whether every dependency is installed.
func (r Report) Ready() bool {
	return r.Missing() == nil
}

// Missing returns the first dependency that is not installed, or nil.
func (r Report) Missing() *Status {
	for i := range r.Items {
		if !r.Items[i].Installed {
			return &r.Items[i]
		}
	}
	return nil
}

// Err returns an error naming the first missing dependency.
func (r Report) Err() error {
	m := r.Missing()
	if m == nil {
		return nil
	}
	return &MissingError{Name: m.Name, Message: m.Message}
}

// MissingError names a dependency the worker cannot run without.
type MissingError struct {
	Name    string
	Message string
}

func (e *MissingError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("missing dependency: %s", e.Name)
	}
	return fmt.Sprintf("missing dependency %s: %s", e.Name, e.Message)
}

// Checker validates that the worker runtime and its files are available.
type Checker struct {
	Runtime       string
	ScriptDir     string
	RequiredFiles []string

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(runtime, scriptDir string, requiredFiles []string) *Checker {
	return &Checker{
		Runtime:       runtime,
		ScriptDir:     scriptDir,
		RequiredFiles: requiredFiles,
		lookPath:      exec.LookPath,
		stat:          os.Stat,
		output:        combinedOutput,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	runtime, scriptDir string,
	requiredFiles []string,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	output func(ctx context.Context, name string, args ...string) ([]byte, error),
) *Checker {
	return &Checker{
		Runtime:       runtime,
		ScriptDir:     scriptDir,
		RequiredFiles: requiredFiles,
		lookPath:      lookPath,
		stat:          stat,
		output:        output,
	}
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Run executes every check. It does not stop at the first failure so the
// report can list all problems.
func (c *Checker) Run(ctx context.Context) Report {
	items := []Status{c.CheckRuntime(ctx)}
	for _, name := range c.RequiredFiles {
		items = append(items, c.CheckFile(name))
	}
	return Report{Items: items}
}

// CheckRuntime checks that the interpreter resolves and answers --version.
func (c *Checker) CheckRuntime(ctx context.Context) Status {
	status := Status{Name: c.Runtime}
	if strings.TrimSpace(c.Runtime) == "" {
		status.Message = "no runtime configured"
		return status
	}

	path, err := c.lookPath(c.Runtime)
	if err != nil {
		status.Message = "not found in PATH"
		return status
	}
	status.Path = path

	out, err := c.output(ctx, path, "--version")
	if err != nil {
		status.Message = fmt.Sprintf("%s --version failed: %v", c.Runtime, err)
		return status
	}

	// python 2 printed its version to stderr, so combined output is parsed
	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 {
		status.Version = strings.TrimSpace(lines[0])
	}
	status.Installed = true
	return status
}

// CheckFile checks that a worker file exists in the script directory.
func (c *Checker) CheckFile(name string) Status {
	path := filepath.Join(c.ScriptDir, name)
	status := Status{Name: name, Path: path}

	info, err := c.stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		status.Message = fmt.Sprintf("not found at %s", path)
	case err != nil:
		status.Message = fmt.Sprintf("cannot access %s: %v", path, err)
	case info.IsDir():
		status.Message = fmt.Sprintf("%s is a directory", path)
	default:
		status.Installed = true
	}
	return status
}
