package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/worker"
)

// HelloArtifact is a minimal valid result document.
const HelloArtifact = `{"segments":[{"speakerId":"说话人1","startTime":0,"segments":[{"text":"hello","start":0,"end":1}]}]}`

// DefaultSuffix mirrors the orchestrator's default result suffix.
const DefaultSuffix = "_说话人识别结果"

// MockWorker implements worker.Worker with a scripted process.
type MockWorker struct {
	Stdout     []string
	Stderr     []string
	ExitCode   int
	StartError error

	// Artifact is written next to the source before the process exits.
	Artifact []byte
	// ArtifactDelay postpones the artifact write until after exit.
	ArtifactDelay time.Duration
	Suffix        string

	// Block keeps the process alive after its output until Kill.
	Block bool
	// LineDelay is slept between stdout lines.
	LineDelay time.Duration

	mu      sync.Mutex
	calls   [][]string
	started chan struct{}
	procs   []*MockProcess
}

// NewMockWorker creates a worker that exits 0 after printing lines.
func NewMockWorker(lines ...string) *MockWorker {
	return &MockWorker{Stdout: lines}
}

// Started is closed once the first process has been started.
func (m *MockWorker) Started() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started == nil {
		m.started = make(chan struct{})
	}
	return m.started
}

// Calls returns the argument lists Start was invoked with.
func (m *MockWorker) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Killed reports whether any started process was killed.
func (m *MockWorker) Killed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.procs {
		select {
		case <-p.killed:
			return true
		default:
		}
	}
	return false
}

func (m *MockWorker) Start(ctx context.Context, args []string) (worker.Process, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), args...))
	m.mu.Unlock()

	if m.StartError != nil {
		return nil, m.StartError
	}

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	p := &MockProcess{
		stdout: outR,
		stderr: errR,
		outW:   outW,
		errW:   errW,
		done:   make(chan struct{}),
		killed: make(chan struct{}),
	}

	var artifactPath string
	if m.Artifact != nil && len(args) > 0 {
		suffix := m.Suffix
		if suffix == "" {
			suffix = DefaultSuffix
		}
		artifactPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + suffix + ".json"
	}

	go m.run(p, artifactPath)

	m.mu.Lock()
	m.procs = append(m.procs, p)
	if m.started == nil {
		m.started = make(chan struct{})
	}
	select {
	case <-m.started:
	default:
		close(m.started)
	}
	m.mu.Unlock()

	return p, nil
}

func (m *MockWorker) run(p *MockProcess, artifactPath string) {
	defer close(p.done)

	for _, line := range m.Stderr {
		if _, err := io.WriteString(p.errW, line+"\n"); err != nil {
			break
		}
	}
	p.errW.Close()

	for _, line := range m.Stdout {
		if p.isKilled() {
			break
		}
		if m.LineDelay > 0 {
			time.Sleep(m.LineDelay)
		}
		if _, err := io.WriteString(p.outW, line+"\n"); err != nil {
			break
		}
	}

	if artifactPath != "" && m.ArtifactDelay == 0 && !p.isKilled() {
		_ = os.WriteFile(artifactPath, m.Artifact, 0644)
	}
	p.outW.Close()

	if m.Block {
		<-p.killed
	}
	if p.isKilled() {
		p.exitCode = -1
		return
	}
	p.exitCode = m.ExitCode

	if artifactPath != "" && m.ArtifactDelay > 0 {
		data := m.Artifact
		time.AfterFunc(m.ArtifactDelay, func() {
			_ = os.WriteFile(artifactPath, data, 0644)
		})
	}
}

// MockProcess implements worker.Process.
type MockProcess struct {
	stdout *io.PipeReader
	stderr *io.PipeReader
	outW   *io.PipeWriter
	errW   *io.PipeWriter

	done     chan struct{}
	exitCode int

	killOnce sync.Once
	killed   chan struct{}
}

func (p *MockProcess) Stdout() io.Reader { return p.stdout }
func (p *MockProcess) Stderr() io.Reader { return p.stderr }
func (p *MockProcess) PID() int          { return 4242 }

func (p *MockProcess) Wait() (int, error) {
	<-p.done
	return p.exitCode, nil
}

func (p *MockProcess) Kill() error {
	p.killOnce.Do(func() {
		close(p.killed)
		p.outW.Close()
		p.errW.Close()
	})
	return nil
}

func (p *MockProcess) isKilled() bool {
	select {
	case <-p.killed:
		return true
	default:
		return false
	}
}

// StaticChecker is a readiness checker returning a fixed report.
type StaticChecker struct {
	Report deps.Report
}

func (c StaticChecker) Run(context.Context) deps.Report { return c.Report }

// MissingDependency returns a checker reporting name as absent.
func MissingDependency(name string) StaticChecker {
	return StaticChecker{Report: deps.Report{Items: []deps.Status{
		{Name: name, Installed: false, Message: "not found"},
	}}}
}

// CreateSourceFile writes a placeholder audio file and returns its path.
func CreateSourceFile(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0644); err != nil {
		t.Fatalf("Failed to create source file: %v", err)
	}
	return path
}
