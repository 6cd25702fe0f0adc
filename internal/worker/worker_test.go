package worker

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSubprocessCommand(t *testing.T) {
	s := NewSubprocess("python3", "/opt/worker", "transcribe.py")
	got := s.Command([]string{"/audio/a.wav", "2", "small"})
	want := []string{"python3", "-u", "/opt/worker/transcribe.py", "/audio/a.wav", "2", "small"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Command() = %v, want %v", got, want)
	}
}

// shWorker runs body with sh; sh accepts -u like python does.
func shWorker(t *testing.T, body string) *Subprocess {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "worker.sh"), []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return NewSubprocess(sh, dir, "worker.sh")
}

func TestSubprocessStreamsOutput(t *testing.T) {
	s := shWorker(t, `echo "PROGRESS:50"; echo "warn $1" >&2; echo "cwd $(basename "$(pwd)")"; exit 4`)

	p, err := s.Start(context.Background(), []string{"a.wav"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.PID() <= 0 {
		t.Errorf("PID() = %d", p.PID())
	}

	stdout, _ := io.ReadAll(p.Stdout())
	stderr, _ := io.ReadAll(p.Stderr())
	code, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	wantOut := "PROGRESS:50\ncwd " + filepath.Base(s.ScriptDir) + "\n"
	if string(stdout) != wantOut {
		t.Errorf("stdout = %q, want %q", stdout, wantOut)
	}
	if strings.TrimSpace(string(stderr)) != "warn a.wav" {
		t.Errorf("stderr = %q", stderr)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("Kill() after exit = %v", err)
	}
}

func TestSubprocessKill(t *testing.T) {
	s := shWorker(t, `echo started; exec sleep 30`)

	p, err := s.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	buf := make([]byte, len("started\n"))
	if _, err := io.ReadFull(p.Stdout(), buf); err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	done := make(chan int, 1)
	go func() {
		io.Copy(io.Discard, p.Stdout())
		io.Copy(io.Discard, p.Stderr())
		code, _ := p.Wait()
		done <- code
	}()
	select {
	case code := <-done:
		if code != -1 {
			t.Errorf("exit code after kill = %d, want -1", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Kill")
	}
}

func TestSubprocessStartError(t *testing.T) {
	s := NewSubprocess(filepath.Join(t.TempDir(), "missing-python"), t.TempDir(), "transcribe.py")
	if _, err := s.Start(context.Background(), nil); err == nil {
		t.Fatal("Start() expected error for missing interpreter")
	}
}
