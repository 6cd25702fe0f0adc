package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeRuntime(found bool, out string, runErr error) (func(string) (string, error), func(context.Context, string, ...string) ([]byte, error)) {
	lookPath := func(name string) (string, error) {
		if !found {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}
	output := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), runErr
	}
	return lookPath, output
}

func TestCheckRuntime(t *testing.T) {
	tests := []struct {
		name        string
		found       bool
		out         string
		runErr      error
		wantOK      bool
		wantVersion string
	}{
		{name: "installed", found: true, out: "Python 3.11.4\n", wantOK: true, wantVersion: "Python 3.11.4"},
		{name: "not in path", found: false},
		{name: "version fails", found: true, runErr: errors.New("exit status 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath, output := fakeRuntime(tt.found, tt.out, tt.runErr)
			c := NewCheckerForTests("python3", t.TempDir(), nil, lookPath, os.Stat, output)

			status := c.CheckRuntime(context.Background())
			if status.Installed != tt.wantOK {
				t.Fatalf("Installed = %v, want %v (%s)", status.Installed, tt.wantOK, status.Message)
			}
			if status.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", status.Version, tt.wantVersion)
			}
			if !tt.wantOK && status.Message == "" {
				t.Error("expected a message for a failed check")
			}
		})
	}
}

func TestCheckRuntimeEmpty(t *testing.T) {
	lookPath, output := fakeRuntime(true, "", nil)
	c := NewCheckerForTests("", t.TempDir(), nil, lookPath, os.Stat, output)
	if c.CheckRuntime(context.Background()).Installed {
		t.Error("empty runtime should not be installed")
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "transcribe.py"), []byte("print()"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "models"), 0755); err != nil {
		t.Fatal(err)
	}

	lookPath, output := fakeRuntime(true, "", nil)
	c := NewCheckerForTests("python3", dir, nil, lookPath, os.Stat, output)

	if s := c.CheckFile("transcribe.py"); !s.Installed {
		t.Errorf("transcribe.py should be present: %s", s.Message)
	}
	if s := c.CheckFile("whisper_transcriber.py"); s.Installed || !strings.Contains(s.Message, "not found") {
		t.Errorf("unexpected status for missing file: %+v", s)
	}
	if s := c.CheckFile("models"); s.Installed {
		t.Error("directory must not satisfy a file requirement")
	}
}

func TestRunReportsFirstMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "transcribe.py"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	lookPath, output := fakeRuntime(true, "Python 3.12.0", nil)
	c := NewCheckerForTests("python3", dir, []string{"transcribe.py", "whisper_transcriber.py"}, lookPath, os.Stat, output)

	report := c.Run(context.Background())
	if len(report.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(report.Items))
	}
	if report.Ready() {
		t.Fatal("report should not be ready")
	}

	err := report.Err()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingError, got %T", err)
	}
	if missing.Name != "whisper_transcriber.py" {
		t.Errorf("missing = %q, want whisper_transcriber.py", missing.Name)
	}
}

func TestRunReady(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"transcribe.py", "whisper_transcriber.py"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	lookPath, output := fakeRuntime(true, "Python 3.12.0", nil)
	c := NewCheckerForTests("python3", dir, []string{"transcribe.py", "whisper_transcriber.py"}, lookPath, os.Stat, output)

	report := c.Run(context.Background())
	if !report.Ready() {
		t.Fatalf("expected ready, missing: %+v", report.Missing())
	}
	if report.Err() != nil {
		t.Errorf("Err() = %v, want nil", report.Err())
	}
}

func TestRunMissingRuntimeComesFirst(t *testing.T) {
	lookPath, output := fakeRuntime(false, "", nil)
	c := NewCheckerForTests("python3", t.TempDir(), []string{"transcribe.py"}, lookPath, os.Stat, output)

	missing := c.Run(context.Background()).Missing()
	if missing == nil || missing.Name != "python3" {
		t.Fatalf("expected python3 to be reported missing, got %+v", missing)
	}
}
