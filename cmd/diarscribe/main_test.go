package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/testutil"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// isolate keeps commands away from the user's config, .env and sockets.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExportPath(t *testing.T) {
	tests := []struct {
		name   string
		outDir string
		source string
		want   string
	}{
		{"next to source", "", "/audio/meeting.wav", "/audio/meeting.txt"},
		{"output dir", "/exports", "/audio/meeting.wav", "/exports/meeting.txt"},
		{"result document", "", "/audio/meeting_说话人识别结果.json", "/audio/meeting_说话人识别结果.txt"},
		{"no extension", "", "/audio/raw", "/audio/raw.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Output.Dir = tt.outDir
			assert.Equal(t, tt.want, exportPath(cfg, tt.source))
		})
	}
}

func TestReadTranscript(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "a.json")
	testutil.WriteArtifact(t, jsonPath, testutil.SampleTranscript())
	got, err := readTranscript(jsonPath)
	require.NoError(t, err)
	assert.True(t, testutil.SampleTranscript().Equal(got))

	txtPath := filepath.Join(dir, "a.txt")
	require.NoError(t, transcript.WriteFile(txtPath, testutil.SampleTranscript()))
	got, err = readTranscript(txtPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"说话人1", "说话人2"}, got.Speakers())

	emptyPath := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(emptyPath, []byte("no headers\n"), 0644))
	_, err = readTranscript(emptyPath)
	assert.ErrorIs(t, err, transcript.ErrNoTurns)

	_, err = readTranscript(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportCommand(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "meeting_说话人识别结果.json")
	testutil.WriteArtifact(t, src, testutil.SampleTranscript())

	t.Run("stdout", func(t *testing.T) {
		out, _, err := execute(t, "export", src, "-o", "-")
		require.NoError(t, err)
		assert.Equal(t, transcript.Encode(testutil.SampleTranscript())+"\n", out)
	})

	t.Run("default path", func(t *testing.T) {
		out, _, err := execute(t, "export", src)
		require.NoError(t, err)
		want := filepath.Join(dir, "meeting_说话人识别结果.txt")
		assert.Contains(t, out, want)

		data, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "说话人1 [0:00]\n大家好\n"))
		assert.Contains(t, string(data), "\n\n说话人2 [1:05]\n好的\n")
	})

	t.Run("json normalizes bom", func(t *testing.T) {
		bom := filepath.Join(dir, "bom.json")
		require.NoError(t, os.WriteFile(bom, append([]byte{0xEF, 0xBB, 0xBF}, []byte(testutil.HelloArtifact)...), 0644))
		out, _, err := execute(t, "export", "--json", bom)
		require.NoError(t, err)
		parsed, err := transcript.ParseArtifact([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, "hello", parsed.Turns[0].Segments[0].Text)
		assert.False(t, strings.HasPrefix(out, "\xEF\xBB\xBF"))
	})

	t.Run("corrupt input", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"segments":`), 0644))
		_, _, err := execute(t, "export", bad, "-o", "-")
		assert.Error(t, err)
	})
}

func TestProfilesCommand(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "profiles")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5)
	for _, l := range lines {
		if strings.Contains(l, "small") {
			assert.Contains(t, l, "*")
		}
	}
}

func TestCheckCommandReportsMissingRuntime(t *testing.T) {
	dir := isolate(t)
	out, _, err := execute(t, "check", "--python", filepath.Join(dir, "no-such-python"), "--script-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependency")
	assert.Contains(t, out, "no-such-python")
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "config.toml")

	out, _, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, _, err = execute(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, _, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	cfg, err := config.Load(config.Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	isolate(t)
	path := testutil.CreateTempConfigFile(t, "[worker]\ndefault_speakers = 0\n")
	_, _, err := execute(t, "--config", path, "profiles")
	assert.ErrorContains(t, err, "invalid worker.default_speakers")
}

func TestLoadConfigValidates(t *testing.T) {
	assert.Error(t, testutil.TestConfigWithInvalidValues().Validate())
	assert.NoError(t, testutil.TestConfig(t).Validate())
}

func TestControlCommandsWithoutRunningJob(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{"status"}, {"cancel", "abc"}, {"version"}} {
		_, _, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}
