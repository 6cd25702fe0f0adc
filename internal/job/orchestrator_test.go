package job

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/diarscribe/internal/testutil"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
	"github.com/leonardotrapani/diarscribe/internal/worker"
)

func newTestOrchestrator(w worker.Worker, grace time.Duration) *Orchestrator {
	return New(Options{
		Worker:        w,
		Checker:       testutil.StaticChecker{},
		GraceInterval: grace,
		Log:           zerolog.Nop(),
	})
}

func collect(t *testing.T, h *Handle) []Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	var events []Event
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for job events")
		}
	}
}

func wait(t *testing.T, h *Handle) (transcript.Transcript, error) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	return h.Wait(ctx)
}

func terminal(t *testing.T, events []Event) Event {
	t.Helper()
	require.NotEmpty(t, events)
	for _, ev := range events[:len(events)-1] {
		require.False(t, ev.Terminal(), "terminal event before end of stream: %+v", ev)
	}
	last := events[len(events)-1]
	require.True(t, last.Terminal(), "stream must end with a terminal event")
	return last
}

func request(t *testing.T) Request {
	return Request{SourcePath: testutil.CreateSourceFile(t, "meeting.wav"), SpeakerCount: 2, Profile: "small"}
}

func TestSubmitSucceeds(t *testing.T) {
	w := testutil.NewMockWorker("PROGRESS:10", "loading model", "PROGRESS:50", "PROGRESS:100")
	w.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(w, 50*time.Millisecond)

	req := request(t)
	h, err := o.Submit(context.Background(), req)
	require.NoError(t, err)

	events := collect(t, h)
	last := terminal(t, events)
	require.Equal(t, EventTypeResult, last.Type)
	require.NotNil(t, last.Result)
	require.Len(t, last.Result.Turns, 1)
	assert.Equal(t, "说话人1", last.Result.Turns[0].SpeakerID)
	require.Len(t, last.Result.Turns[0].Segments, 1)
	assert.Equal(t, "hello", last.Result.Turns[0].Segments[0].Text)

	var logs []string
	for _, ev := range events {
		if ev.Type == EventTypeLog {
			logs = append(logs, ev.Text)
		}
		assert.Equal(t, h.ID(), ev.JobID)
	}
	assert.Equal(t, []string{"loading model"}, logs)

	assert.Equal(t, [][]string{{req.SourcePath, "2", "small"}}, w.Calls())

	info, ok := o.Job(h.ID())
	require.True(t, ok)
	assert.Equal(t, StateSucceeded, info.State)
	assert.Equal(t, 100, info.Percent)

	got, err := wait(t, h)
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)

	require.NoError(t, o.Release(h.ID()))
	_, ok = o.Job(h.ID())
	assert.False(t, ok)
}

func TestProgressNeverRegresses(t *testing.T) {
	w := testutil.NewMockWorker("PROGRESS:-5", "PROGRESS:40", " PROGRESS:20 ", "PROGRESS:150", "PROGRESS:90")
	w.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(w, 50*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)

	var got []int
	for _, ev := range collect(t, h) {
		if ev.Type == EventTypeProgress {
			got = append(got, ev.Percent)
		}
	}
	assert.Equal(t, []int{0, 40, 40, 100, 100}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestResultMissingOnlyAfterGrace(t *testing.T) {
	grace := 150 * time.Millisecond
	w := testutil.NewMockWorker("done")
	o := newTestOrchestrator(w, grace)

	start := time.Now()
	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = wait(t, h)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultMissing)
	assert.GreaterOrEqual(t, elapsed, grace)
}

func TestArtifactWrittenDuringGrace(t *testing.T) {
	w := testutil.NewMockWorker()
	w.Artifact = []byte(testutil.HelloArtifact)
	w.ArtifactDelay = 20 * time.Millisecond
	o := newTestOrchestrator(w, 500*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	got, err := wait(t, h)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SegmentCount())
}

func TestNonZeroExitWithValidArtifactSucceeds(t *testing.T) {
	w := testutil.NewMockWorker("Traceback: cleanup failed")
	w.Artifact = []byte(testutil.HelloArtifact)
	w.ExitCode = 1
	o := newTestOrchestrator(w, 50*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	got, err := wait(t, h)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Turns[0].Segments[0].Text)
}

func TestNonZeroExitWithoutArtifactIsWorkerFailed(t *testing.T) {
	w := testutil.NewMockWorker("error: model not found")
	w.ExitCode = 3
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = wait(t, h)

	assert.ErrorIs(t, err, ErrWorkerFailed)
	var jobErr *Error
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, 3, jobErr.ExitCode)
	assert.Equal(t, h.ID(), jobErr.JobID)
	assert.Contains(t, jobErr.Error(), "code 3")
}

func TestCorruptArtifact(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		exitCode int
	}{
		{"malformed json", `{"segments":[`, 0},
		{"empty segment list", `{"segments":[]}`, 0},
		{"corrupt after non-zero exit", `not json`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewMockWorker()
			w.Artifact = []byte(tt.artifact)
			w.ExitCode = tt.exitCode
			o := newTestOrchestrator(w, 20*time.Millisecond)

			h, err := o.Submit(context.Background(), request(t))
			require.NoError(t, err)
			_, err = wait(t, h)
			assert.ErrorIs(t, err, ErrResultCorrupt)
			assert.Equal(t, KindResultCorrupt, KindOf(err))
		})
	}
}

func TestBOMArtifact(t *testing.T) {
	w := testutil.NewMockWorker()
	w.Artifact = append([]byte{0xEF, 0xBB, 0xBF}, testutil.HelloArtifact...)
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	got, err := wait(t, h)
	require.NoError(t, err)
	assert.Equal(t, "说话人1", got.Turns[0].SpeakerID)
}

func TestStderrLinesAreLogEvents(t *testing.T) {
	w := testutil.NewMockWorker("PROGRESS:100")
	w.Stderr = []string{"UserWarning: FP16 is not supported on CPU"}
	w.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)

	var stderr []string
	for _, ev := range collect(t, h) {
		if ev.Type == EventTypeLog && ev.Stream == StreamStderr {
			stderr = append(stderr, ev.Text)
		}
	}
	assert.Equal(t, []string{"UserWarning: FP16 is not supported on CPU"}, stderr)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	src := testutil.CreateSourceFile(t, "ok.wav")
	tests := []struct {
		name string
		req  Request
	}{
		{"missing file", Request{SourcePath: src + ".missing", SpeakerCount: 2, Profile: "small"}},
		{"directory", Request{SourcePath: t.TempDir(), SpeakerCount: 2, Profile: "small"}},
		{"zero speakers", Request{SourcePath: src, SpeakerCount: 0, Profile: "small"}},
		{"negative speakers", Request{SourcePath: src, SpeakerCount: -1, Profile: "small"}},
		{"unknown profile", Request{SourcePath: src, SpeakerCount: 2, Profile: "huge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewMockWorker()
			o := newTestOrchestrator(w, 20*time.Millisecond)

			h, err := o.Submit(context.Background(), tt.req)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, ErrInvalidInput)
			var jobErr *Error
			require.ErrorAs(t, err, &jobErr)
			assert.NotEmpty(t, jobErr.JobID)
			assert.Empty(t, w.Calls(), "worker must not be spawned")
			assert.Empty(t, o.Jobs())
		})
	}
}

func TestEnvironmentNotReady(t *testing.T) {
	w := testutil.NewMockWorker()
	o := New(Options{
		Worker:  w,
		Checker: testutil.MissingDependency("whisper_transcriber.py"),
		Log:     zerolog.Nop(),
	})

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = wait(t, h)

	assert.ErrorIs(t, err, ErrEnvironmentNotReady)
	assert.Contains(t, err.Error(), "whisper_transcriber.py")
	assert.Empty(t, w.Calls())
}

func TestStartFailure(t *testing.T) {
	w := testutil.NewMockWorker()
	w.StartError = os.ErrPermission
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = wait(t, h)

	assert.ErrorIs(t, err, ErrWorkerFailed)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestCancelRunningJob(t *testing.T) {
	w := testutil.NewMockWorker("PROGRESS:5")
	w.Block = true
	w.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)

	<-w.Started()
	require.NoError(t, o.Cancel(h.ID()))

	_, err = wait(t, h)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, w.Killed())
	assert.ErrorIs(t, o.Cancel(h.ID()), ErrJobFinished)

	info, _ := o.Job(h.ID())
	assert.Equal(t, StateFailed, info.State)
}

func TestCancelAbandonsGraceWait(t *testing.T) {
	w := testutil.NewMockWorker()
	o := newTestOrchestrator(w, 10*time.Second)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)

	testutil.WaitForCondition(t, func() bool {
		info, _ := o.Job(h.ID())
		return info.State == StateAwaitingResult
	}, 2*time.Second)

	start := time.Now()
	require.NoError(t, o.Cancel(h.ID()))
	_, err = wait(t, h)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCancelAfterCompletion(t *testing.T) {
	w := testutil.NewMockWorker()
	w.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = wait(t, h)
	require.NoError(t, err)

	assert.ErrorIs(t, o.Cancel(h.ID()), ErrJobFinished)
	assert.ErrorIs(t, o.Cancel("no-such-job"), ErrJobNotFound)
}

func TestSubmitContextCancelsJob(t *testing.T) {
	w := testutil.NewMockWorker()
	w.Block = true
	o := newTestOrchestrator(w, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := o.Submit(ctx, request(t))
	require.NoError(t, err)

	<-w.Started()
	cancel()

	_, err = wait(t, h)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReleaseActiveJob(t *testing.T) {
	w := testutil.NewMockWorker()
	w.Block = true
	o := newTestOrchestrator(w, 20*time.Millisecond)

	h, err := o.Submit(context.Background(), request(t))
	require.NoError(t, err)
	<-w.Started()

	assert.ErrorIs(t, o.Release(h.ID()), ErrJobActive)
	assert.Len(t, o.Jobs(), 1)

	require.NoError(t, o.Cancel(h.ID()))
	_, _ = wait(t, h)
	assert.NoError(t, o.Release(h.ID()))
	assert.ErrorIs(t, o.Release(h.ID()), ErrJobNotFound)
}

func TestConcurrentJobsAreIndependent(t *testing.T) {
	ok := testutil.NewMockWorker("PROGRESS:100")
	ok.Artifact = []byte(testutil.HelloArtifact)
	o := newTestOrchestrator(ok, 20*time.Millisecond)

	var handles []*Handle
	for i := 0; i < 4; i++ {
		h, err := o.Submit(context.Background(), request(t))
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		_, err := wait(t, h)
		assert.NoError(t, err)
	}
	assert.Len(t, o.Jobs(), 4)
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := error(newError(KindResultCorrupt, "job-1", "unreadable result", cause))

	assert.ErrorIs(t, err, ErrResultCorrupt)
	assert.NotErrorIs(t, err, ErrResultMissing)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "job job-1: unreadable result: boom", err.Error())
	assert.Equal(t, Kind(""), KindOf(cause))
}
