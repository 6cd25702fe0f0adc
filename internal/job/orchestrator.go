package job

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/profile"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
	"github.com/leonardotrapani/diarscribe/internal/worker"
)

const (
	// DefaultGraceInterval is the wait before the single artifact re-check.
	DefaultGraceInterval = 2 * time.Second

	eventBuffer  = 64
	maxLineBytes = 1 << 20
)

// ReadinessChecker verifies the worker environment before a spawn.
type ReadinessChecker interface {
	Run(ctx context.Context) deps.Report
}

// Metrics receives job lifecycle observations.
type Metrics interface {
	JobSubmitted(profile string)
	JobFinished(outcome string, duration time.Duration)
	WorkerLine(kind string)
}

type nopMetrics struct{}

func (nopMetrics) JobSubmitted(string)               {}
func (nopMetrics) JobFinished(string, time.Duration) {}
func (nopMetrics) WorkerLine(string)                 {}

type alwaysReady struct{}

func (alwaysReady) Run(context.Context) deps.Report { return deps.Report{} }

// Options configures an Orchestrator.
type Options struct {
	Worker  worker.Worker
	Checker ReadinessChecker
	// ResultSuffix is inserted between the source base name and ".json".
	ResultSuffix  string
	GraceInterval time.Duration
	Metrics       Metrics
	Log           zerolog.Logger
}

// Request describes one transcription.
type Request struct {
	SourcePath   string
	SpeakerCount int
	Profile      string
}

// Info is a point-in-time view of a job.
type Info struct {
	ID           string    `json:"id"`
	SourcePath   string    `json:"sourcePath"`
	SpeakerCount int       `json:"speakerCount"`
	Profile      string    `json:"profile"`
	State        State     `json:"state"`
	Percent      int       `json:"percent"`
	SubmittedAt  time.Time `json:"submittedAt"`
	FinishedAt   time.Time `json:"finishedAt,omitzero"`
	Error        string    `json:"error,omitempty"`
}

// Orchestrator runs transcription jobs, one worker process each.
type Orchestrator struct {
	worker  worker.Worker
	checker ReadinessChecker
	metrics Metrics
	suffix  string
	grace   time.Duration
	log     zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		worker:  opts.Worker,
		checker: opts.Checker,
		metrics: opts.Metrics,
		suffix:  opts.ResultSuffix,
		grace:   opts.GraceInterval,
		log:     opts.Log,
		jobs:    make(map[string]*job),
	}
	if o.checker == nil {
		o.checker = alwaysReady{}
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.suffix == "" {
		o.suffix = DefaultResultSuffix
	}
	if o.grace <= 0 {
		o.grace = DefaultGraceInterval
	}
	return o
}

type job struct {
	req         Request
	id          string
	submittedAt time.Time
	log         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	// claimed is set by whichever of Cancel or the monitor decides the outcome first.
	claimed atomic.Bool
	events  chan Event

	mu         sync.Mutex
	state      State
	percent    int
	proc       worker.Process
	result     transcript.Transcript
	err        *Error
	finishedAt time.Time
}

// Handle is the caller's view of a submitted job.
type Handle struct {
	job *job
}

// ID returns the job id.
func (h *Handle) ID() string { return h.job.id }

// Events streams progress and log events followed by exactly one terminal
// event, then closes. The stream must be drained, directly or via Wait,
// or the job stalls.
func (h *Handle) Events() <-chan Event { return h.job.events }

// Wait drains the event stream and returns the job outcome. The returned
// transcript is a copy owned by the caller.
func (h *Handle) Wait(ctx context.Context) (transcript.Transcript, error) {
	for {
		select {
		case _, ok := <-h.job.events:
			if !ok {
				return h.job.outcome()
			}
		case <-ctx.Done():
			return transcript.Transcript{}, ctx.Err()
		}
	}
}

func (j *job) outcome() (transcript.Transcript, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return transcript.Transcript{}, j.err
	}
	return j.result.Clone(), nil
}

// Submit validates req and starts the job in the background. Invalid input
// is reported here, before anything is spawned; every later failure arrives
// as the terminal event. Cancelling ctx cancels the job.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Handle, error) {
	id := uuid.NewString()
	if err := validateRequest(req); err != nil {
		o.log.Warn().Str("job_id", id).Err(err).Msg("rejected job")
		return nil, newError(KindInvalidInput, id, err.Error(), nil)
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{
		req:         req,
		id:          id,
		submittedAt: time.Now(),
		log:         o.log.With().Str("job_id", id).Logger(),
		ctx:         jobCtx,
		cancel:      cancel,
		events:      make(chan Event, eventBuffer),
		state:       StatePending,
	}

	o.mu.Lock()
	o.jobs[id] = j
	o.mu.Unlock()

	o.metrics.JobSubmitted(req.Profile)
	j.log.Info().
		Str("source", req.SourcePath).
		Int("speakers", req.SpeakerCount).
		Str("profile", req.Profile).
		Msg("job submitted")

	stop := context.AfterFunc(ctx, func() {
		if err := o.Cancel(id); err == nil {
			j.log.Info().Msg("job cancelled by caller context")
		}
	})
	go func() {
		defer stop()
		o.run(j)
	}()

	return &Handle{job: j}, nil
}

func validateRequest(req Request) error {
	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return fmt.Errorf("source file %q: %w", req.SourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %q is not a regular file", req.SourcePath)
	}
	f, err := os.Open(req.SourcePath)
	if err != nil {
		return fmt.Errorf("source file %q is not readable: %w", req.SourcePath, err)
	}
	f.Close()

	if req.SpeakerCount <= 0 {
		return fmt.Errorf("speaker count must be positive, got %d", req.SpeakerCount)
	}
	if !profile.Valid(req.Profile) {
		return fmt.Errorf("unknown model profile %q (valid: %v)", req.Profile, profile.IDs())
	}
	return nil
}

// Cancel kills the job's worker and ends the job with KindCancelled.
// It returns ErrJobFinished if the outcome was already decided.
func (o *Orchestrator) Cancel(jobID string) error {
	j := o.lookup(jobID)
	if j == nil {
		return ErrJobNotFound
	}
	if !j.claimed.CompareAndSwap(false, true) {
		return ErrJobFinished
	}

	j.cancel()
	j.mu.Lock()
	proc := j.proc
	j.mu.Unlock()
	if proc != nil {
		if err := proc.Kill(); err != nil {
			j.log.Warn().Err(err).Msg("failed to kill worker")
		}
	}
	j.log.Info().Msg("cancel requested")
	return nil
}

// Jobs lists every job the orchestrator still tracks, oldest first.
func (o *Orchestrator) Jobs() []Info {
	o.mu.Lock()
	jobs := make([]*job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j)
	}
	o.mu.Unlock()

	infos := make([]Info, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.info())
	}
	sort.Slice(infos, func(a, b int) bool {
		return infos[a].SubmittedAt.Before(infos[b].SubmittedAt)
	})
	return infos
}

// Job returns a snapshot of one job.
func (o *Orchestrator) Job(jobID string) (Info, bool) {
	j := o.lookup(jobID)
	if j == nil {
		return Info{}, false
	}
	return j.info(), true
}

// Release forgets a job after the caller has consumed its outcome.
func (o *Orchestrator) Release(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	j, ok := o.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	j.mu.Lock()
	terminal := j.state.Terminal()
	j.mu.Unlock()
	if !terminal {
		return ErrJobActive
	}
	delete(o.jobs, jobID)
	return nil
}

func (o *Orchestrator) lookup(jobID string) *job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobs[jobID]
}

func (j *job) info() Info {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := Info{
		ID:           j.id,
		SourcePath:   j.req.SourcePath,
		SpeakerCount: j.req.SpeakerCount,
		Profile:      j.req.Profile,
		State:        j.state,
		Percent:      j.percent,
		SubmittedAt:  j.submittedAt,
		FinishedAt:   j.finishedAt,
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	return info
}

// transition moves the job to a new state. Callers hold j.mu.
func (j *job) transition(to State) {
	if !validTransition(j.state, to) {
		// a bug in the monitor, not a job failure
		j.log.Error().Str("from", string(j.state)).Str("to", string(to)).Msg("invalid state transition")
		return
	}
	j.log.Debug().Str("from", string(j.state)).Str("to", string(to)).Msg("state transition")
	j.state = to
}

func (j *job) setState(to State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transition(to)
}

func (j *job) emit(ev Event) {
	ev.JobID = j.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	j.events <- ev
}

// run is the per-job monitor goroutine.
func (o *Orchestrator) run(j *job) {
	defer close(j.events)
	defer j.cancel()

	if err := o.checker.Run(j.ctx).Err(); err != nil {
		o.finish(j, transcript.Transcript{}, newError(KindEnvironmentNotReady, j.id, "worker environment not ready", err))
		return
	}
	if j.ctx.Err() != nil {
		o.finish(j, transcript.Transcript{}, newError(KindCancelled, j.id, "cancelled before start", nil))
		return
	}

	args := []string{j.req.SourcePath, strconv.Itoa(j.req.SpeakerCount), j.req.Profile}
	proc, err := o.worker.Start(j.ctx, args)
	if err != nil {
		jobErr := newError(KindWorkerFailed, j.id, "failed to start worker", err)
		jobErr.ExitCode = -1
		o.finish(j, transcript.Transcript{}, jobErr)
		return
	}

	j.mu.Lock()
	j.proc = proc
	j.transition(StateRunning)
	j.mu.Unlock()
	// a Cancel that ran before proc was recorded could not kill it
	if j.ctx.Err() != nil {
		_ = proc.Kill()
	}
	j.log.Info().Int("pid", proc.PID()).Msg("worker started")

	var wg sync.WaitGroup
	if stderr := proc.Stderr(); stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.consume(j, stderr, StreamStderr, nil)
		}()
	}
	o.consume(j, proc.Stdout(), StreamStdout, &progressTracker{})
	wg.Wait()

	exitCode, err := proc.Wait()
	if err != nil {
		j.log.Warn().Err(err).Msg("waiting for worker failed")
	}
	j.log.Info().Int("exit_code", exitCode).Msg("worker exited")
	j.setState(StateAwaitingResult)

	t, jobErr := o.recoverResult(j, exitCode)
	o.finish(j, t, jobErr)
}

// consume reads lines from r as they arrive. With a tracker, progress lines
// become progress events; everything else is a log line.
func (o *Orchestrator) consume(j *job, r io.Reader, stream Stream, tracker *progressTracker) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if tracker != nil {
			if n, ok := ParseProgress(line); ok {
				percent := tracker.observe(n)
				j.mu.Lock()
				j.percent = percent
				j.mu.Unlock()
				o.metrics.WorkerLine("progress")
				j.emit(Event{Type: EventTypeProgress, Percent: percent})
				continue
			}
		}
		o.metrics.WorkerLine("log")
		j.log.Debug().Str("stream", string(stream)).Msg(line)
		j.emit(Event{Type: EventTypeLog, Text: line, Stream: stream})
	}

	if err := scanner.Err(); err != nil {
		j.log.Warn().Err(err).Str("stream", string(stream)).Msg("worker output unreadable, discarding rest")
		// keep the pipe drained so the worker cannot block on a full buffer
		_, _ = io.Copy(io.Discard, r)
	}
}

// recoverResult looks for the artifact, waiting one grace interval and
// re-checking exactly once if it is absent.
func (o *Orchestrator) recoverResult(j *job, exitCode int) (transcript.Transcript, *Error) {
	if j.ctx.Err() != nil {
		return transcript.Transcript{}, newError(KindCancelled, j.id, "cancelled", nil)
	}

	path := ArtifactPath(j.req.SourcePath, o.suffix)
	t, err := transcript.ReadArtifact(path)
	if errors.Is(err, os.ErrNotExist) {
		j.log.Debug().Str("artifact", path).Dur("grace", o.grace).Msg("artifact not present, waiting")
		timer := time.NewTimer(o.grace)
		select {
		case <-timer.C:
		case <-j.ctx.Done():
			timer.Stop()
			return transcript.Transcript{}, newError(KindCancelled, j.id, "cancelled during result recovery", nil)
		}
		t, err = transcript.ReadArtifact(path)
	}

	switch {
	case err == nil:
		if exitCode != 0 {
			j.log.Warn().Int("exit_code", exitCode).Msg("worker exited non-zero but left a valid result")
		}
		return t, nil
	case errors.Is(err, os.ErrNotExist):
		if exitCode != 0 {
			jobErr := newError(KindWorkerFailed, j.id, fmt.Sprintf("worker exited with code %d", exitCode), nil)
			jobErr.ExitCode = exitCode
			return transcript.Transcript{}, jobErr
		}
		return transcript.Transcript{}, newError(KindResultMissing, j.id, "no result at "+path, nil)
	default:
		jobErr := newError(KindResultCorrupt, j.id, "unreadable result at "+path, err)
		jobErr.ExitCode = exitCode
		return transcript.Transcript{}, jobErr
	}
}

// finish records the single terminal outcome. If Cancel claimed the job
// first, the outcome is Cancelled regardless of what the monitor found.
func (o *Orchestrator) finish(j *job, t transcript.Transcript, jobErr *Error) {
	if !j.claimed.CompareAndSwap(false, true) {
		if jobErr == nil || jobErr.Kind != KindCancelled {
			jobErr = newError(KindCancelled, j.id, "cancelled", nil)
		}
	}

	j.mu.Lock()
	j.finishedAt = time.Now()
	duration := j.finishedAt.Sub(j.submittedAt)
	if jobErr != nil {
		j.err = jobErr
		j.transition(StateFailed)
	} else {
		j.result = t
		j.transition(StateSucceeded)
	}
	j.proc = nil
	j.mu.Unlock()

	if jobErr != nil {
		o.metrics.JobFinished(string(jobErr.Kind), duration)
		j.log.Warn().Str("kind", string(jobErr.Kind)).Err(jobErr).Dur("duration", duration).Msg("job failed")
		j.emit(Event{Type: EventTypeError, Text: jobErr.Error(), Err: jobErr})
		return
	}

	o.metrics.JobFinished("succeeded", duration)
	j.log.Info().
		Int("turns", len(t.Turns)).
		Int("segments", t.SegmentCount()).
		Dur("duration", duration).
		Msg("job succeeded")
	result := t.Clone()
	j.emit(Event{Type: EventTypeResult, Result: &result})
}
