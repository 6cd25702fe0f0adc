package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leonardotrapani/diarscribe/internal/job"
)

const maxLogLines = 5

type eventMsg job.Event

type streamClosedMsg struct{}

type progressModel struct {
	source     string
	events     <-chan job.Event
	cancel     func() error
	spinner    spinner.Model
	percent    int
	logs       []string
	cancelling bool
	cancelErr  error
	final      *job.Event
}

func newProgressModel(source string, events <-chan job.Event, cancel func() error) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleHeader.UnsetMarginBottom()
	return progressModel{source: source, events: events, cancel: cancel, spinner: s}
}

func waitForEvent(events <-chan job.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancelErr = m.cancel()
			}
		}
		return m, nil
	case eventMsg:
		ev := job.Event(msg)
		switch ev.Type {
		case job.EventTypeProgress:
			m.percent = ev.Percent
		case job.EventTypeLog:
			m.logs = append(m.logs, ev.Text)
			if len(m.logs) > maxLogLines {
				m.logs = m.logs[len(m.logs)-maxLogLines:]
			}
		}
		if ev.Terminal() {
			m.final = &ev
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	if m.final != nil {
		if m.final.Type == job.EventTypeResult {
			b.WriteString(StyleSuccess.Render("✓ transcribed " + filepath.Base(m.source)))
		} else {
			b.WriteString(StyleError.Render("✗ " + failureText(*m.final)))
		}
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s Transcribing %s\n\n", m.spinner.View(), filepath.Base(m.source))
	b.WriteString(ProgressBar(m.percent, barWidth))
	b.WriteString("\n")
	for _, line := range m.logs {
		b.WriteString(StyleSubtle.Render(line))
		b.WriteString("\n")
	}
	switch {
	case m.cancelErr != nil:
		b.WriteString(StyleWarning.Render("cancel: " + m.cancelErr.Error()))
	case m.cancelling:
		b.WriteString(StyleWarning.Render("cancelling..."))
	default:
		b.WriteString(StyleMuted.Render("ctrl+c cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func failureText(ev job.Event) string {
	if ev.Err == nil {
		return "job failed"
	}
	return fmt.Sprintf("%s (%s)", ev.Err.Message, ev.Err.Kind)
}

// RunProgress renders the event stream of a running job until its terminal
// event. Pressing ctrl+c invokes cancel once; the view keeps running until
// the job reports how it ended. The terminal event is returned, or nil if
// the stream closed without one.
func RunProgress(source string, events <-chan job.Event, cancel func() error, in io.Reader, out io.Writer) (*job.Event, error) {
	p := tea.NewProgram(newProgressModel(source, events, cancel), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return final.(progressModel).final, nil
}

// PlainProgress prints progress and log events as lines, for output that is
// not a terminal.
func PlainProgress(events <-chan job.Event, out io.Writer) *job.Event {
	last := -1
	for ev := range events {
		switch ev.Type {
		case job.EventTypeProgress:
			if ev.Percent != last {
				fmt.Fprintf(out, "progress %d%%\n", ev.Percent)
				last = ev.Percent
			}
		case job.EventTypeLog:
			fmt.Fprintf(out, "[%s] %s\n", ev.Stream, ev.Text)
		}
		if ev.Terminal() {
			final := ev
			// drain until close so the job can finish its bookkeeping
			for range events {
			}
			return &final
		}
	}
	return nil
}
