package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/simulate"
)

type snapshotMsg struct {
	time  float64
	stats map[string]field.Stats
}

type doneMsg struct{ err error }

type tickMsg time.Time

// liveProgress shows a running simulation in the terminal. It observes the
// session and forwards every snapshot to the bubbletea program.
type liveProgress struct {
	model   string
	backend string
	total   int
	program *tea.Program
}

func newLiveProgress(model, backend string, total int) *liveProgress {
	return &liveProgress{model: model, backend: backend, total: total}
}

func (p *liveProgress) OnResult(r *simulate.Result) {
	if p.program != nil {
		p.program.Send(snapshotMsg{time: r.Time, stats: r.Stats})
	}
}

// run executes sim while the view is shown. Quitting the view calls
// cancel and waits for sim to return.
func (p *liveProgress) run(cancel func(), sim func() ([]*simulate.Result, error)) ([]*simulate.Result, error) {
	p.program = tea.NewProgram(progressModel{
		model:   p.model,
		backend: p.backend,
		total:   p.total,
		start:   time.Now(),
	})

	var (
		results []*simulate.Result
		err     error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		results, err = sim()
		p.program.Send(doneMsg{err: err})
	}()

	final, runErr := p.program.Run()
	if m, ok := final.(progressModel); !ok || !m.finished {
		cancel()
	}
	<-done
	if runErr != nil {
		return nil, runErr
	}
	return results, err
}

type progressModel struct {
	model   string
	backend string
	total   int
	start   time.Time

	count    int
	time     float64
	stats    map[string]field.Stats
	elapsed  time.Duration
	finished bool
	err      error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case snapshotMsg:
		m.count++
		m.time = msg.time
		m.stats = msg.stats
	case doneMsg:
		m.finished = true
		m.err = msg.err
		m.elapsed = time.Since(m.start)
		return m, tea.Quit
	case tickMsg:
		m.elapsed = time.Since(m.start)
		return m, tick()
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.model) + subtle.Render("  "+m.backend) + "\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.count) / float64(m.total)
	}
	fmt.Fprintf(&b, "%s %d/%d\n", progressBar(fraction, 40), m.count, m.total)
	b.WriteString(keyValue("t", fmt.Sprintf("%.4g", m.time)) + "  " +
		keyValue("elapsed", m.elapsed.Round(100*time.Millisecond)) + "\n\n")

	if len(m.stats) > 0 {
		ids := make([]string, 0, len(m.stats))
		for id := range m.stats {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-16s %12s %12s %12s", "species", "avg", "min", "max")) + "\n")
		for _, id := range ids {
			s := m.stats[id]
			fmt.Fprintf(&b, "%-16s %12.5g %12.5g %12.5g\n", id, s.Avg, s.Min, s.Max)
		}
	}

	switch {
	case m.finished && m.err != nil:
		b.WriteString("\n" + errorStyle.Render("failed: "+m.err.Error()) + "\n")
	case m.finished:
		b.WriteString("\n" + okStyle.Render("done") + "\n")
	default:
		b.WriteString("\n" + subtle.Render("q to stop") + "\n")
	}
	return b.String()
}
