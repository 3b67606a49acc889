package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Progress bar styles
var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorFaint)
)

const barWidth = 32

// =============================================================================
// ProgressModel - Live progress of long computations
// =============================================================================

// progressMsg reports that done of total work items are finished.
type progressMsg struct{ done, total int }

// finishedMsg ends the program with the result of the work.
type finishedMsg struct{ err error }

// ProgressModel is the bubbletea model showing a progress bar for grid
// evaluation and sweeps.
type ProgressModel struct {
	Title    string
	Done     int
	Total    int
	Start    time.Time
	Finished bool
	Err      error
}

// NewProgressModel creates a progress model for total work items.
func NewProgressModel(title string, total int) ProgressModel {
	return ProgressModel{Title: title, Total: total, Start: time.Now()}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		if msg.done > m.Done {
			m.Done = msg.done
		}
		m.Total = msg.total
	case finishedMsg:
		m.Finished = true
		m.Err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	frac := m.Fraction()
	full := int(frac * barWidth)
	bar := barFullStyle.Render(strings.Repeat("█", full)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-full))

	elapsed := time.Since(m.Start).Round(100 * time.Millisecond)
	line := fmt.Sprintf("%s %s %s", StyleTitle.Render(m.Title), bar,
		StyleDim.Render(fmt.Sprintf("%d/%d · %s", m.Done, m.Total, elapsed)))
	if m.Finished {
		return line + "\n"
	}
	return line
}

// Fraction is the finished share of the work in [0, 1].
func (m ProgressModel) Fraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	f := float64(m.Done) / float64(m.Total)
	if f > 1 {
		return 1
	}
	return f
}

// =============================================================================
// Running Work Under a Progress Bar
// =============================================================================

// runWithProgress runs work while showing a progress bar on stderr. work
// reports progress through the function it is given, which may be called
// from several goroutines. The error of work is returned. Interrupts are
// left to the signal context of main.
func runWithProgress(ctx context.Context, title string, total int, work func(report func(done int)) error) error {
	p := tea.NewProgram(NewProgressModel(title, total),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
		tea.WithoutSignalHandler())

	errc := make(chan error, 1)
	go func() {
		err := work(func(done int) { p.Send(progressMsg{done: done, total: total}) })
		errc <- err
		p.Send(finishedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return <-errc
}
