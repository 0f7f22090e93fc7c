package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrel-quant/backtest/internal/engine"
	"github.com/kestrel-quant/backtest/internal/types"
)

// equityTickMsg carries one new equity sample pushed by the running engine.
type equityTickMsg struct {
	timestamp time.Time
	equity    float64
}

// runDoneMsg signals the backtest goroutine finished, successfully or not.
type runDoneMsg struct {
	err error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// watchModel is the bubbletea Model redrawing the running equity curve, grounded on
// the teacher's cmd/data Model (a single struct holding view state, updated via
// Msg values pushed from a background goroutine).
type watchModel struct {
	initial float64
	curve   []float64
	peak    float64
	done    bool
	err     error
	gauge   progress.Model
}

func newWatchModel(initial float64) watchModel {
	return watchModel{initial: initial, peak: initial, gauge: progress.New(progress.WithDefaultGradient())}
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case equityTickMsg:
		m.curve = append(m.curve, msg.equity)
		if msg.equity > m.peak {
			m.peak = msg.equity
		}

		return m, nil

	case runDoneMsg:
		m.done = true
		m.err = msg.err

		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("backtest — live equity"))
	b.WriteString("\n\n")

	current := m.initial
	if len(m.curve) > 0 {
		current = m.curve[len(m.curve)-1]
	}

	style := upStyle
	if current < m.initial {
		style = downStyle
	}

	b.WriteString(fmt.Sprintf("samples: %d\n", len(m.curve)))
	b.WriteString(fmt.Sprintf("equity:  %s\n", style.Render(fmt.Sprintf("%.2f", current))))
	b.WriteString(fmt.Sprintf("return:  %s\n", style.Render(fmt.Sprintf("%.2f%%", 100*(current-m.initial)/m.initial))))

	distanceFromPeak := 1.0
	if m.peak > 0 {
		distanceFromPeak = current / m.peak
	}

	b.WriteString("\nequity vs peak:\n")
	b.WriteString(m.gauge.ViewAs(clamp01(distanceFromPeak)))
	b.WriteString("\n")

	if m.done {
		b.WriteString("\nrun complete\n")
	} else {
		b.WriteString("\npress q to quit\n")
	}

	return b.String()
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// runWithWatch drives the engine in the background while a bubbletea program
// redraws the live equity curve on every processed bar event.
func runWithWatch(e *engine.Engine, outPath string) error {
	initial := e.Accountant().Portfolio().Cash
	program := tea.NewProgram(newWatchModel(initial))

	e.OnEvent(func(event types.Event) {
		if event.Kind != types.EventKindBar {
			return
		}

		program.Send(equityTickMsg{timestamp: event.Timestamp, equity: e.Accountant().Portfolio().Equity})
	})

	var runErr error

	go func() {
		runErr = e.Run()
		program.Send(runDoneMsg{err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running watch TUI: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("running backtest: %w", runErr)
	}

	return writeResults(e, outPath)
}
