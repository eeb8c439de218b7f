// Package tui renders a live monitor for long Monte Carlo runs: progress,
// per-outcome counts and the running energy-residual maximum.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nsbh/kickmc/internal/mc"
)

const barWidth = 40

// ProgressMsg carries a run snapshot into the model.
type ProgressMsg mc.Event

// DoneMsg ends the monitor.
type DoneMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type Model struct {
	title string
	ev    mc.Event
	done  bool
}

func New(title string) Model {
	return Model{title: title}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.ev = mc.Event(msg)
		return m, nil
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("kickmc "+m.title) + "\n\n")

	frac := 0.0
	if m.ev.Total > 0 {
		frac = float64(m.ev.Done) / float64(m.ev.Total)
	}
	filled := int(frac * barWidth)
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		labelStyle.Render(strings.Repeat("░", barWidth-filled))
	b.WriteString(fmt.Sprintf("  %s %6.1f%%  (%d/%d)\n\n", bar, 100*frac, m.ev.Done, m.ev.Total))

	rows := []struct {
		outcome mc.Outcome
		style   lipgloss.Style
	}{
		{mc.OutcomeOffsetMatch, matchStyle},
		{mc.OutcomeOffsetMiss, labelStyle},
		{mc.OutcomeNoMerger, labelStyle},
		{mc.OutcomeDisrupted, labelStyle},
		{mc.OutcomeEnergyFail, failStyle},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %-14s %d\n",
			row.style.Render(row.outcome.String()), m.ev.Counts[row.outcome]))
	}

	b.WriteString("\n" + labelStyle.Render(
		fmt.Sprintf("  max energy residual %.3e", m.ev.MaxResidual)) + "\n")

	if m.done {
		b.WriteString("\n  done\n")
	} else {
		b.WriteString("\n  q to quit\n")
	}
	return b.String()
}
