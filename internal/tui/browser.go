// Package tui is the interactive browser for saved analysis runs.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/m-okahara/growthfit/internal/batch"
	"github.com/m-okahara/growthfit/internal/storage"
	"github.com/m-okahara/growthfit/internal/viz"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type state int

const (
	stateRuns state = iota
	stateGroups
)

type model struct {
	state state
	store *storage.Store

	runs      []storage.RunMetadata
	runCursor int

	runID  string
	groups []batch.GroupResult
	cursor int

	status string

	width  int
	height int
}

func NewBrowser(store *storage.Store) (*model, error) {
	runs, err := store.List()
	if err != nil {
		return nil, err
	}
	return &model{
		state:  stateRuns,
		store:  store,
		runs:   runs,
		width:  80,
		height: 24,
	}, nil
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateRuns:
		return m.runsKey(msg)
	case stateGroups:
		return m.groupsKey(msg)
	}
	return m, nil
}

func (m model) runsKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.runCursor > 0 {
			m.runCursor--
		}
	case "down", "j":
		if m.runCursor < len(m.runs)-1 {
			m.runCursor++
		}
	case "enter", " ":
		if len(m.runs) == 0 {
			break
		}
		if err := m.open(m.runs[m.runCursor].ID); err != nil {
			m.status = err.Error()
			break
		}
		m.status = ""
		m.state = stateGroups
	}
	return m, nil
}

func (m model) groupsKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "escape", "backspace":
		m.state = stateRuns
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.groups)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m *model) open(runID string) error {
	groups, err := m.store.LoadResults(runID)
	if err != nil {
		return err
	}
	m.runID = runID
	m.groups = groups
	m.cursor = 0
	return nil
}

func (m model) View() string {
	switch m.state {
	case stateRuns:
		return m.viewRuns()
	case stateGroups:
		return m.viewGroups()
	}
	return ""
}

func (m model) viewRuns() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("         " + cyan.Render("g r o w t h f i t") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString("      " + dim.Render("no saved runs") + "\n")
		b.WriteString("\n")
		b.WriteString(dim.Render("      run an analysis first   q quit") + "\n")
		return b.String()
	}

	for i, r := range m.runs {
		id := fmt.Sprintf("%-28s", r.ID)
		info := fmt.Sprintf("%d groups  %d ok  %d failed", r.Groups, r.Converged, r.Failed)
		if i == m.runCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(id) + dim.Render(info) + "\n")
		} else {
			b.WriteString("        " + dim.Render(id) + dimmer.Render(info) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n      " + red.Render(m.status) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter open   q quit") + "\n")

	return b.String()
}

func (m model) viewGroups() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("   " + cyan.Render(m.runID) + "  " + dim.Render(fmt.Sprintf("%d groups", len(m.groups))) + "\n")
	b.WriteString("   " + viz.Separator(44) + "\n\n")

	if len(m.groups) == 0 {
		b.WriteString("   " + dim.Render("run is empty") + "\n")
		b.WriteString("\n" + dim.Render("   esc back   q quit") + "\n")
		return b.String()
	}

	visible := m.listHeight()
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.groups) {
		end = len(m.groups)
	}

	for i := start; i < end; i++ {
		gr := m.groups[i]
		name := fmt.Sprintf("%-26s", gr.Series.Key)
		badge := green.Render("ok  ")
		if !gr.Fit.Converged() {
			badge = red.Render("FAIL")
		}
		spark := viz.Sparkline(gr.Series.Densities(), 20)
		if i == m.cursor {
			b.WriteString("   " + cyan.Render("▸ ") + white.Render(name) + badge + "  " + cyan.Render(spark) + "\n")
		} else {
			b.WriteString("     " + dim.Render(name) + badge + "  " + dimmer.Render(spark) + "\n")
		}
	}
	if end < len(m.groups) {
		b.WriteString("     " + dimmer.Render(fmt.Sprintf("… %d more", len(m.groups)-end)) + "\n")
	}

	gr := m.groups[m.cursor]
	pw := m.width - 18
	if pw < 40 {
		pw = 40
	}
	if pw > 100 {
		pw = 100
	}
	b.WriteString("\n" + indent(viz.FitPlot(gr, pw, 10), "   ") + "\n")

	if gr.Fit.Converged() {
		b.WriteString(fmt.Sprintf("\n   %s  %s%s  %s%s  %s%s  %s%s  %s%s\n",
			viz.StatusBadge(true),
			dim.Render("r="), white.Render(fmt.Sprintf("%.4g", gr.Fit.R)),
			dim.Render("K="), white.Render(fmt.Sprintf("%.4g", gr.Fit.K)),
			dim.Render("N0="), white.Render(fmt.Sprintf("%.4g", gr.Fit.N0)),
			dim.Render("rmse="), white.Render(fmt.Sprintf("%.3g", gr.Fit.RMSE)),
			dim.Render("R²="), white.Render(fmt.Sprintf("%.4f", gr.Fit.RSquared))))
	} else {
		b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n",
			viz.StatusBadge(false),
			red.Render(string(gr.Fit.Reason)),
			dim.Render(fmt.Sprintf("%d observations", len(gr.Series.Obs)))))
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("   ↑↓ select   esc back   q quit") + "\n")

	return b.String()
}

// listHeight keeps the group list short enough that the plot below
// stays on screen.
func (m model) listHeight() int {
	h := m.height - 22
	if h < 4 {
		h = 4
	}
	if h > 10 {
		h = 10
	}
	return h
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// RunBrowser opens the saved-run browser in the alternate screen.
func RunBrowser(store *storage.Store) error {
	m, err := NewBrowser(store)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
