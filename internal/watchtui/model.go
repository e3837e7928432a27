// Package watchtui implements the live progress view for `pulsar watch`:
// one row per resource timeline, refreshed whenever the watched manifest is
// re-scheduled. A lipgloss style sheet and a key.Binding keymap back a
// bubbletea.Model driven by an external channel of results rather than its
// own ticker.
package watchtui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelplan/pulsar/internal/engine"
)

// Update is one re-schedule outcome delivered to the TUI: either a fresh
// Result or the error the engine returned for the latest manifest edit.
type Update struct {
	Result *engine.Result
	Err    error
}

// updateMsg wraps Update as a tea.Msg.
type updateMsg Update

// Listen returns a tea.Cmd that blocks on ch and delivers the next Update
// as a tea.Msg. Model.Update re-issues Listen after each delivery so the
// program keeps receiving re-schedule results for its whole lifetime.
func Listen(ch <-chan Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updateMsg{}
		}
		return updateMsg(u)
	}
}

// Model is the root bubbletea model for `pulsar watch`.
type Model struct {
	keys KeyMap
	ch   <-chan Update

	width, height int
	scroll        int

	result *engine.Result
	err    error
	seen   int // count of re-schedules observed, for the header
}

// New builds a Model that listens for re-schedule results on ch.
func New(ch <-chan Update) Model {
	return Model{keys: DefaultKeyMap(), ch: ch}
}

func (m Model) Init() tea.Cmd {
	return Listen(m.ch)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case updateMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.seen++
		return m, Listen(m.ch)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.scroll > 0 {
				m.scroll--
			}
		case key.Matches(msg, m.keys.Down):
			m.scroll++
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styleError.Render(fmt.Sprintf("schedule failed: %v", m.err)))
		b.WriteString("\n")
	} else if m.result != nil {
		b.WriteString(m.renderResources())
	} else {
		b.WriteString(styleDim.Render("waiting for first schedule..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleFooter.Render("q quit  ↑/k up  ↓/j down"))
	return b.String()
}

func (m Model) renderHeader() string {
	algo, strategy := "-", "-"
	decisions := 0
	if m.result != nil {
		algo = string(m.result.Algorithm)
		strategy = string(m.result.Strategy)
		decisions = len(m.result.RolloutDecisions())
	}
	line := fmt.Sprintf(" pulsar watch  %s %s  %d re-schedules  %d rollout decisions",
		styleLabel.Render(algo), styleLabel.Render(strategy), m.seen, decisions)
	width := m.width
	if width <= 0 {
		width = lipgloss.Width(line) + 2
	}
	return styleHeader.Width(width).Render(line)
}

func (m Model) renderResources() string {
	byResource := make(map[string][]string)
	var unassigned []string

	for _, st := range m.result.Schedule {
		label := fmt.Sprintf("%s  %s..%s", st.TaskID, st.Start.Format("2006-01-02"), st.End.Format("2006-01-02"))
		if len(st.Resources) == 0 {
			unassigned = append(unassigned, label)
			continue
		}
		for _, r := range st.Resources {
			byResource[r] = append(byResource[r], label)
		}
	}

	names := make([]string, 0, len(byResource))
	for name := range byResource {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	rows := 0
	for _, name := range names {
		if rows < m.scroll {
			rows++
			continue
		}
		tasks := byResource[name]
		sort.Strings(tasks)
		b.WriteString(styleResourceName.Render(name))
		b.WriteString(": ")
		b.WriteString(styleTaskBar.Render(strings.Join(tasks, "  |  ")))
		b.WriteString("\n")
		rows++
	}
	if len(unassigned) > 0 {
		sort.Strings(unassigned)
		b.WriteString(styleMilestone.Render("(unassigned)"))
		b.WriteString(": ")
		b.WriteString(styleTaskBar.Render(strings.Join(unassigned, "  |  ")))
		b.WriteString("\n")
	}
	return b.String()
}
