package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/anyhandle/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateEdit
)

type interactiveModel struct {
	err      error
	table    *registry.Table
	source   string
	status   string
	rows     []row
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(table *registry.Table, source string) *interactiveModel {
	if source == "" {
		source = "built-in sample"
	}
	m := &interactiveModel{
		table:  table,
		source: source,
		state:  stateBrowse,
	}
	m.refresh()
	return m
}

func (m *interactiveModel) refresh() {
	m.rows = snapshot(m.table)
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.state == stateEdit {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == stateEdit {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.state = stateBrowse
			m.status = ""
			return m, nil
		case "enter":
			r := m.rows[m.selected]
			m.err = editValue(m.table, r.id, m.input.Value())
			if m.err == nil {
				m.status = fmt.Sprintf("%s updated", r.name)
			}
			m.state = stateBrowse
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}

	case "r":
		m.err = nil
		m.status = ""
		m.refresh()

	case "d":
		if len(m.rows) == 0 {
			break
		}
		r := m.rows[m.selected]
		if m.table.Delete(r.id) {
			m.status = fmt.Sprintf("%s deleted", r.name)
		}
		m.err = nil
		m.refresh()

	case "enter":
		if len(m.rows) == 0 {
			break
		}
		r := m.rows[m.selected]
		ti := textinput.New()
		ti.Prompt = r.name + ": "
		ti.Placeholder = r.typ
		ti.SetValue(r.value)
		ti.Width = 40
		ti.Focus()
		m.input = ti
		m.err = nil
		m.status = ""
		m.state = stateEdit
		return m, textinput.Blink
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Handle Registry"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		if len(m.rows) == 0 {
			b.WriteString("Registry is empty.\n")
		}
		for i, r := range m.rows {
			if i == m.selected {
				b.WriteString(selectedStyle.Render(fmt.Sprintf("> %-3d %-12s %-18s %d  %s", r.id, r.name, r.typ, r.owners, r.value)))
			} else {
				fmt.Fprintf(&b, "  %-3d %s %s %d  %s", r.id,
					nameStyle.Render(fmt.Sprintf("%-12s", r.name)),
					typeStyle.Render(fmt.Sprintf("%-18s", r.typ)),
					r.owners, r.value)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		} else if m.status != "" {
			b.WriteString(statusStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit • d delete • r refresh • q quit"))

	case stateEdit:
		r := m.rows[m.selected]
		fmt.Fprintf(&b, "Editing %s (%s)\n\n", nameStyle.Render(r.name), typeStyle.Render(r.typ))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter save • esc cancel"))
	}

	return b.String()
}

func runInteractive(table *registry.Table, source string) error {
	p := tea.NewProgram(newInteractiveModel(table, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
