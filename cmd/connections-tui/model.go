package main

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/connections/apps/go-server/internal/puzzle"
)

const (
	cols      = 4
	cellWidth = 14
	tickEvery = 50 * time.Millisecond
)

// --- STYLING ---

var (
	tagColors = map[puzzle.ColorTag]lipgloss.Color{
		puzzle.Yellow: lipgloss.Color("11"),
		puzzle.Green:  lipgloss.Color("10"),
		puzzle.Blue:   lipgloss.Color("12"),
		puzzle.Orange: lipgloss.Color("208"),
	}

	styleCell     = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Border(lipgloss.NormalBorder())
	styleSelected = styleCell.Bold(true).Background(lipgloss.Color("8")).Foreground(lipgloss.Color("15"))
	cursorColor   = lipgloss.Color("14")
	styleHint     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleTries    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWin      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleLoss     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleSubtle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

type model struct {
	s      *puzzle.Session
	cursor int
	err    error
}

func newModel(s *puzzle.Session) model { return model{s: s} }

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.s.Tick()
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h":
		if m.cursor%cols > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%cols < cols-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor >= cols {
			m.cursor -= cols
		}
	case "down", "j":
		if m.cursor+cols < puzzle.GridSize {
			m.cursor += cols
		}
	case " ", "enter":
		m.err = m.s.Toggle(m.cursor)
	case "s":
		m.s.Shuffle()
	case "d":
		m.s.DeselectAll()
	case "r":
		m.err = m.s.Reset()
		m.cursor = 0
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	grid := m.s.Grid()
	for row := 0; row*cols < len(grid); row++ {
		cells := make([]string, 0, cols)
		for col := 0; col < cols; col++ {
			i := row*cols + col
			if i >= len(grid) {
				break
			}
			cells = append(cells, m.renderCell(i, grid[i]))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	b.WriteString(styleTries.Render(
		"Tries left: "+strings.Repeat("● ", m.s.TriesLeft())+strings.Repeat("○ ", puzzle.MaxTries-m.s.TriesLeft())) + "\n")

	for _, g := range m.s.Groups() {
		if g.Age > 0 {
			b.WriteString(lipgloss.NewStyle().Foreground(tagColors[g.Tag]).Render("Group Found! "+strings.Join(g.Texts(), ", ")) + "\n")
		}
	}
	if fb := m.s.Feedback(); fb.Visible() {
		b.WriteString(styleHint.Render(fb.Message) + "\n")
	}
	if m.err != nil {
		b.WriteString(styleLoss.Render(m.err.Error()) + "\n")
	}

	if m.s.GameOver() {
		style := styleLoss
		if m.s.Won() {
			style = styleWin
		}
		b.WriteString("\n" + style.Render(puzzle.ResultMessage(m.s)) + "\n")
		b.WriteString(styleSubtle.Render("Press 'r' to restart, 'q' to quit") + "\n")
	} else {
		b.WriteString(styleSubtle.Render("arrows/hjkl move · space select · s shuffle · d deselect all · r new game · q quit") + "\n")
	}
	return b.String()
}

func (m model) renderCell(i int, w puzzle.Word) string {
	style := styleCell
	switch {
	case w.Grouped:
		style = style.Background(tagColors[w.Tag]).Foreground(lipgloss.Color("0"))
	case w.Selected:
		style = styleSelected
	}
	if i == m.cursor && !m.s.GameOver() {
		style = style.BorderForeground(cursorColor)
	}
	return style.Render(w.Text)
}
