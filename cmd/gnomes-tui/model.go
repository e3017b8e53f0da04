package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gnomes/pkg/bridge"
)

// Mover asks the move service for a move. *bridge.Client implements it.
type Mover interface {
	RequestMove(ctx context.Context, fen string) (bridge.Result, error)
}

// robotMsg carries the move service's answer for fen.
type robotMsg struct {
	fen string
	res bridge.Result
	err error
}

// askRobotCmd returns a tea.Cmd that asks robot for a move in fen.
func askRobotCmd(robot Mover, fen string) tea.Cmd {
	return func() tea.Msg {
		res, err := robot.RequestMove(context.Background(), fen)
		return robotMsg{fen: fen, res: res, err: err}
	}
}

// Model is the Bubble Tea model for the chess REPL.
type Model struct {
	repl  *repl
	robot Mover
	input textinput.Model
	theme Theme

	output    string
	errText   string
	showBoard bool
	thinking  bool
	width     int
}

func newModel(robot Mover) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "e4, robot, help"
	ti.Focus()
	return Model{
		repl:      newREPL(),
		robot:     robot,
		input:     ti,
		theme:     DefaultTheme(),
		showBoard: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			return m.run(line)
		}

	case robotMsg:
		m.thinking = false
		if msg.err != nil {
			m.errText = "robot failed: " + msg.err.Error()
			return m, nil
		}
		if err := m.repl.playRobot(msg.fen, msg.res.Move); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.output = "robot played " + msg.res.Move
		m.errText = ""
		m.showBoard = true
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run executes one REPL line.
func (m Model) run(line string) (tea.Model, tea.Cmd) {
	out := m.repl.exec(line)
	if out.quit {
		return m, tea.Quit
	}
	m.output = out.output
	m.errText = ""
	if out.err != nil {
		m.errText = out.err.Error()
	}
	m.showBoard = out.showBoard
	if out.askRobot {
		if m.thinking {
			m.errText = "robot is already thinking"
			return m, nil
		}
		m.thinking = true
		return m, askRobotCmd(m.robot, m.repl.game.Board().FEN())
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).Render("gnomes")
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	parts := []string{title}
	if m.showBoard {
		board := renderBoard(m.repl.game.Board(), m.theme)
		if m.width > 0 {
			board = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, board)
		}
		parts = append(parts, board)
	}
	parts = append(parts, muted.Render(statusLine(m.repl.game)))
	if m.output != "" {
		parts = append(parts, m.output)
	}
	if m.errText != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.Error).Render(m.errText))
	}
	if m.thinking {
		parts = append(parts, muted.Render("robot is thinking..."))
	}
	parts = append(parts, m.input.View())
	return strings.Join(parts, "\n\n") + "\n"
}
