// Package tui is the operator attach console: a terminal program that
// connects to a robot's session endpoints, shows supervised process output,
// and sends operator lines back, including retry answers.
package tui

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/survey-ops/surveyor/internal/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD"))

	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
)

type outputMsg string
type disconnectMsg struct{ err error }

// Model is the bubbletea model for one attach session.
type Model struct {
	robot string

	outputConn net.Conn
	inputConn  net.Conn
	outputCh   chan tea.Msg

	viewport viewport.Model
	input    textinput.Model
	content  strings.Builder

	width  int
	height int
	ready  bool
	closed bool
}

// NewConsole dials both session endpoints for robot. The supervisor must be
// running; otherwise there is nothing to attach to.
func NewConsole(robot string) (*Model, error) {
	outputConn, err := net.Dial("unix", bridge.OutputSocketPath(robot))
	if err != nil {
		return nil, fmt.Errorf("attach to output endpoint (is a survey running?): %w", err)
	}
	inputConn, err := net.Dial("unix", bridge.InputSocketPath(robot))
	if err != nil {
		_ = outputConn.Close()
		return nil, fmt.Errorf("attach to input endpoint: %w", err)
	}

	ti := textinput.New()
	ti.Prompt = promptStyle.Render("> ")
	ti.Placeholder = "type a line for the process (yes/no/skip for retry prompts)"
	ti.Focus()

	m := &Model{
		robot:      robot,
		outputConn: outputConn,
		inputConn:  inputConn,
		outputCh:   make(chan tea.Msg, 64),
		input:      ti,
	}
	go m.readOutput()
	return m, nil
}

// readOutput pumps process output from the socket into the program.
func (m *Model) readOutput() {
	reader := bufio.NewReader(m.outputConn)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			m.outputCh <- outputMsg(string(buf[:n]))
		}
		if err != nil {
			m.outputCh <- disconnectMsg{err: err}
			return
		}
	}
}

func (m *Model) waitForOutput() tea.Cmd {
	return func() tea.Msg { return <-m.outputCh }
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForOutput(), tea.EnterAltScreen)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.close()
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if line != "" && !m.closed {
				if _, err := m.inputConn.Write([]byte(line + "\n")); err != nil {
					m.append(fmt.Sprintf("[send failed: %v]\n", err))
					break
				}
				m.append(promptStyle.Render("> "+line) + "\n")
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.content.String())

	case outputMsg:
		m.append(string(msg))
		return m, m.waitForOutput()

	case disconnectMsg:
		m.append("\n[session ended]\n")
		m.closed = true
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "attaching to " + m.robot + "..."
	}
	title := titleStyle.Render("surveyor attach " + m.robot)
	body := borderStyle.Width(m.width - 2).Render(m.viewport.View())
	return title + "\n" + body + "\n" + m.input.View() + "\n"
}

func (m *Model) append(text string) {
	m.content.WriteString(text)
	if m.ready {
		m.viewport.SetContent(m.content.String())
		m.viewport.GotoBottom()
	}
}

func (m *Model) close() {
	if m.closed {
		return
	}
	m.closed = true
	_ = m.outputConn.Close()
	_ = m.inputConn.Close()
}

// Run attaches to robot and blocks until the operator quits.
func Run(robot string) error {
	m, err := NewConsole(robot)
	if err != nil {
		return err
	}
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
