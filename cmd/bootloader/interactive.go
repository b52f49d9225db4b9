package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type modelState int

const (
	stateProbing modelState = iota
	stateReady
)

type devModel struct {
	ctx      context.Context
	err      error
	run      *devRun
	renderer *render.Renderer
	spinner  spinner.Model
	flags    devFlags
	state    modelState
}

type bootedMsg struct {
	err error
	run *devRun
}

func newDevModel(ctx context.Context, f devFlags) *devModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &devModel{
		ctx:      ctx,
		flags:    f,
		renderer: render.New(terminalWidth()),
		spinner:  sp,
		state:    stateProbing,
	}
}

func (m *devModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.boot)
}

func (m *devModel) boot() tea.Msg {
	run, err := bootDev(m.ctx, m.flags)
	return bootedMsg{run: run, err: err}
}

func (m *devModel) shutdown() {
	if m.run != nil {
		m.run.close()
		m.run = nil
	}
}

func (m *devModel) connected() bool {
	return m.run != nil && m.run.result.Dev != nil && m.run.result.Dev.Outcome == devmode.OutcomeConnected
}

func (m *devModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.shutdown()
			return m, tea.Quit

		case "r":
			if m.state == stateProbing {
				return m, nil
			}
			m.shutdown()
			m.err = nil
			m.state = stateProbing
			return m, tea.Batch(m.spinner.Tick, m.boot)

		case "d":
			// Simulates the code server dropping the link.
			if m.connected() {
				m.run.result.Dev.Session.Disconnected()
				m.run.page.Loop().Drain()
			}

		case "u":
			if m.run != nil {
				m.run.page.FireUnload()
			}
		}

	case tea.WindowSizeMsg:
		m.renderer = render.New(msg.Width)

	case bootedMsg:
		m.state = stateReady
		m.err = msg.err
		m.run = msg.run

	case spinner.TickMsg:
		if m.state == stateProbing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *devModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Dev Host"))
	b.WriteString(" ")
	b.WriteString(m.flags.module)
	b.WriteString("\n\n")

	switch {
	case m.state == stateProbing:
		b.WriteString(m.spinner.View())
		b.WriteString(" Connecting to code server...\n")
		return b.String()

	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(m.renderer.Help("r reboot", "q quit"))
		return b.String()
	}

	line := outcomeLine(m.run.result)
	if m.connected() {
		b.WriteString(okStyle.Render(line))
	} else {
		b.WriteString(errorStyle.Render(line))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderer.Page(m.run.page))
	b.WriteString("\n")
	b.WriteString(m.renderer.Help("r reboot", "d drop link", "u unload", "q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, f devFlags) error {
	m := newDevModel(ctx, f)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.shutdown()
	return err
}
