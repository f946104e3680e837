package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	entries []logtail.Entry
	follow  bool
	err     error
}

type logLinesMsg struct {
	lines []string
	err   error
}

func loadLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logLinesMsg{}
		}
		lines, err := logtail.Read(path, LogBufferLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.entries = logtail.FormatLines(msg.lines)
	}
	m.updateLogViewport()
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(maxInt(m.width-4, 1), maxInt(m.height-5, 1))
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport resizes the viewport and refills it from the log state.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.initLogViewport()
	}

	// Box inner height: header, command bar, status line and two borders.
	m.logViewport.Width = maxInt(m.width-4, 1)
	m.logViewport.Height = maxInt(m.height-5, 1)
	m.logViewport.SetContent(m.renderLogContent())

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()

	box := styles.PanelFocus.
		Width(maxInt(m.width-2, 1)).
		Render(styles.Text.Bold(true).Render("Log") + "\n" + m.logViewport.View())
	return box + "\n" + m.renderLogStatus(styles)
}

func (m Model) renderLogStatus(styles Styles) string {
	if m.logState.err != nil {
		return styles.DangerText.Render(truncate(m.logState.err.Error(), m.width))
	}
	follow := "off"
	if m.logState.follow {
		follow = "on"
	}
	status := fmt.Sprintf("%d lines · follow %s", len(m.logState.entries), follow)
	if m.logPath != "" {
		status += " · " + m.logPath
	}
	return styles.FaintText.Render(truncate(status, m.width))
}

// renderLogContent renders the log entries coloured by level.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if len(m.logState.entries) == 0 {
		return styles.MutedText.Render("No log entries")
	}

	var b strings.Builder
	for i, e := range m.logState.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderLogEntry(e, styles))
	}
	return b.String()
}

func (m Model) renderLogEntry(e logtail.Entry, styles Styles) string {
	if e.Level == "" && e.Time.IsZero() {
		return styles.MutedText.Render(e.Message)
	}
	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
	}
	if e.Level != "" {
		parts = append(parts, levelStyle(e.Level, styles).Bold(true).Render(padRight(e.Level, 5)))
	}
	parts = append(parts, styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		parts = append(parts, styles.MutedText.Render(a.Key+"=")+styles.Text.Render(a.Value))
	}
	return strings.Join(parts, " ")
}

// levelStyle returns the style for a log level.
func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input in the log view. Manual scrolling
// stops following the tail.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, loadLogsCmd(m.logPath)
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.logViewport.YOffset
	m.logViewport, cmd = m.logViewport.Update(msg)
	if m.logViewport.YOffset != before {
		m.logState.follow = false
	}
	return m, cmd
}
