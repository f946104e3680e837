package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/state"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	sep := "  "

	parts := []string{styles.Logo.Render("transitboard")}

	if m.snapshot.IsOffline() {
		parts = append(parts, styles.DangerText.Render("● Offline"))
	} else {
		parts = append(parts, styles.SuccessText.Render("● Online"))
	}

	parts = append(parts,
		styles.MutedText.Render("Departures:")+" "+styles.Text.Render(fmt.Sprintf("%d", len(m.departures))))

	if loading := m.countStatus(state.StatusLoading); loading > 0 {
		parts = append(parts,
			styles.MutedText.Render("Loading:")+" "+styles.InfoText.Render(fmt.Sprintf("%d", loading)))
	}
	if failed := m.countStatus(state.StatusError); failed > 0 {
		parts = append(parts,
			styles.MutedText.Render("Failed:")+" "+styles.DangerText.Render(fmt.Sprintf("%d", failed)))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, styles.MutedText.Render(ts))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// formatTimestamp describes the last and next refresh pass.
func (m Model) formatTimestamp() string {
	var parts []string
	if !m.snapshot.LastRefresh.IsZero() {
		parts = append(parts, "Updated "+m.snapshot.LastRefresh.Local().Format("15:04:05"))
	}
	if !m.next.IsZero() && m.width >= LayoutCompactWidth {
		parts = append(parts, "next in "+humanizeDuration(m.next.Sub(m.now)))
	}
	return strings.Join(parts, ", ")
}

func (m Model) countStatus(status state.Status) int {
	n := 0
	for _, d := range m.departures {
		if p, ok := m.snapshot.Panel(d.ID); ok && p.Status == status {
			n++
		}
	}
	return n
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.view {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"f", followLabel},
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"l", "Board"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"r", "Refresh"},
			{"a", "Add"},
			{"enter", "Details"},
			{"m", "Actions"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			styles.AccentText.Render(c.key)+":"+styles.MutedText.Render(c.desc))
	}

	segments = append(segments,
		styles.AccentText.Render("T")+":"+styles.FaintText.Render(m.theme.Name))

	if m.flash != "" {
		style := styles.InfoText
		if m.flashErr {
			style = styles.DangerText
		}
		segments = append(segments, style.Render(truncate(m.flash, 60)))
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Muted)).
		Padding(0, 1).
		Width(m.width).
		Render(strings.Join(segments, "  "))
}
