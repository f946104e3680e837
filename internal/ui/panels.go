package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/refresh"
	"github.com/five82/transitboard/internal/state"
)

// renderBoard renders the departure panels, scrolled so the selected one
// is visible.
func (m Model) renderBoard() string {
	styles := m.theme.Styles()
	available := m.height - 2 // header + command bar

	if len(m.departures) == 0 {
		return lipgloss.Place(m.width, maxInt(available, 1), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No departures yet. Press ")+
				styles.AccentText.Render("a")+
				styles.MutedText.Render(" to add one."))
	}

	width := minInt(m.width, LayoutMaxPanelWidth)
	rendered := make([]string, len(m.departures))
	for i, d := range m.departures {
		panel, ok := m.snapshot.Panel(d.ID)
		rendered[i] = m.renderPanel(d, panel, ok, i == m.selected, m.expanded[d.ID], width)
	}
	return strings.Join(visiblePanels(rendered, m.selected, available), "\n")
}

// visiblePanels picks the panels that fit into height lines, always
// including the selected one, then filling upwards and downwards.
func visiblePanels(panels []string, selected, height int) []string {
	if len(panels) == 0 {
		return nil
	}
	if selected < 0 || selected >= len(panels) {
		selected = 0
	}
	used := lipgloss.Height(panels[selected])
	start, end := selected, selected+1
	for start > 0 {
		h := lipgloss.Height(panels[start-1])
		if used+h > height {
			break
		}
		used += h
		start--
	}
	for end < len(panels) {
		h := lipgloss.Height(panels[end])
		if used+h > height {
			break
		}
		used += h
		end++
	}
	return panels[start:end]
}

// renderPanel renders one departure.
func (m Model) renderPanel(d prefs.Departure, p state.Panel, hasPanel, selected, expanded bool, width int) string {
	styles := m.theme.Styles()
	inner := maxInt(width-4, 20) // border + padding

	title := styles.Text.Bold(true).Render(truncate(d.Mode.Symbol()+" "+d.Title(), inner-4))
	if hasPanel && p.Status == state.StatusLoading {
		title += " " + m.spinner.View()
	}

	lines := []string{title}
	switch {
	case !hasPanel || p.Status == state.StatusIdle:
		lines = append(lines, styles.FaintText.Render("Waiting for first refresh"))

	case p.Status == state.StatusLoading && len(p.Trips) == 0:
		lines = append(lines, styles.FaintText.Render("Loading departures..."))
		for i := 1; i < p.Height; i++ {
			lines = append(lines, "")
		}

	case p.Status == state.StatusLoading:
		lines = append(lines, m.renderTrips(d, p.Trips, p.Notices, expanded, inner, true)...)

	case p.Status == state.StatusResults:
		lines = append(lines, m.renderTrips(d, p.Trips, p.Notices, expanded, inner, false)...)

	case p.Status == state.StatusEmpty:
		lines = append(lines, styles.MutedText.Render(p.Message))

	case p.Status == state.StatusError:
		lines = append(lines, styles.DangerText.Render("Could not load departures"))
		if p.Err != nil {
			lines = append(lines, styles.MutedText.Render(truncate(p.Err.Error(), inner)))
		}
		lines = append(lines,
			styles.FaintText.Render("Press ")+styles.AccentText.Render("r")+styles.FaintText.Render(" to try again"))
	}

	if expanded {
		lines = append(lines, m.renderPanelFooter(d, p, hasPanel))
	}

	box := styles.Panel
	if selected {
		box = styles.PanelFocus
	}
	return box.Width(width - 2).Render(strings.Join(lines, "\n"))
}

// renderTrips renders trip rows followed by their service notices.
func (m Model) renderTrips(d prefs.Departure, trips []entur.Trip, notices []refresh.Notice, expanded bool, width int, stale bool) []string {
	styles := m.theme.Styles()
	text, muted := styles.Text, styles.MutedText
	if stale {
		text, muted = styles.FaintText, styles.FaintText
	}

	markers := noticeMarkers(notices)
	var lines []string
	for i, trip := range trips {
		badge := styles.LineBadge(trip.Colour, trip.TextColour, d.Mode).Render(trip.PublicCode)

		when := departsIn(trip.ExpectedDeparture, m.now)
		clock := trip.ExpectedDeparture.Local().Format("15:04")
		right := muted.Render(clock) + " " + text.Bold(!stale).Render(padLeft(when, 6))
		if delay := formatDelay(trip.Delay()); delay != "" {
			right += " " + styles.WarningText.Render(delay)
		}

		front := trip.FrontText
		if trip.Platform != "" {
			front += " (" + d.Mode.Place() + " " + trip.Platform + ")"
		}
		if mark := markers[i]; mark != "" {
			front += " " + mark
		}

		// Leave a cell spare for glyphs some terminals draw double width.
		leftWidth := width - lipgloss.Width(badge) - lipgloss.Width(right) - 3
		left := text.Render(padRight(truncate(front, leftWidth), leftWidth))
		lines = append(lines, badge+" "+left+" "+right)

		if expanded {
			lines = append(lines, styles.FaintText.Render("   "+tripDetail(trip)))
		}
	}

	for i, n := range notices {
		summary := n.Situation.Summary
		if summary == "" {
			summary = n.Situation.Description
		}
		lines = append(lines, styles.WarningText.Render(truncate(fmt.Sprintf("⚠%s %s", superscript(i+1), summary), width)))
		if expanded && n.Situation.Description != "" && n.Situation.Description != summary {
			for _, l := range wrap(n.Situation.Description, width-3) {
				lines = append(lines, styles.MutedText.Render("   "+l))
			}
		}
		if expanded && !n.Situation.ValidTo.IsZero() {
			lines = append(lines, styles.FaintText.Render("   until "+n.Situation.ValidTo.Local().Format("2 Jan 15:04")))
		}
	}
	return lines
}

// noticeMarkers maps a trip index to the markers of the notices that apply
// to it.
func noticeMarkers(notices []refresh.Notice) map[int]string {
	out := make(map[int]string)
	for i, n := range notices {
		for _, idx := range n.Trips {
			out[idx] += "⚠" + superscript(i+1)
		}
	}
	return out
}

func tripDetail(trip entur.Trip) string {
	var parts []string
	if trip.LineName != "" {
		parts = append(parts, trip.LineName)
	}
	if trip.Authority != "" {
		parts = append(parts, trip.Authority)
	}
	if !trip.AimedDeparture.IsZero() {
		parts = append(parts, "planned "+trip.AimedDeparture.Local().Format("15:04"))
	}
	return strings.Join(parts, " · ")
}

func (m Model) renderPanelFooter(d prefs.Departure, p state.Panel, hasPanel bool) string {
	styles := m.theme.Styles()
	parts := []string{fmt.Sprintf("showing %d", d.EffectiveNumTrips())}
	if hasPanel && !p.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+p.UpdatedAt.Local().Format("15:04:05"))
	}
	return styles.FaintText.Render(strings.Join(parts, " · "))
}

var superscripts = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func superscript(n int) string {
	if n < 0 {
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	for _, r := range digits {
		b.WriteRune(superscripts[r-'0'])
	}
	return b.String()
}

func padLeft(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(r)) + s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
