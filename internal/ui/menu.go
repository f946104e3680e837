package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/prefs"
)

type menuItem struct {
	label string
	done  string
	run   func(Board, int) error
}

// actionMenu lists the actions for one departure. Delete asks for
// confirmation first.
type actionMenu struct {
	board      Board
	departure  prefs.Departure
	items      []menuItem
	cursor     int
	confirming bool
}

func newActionMenu(board Board, d prefs.Departure) *actionMenu {
	toggle := fmt.Sprintf("Show %d departures", otherTripCount(d))
	return &actionMenu{
		board:     board,
		departure: d,
		items: []menuItem{
			{label: "Reverse direction", done: "Reversed " + d.Title(), run: Board.Reverse},
			{label: toggle, done: toggle, run: Board.ToggleTrips},
			{label: "Move to top", done: "Moved to top", run: Board.MoveFirst},
			{label: "Move to bottom", done: "Moved to bottom", run: Board.MoveLast},
			{label: "Delete", done: "Deleted " + d.Title(), run: Board.Remove},
		},
	}
}

func otherTripCount(d prefs.Departure) int {
	if d.EffectiveNumTrips() == prefs.DefaultNumTrips {
		return 6
	}
	return prefs.DefaultNumTrips
}

func (a *actionMenu) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil, false
	}

	if a.confirming {
		switch k.String() {
		case "y", "Y":
			return a, a.run(a.items[a.cursor]), true
		default:
			a.confirming = false
			return a, nil, false
		}
	}

	switch {
	case key.Matches(k, keys.Escape), key.Matches(k, keys.Quit), key.Matches(k, keys.Menu):
		return a, nil, true
	case key.Matches(k, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(k, keys.Down):
		if a.cursor < len(a.items)-1 {
			a.cursor++
		}
	case key.Matches(k, keys.Confirm):
		if a.isDelete() {
			a.confirming = true
			return a, nil, false
		}
		return a, a.run(a.items[a.cursor]), true
	}
	return a, nil, false
}

func (a *actionMenu) isDelete() bool {
	return a.cursor == len(a.items)-1
}

func (a *actionMenu) run(item menuItem) tea.Cmd {
	board, id := a.board, a.departure.ID
	return actionCmd(item.done, func() error {
		return item.run(board, id)
	})
}

func (a *actionMenu) View(theme Theme, width int) string {
	styles := theme.Styles()
	boxWidth := minInt(maxInt(width-4, 30), 52)

	lines := []string{
		styles.Text.Bold(true).Render(truncate(a.departure.Title(), boxWidth-4)),
		"",
	}
	for i, item := range a.items {
		style := styles.MutedText
		prefix := "  "
		if i == a.cursor {
			style = styles.AccentText
			prefix = "› "
			if a.isDelete() {
				style = styles.DangerText
			}
		}
		lines = append(lines, style.Render(prefix+item.label))
	}

	lines = append(lines, "")
	if a.confirming {
		lines = append(lines, styles.DangerText.Render("Delete this departure? y/n"))
	} else {
		lines = append(lines, styles.FaintText.Render("enter select · esc close"))
	}

	return styles.PanelFocus.
		Width(boxWidth).
		Background(lipgloss.Color(theme.Surface)).
		Render(strings.Join(lines, "\n"))
}
