package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
)

type formField int

const (
	fieldFrom formField = iota
	fieldTo
)

const maxSuggestions = 8

// suggestionsMsg carries the result of a stop lookup for one field.
type suggestionsMsg struct {
	field formField
	text  string
	list  []entur.Suggestion
	err   error
}

// addForm is the modal for creating a departure. A stop counts as chosen
// only once it was picked from the suggestions.
type addForm struct {
	ctx   context.Context
	board Board

	mode        prefs.Mode
	inputs      [2]textinput.Model
	chosen      [2]prefs.Place
	focus       formField
	suggestions []entur.Suggestion
	cursor      int
	err         string
}

func newAddForm(ctx context.Context, board Board) *addForm {
	f := &addForm{ctx: ctx, board: board, mode: prefs.ModeBus}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = "Search " + f.mode.Place()
		ti.CharLimit = 64
		f.inputs[i] = ti
	}
	f.inputs[fieldFrom].Focus()
	return f
}

func (f *addForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case suggestionsMsg:
		f.applySuggestions(msg)
		return f, nil, false

	case tea.KeyMsg:
		return f.handleKey(msg, keys)
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f *addForm) applySuggestions(msg suggestionsMsg) {
	if errors.Is(msg.err, entur.ErrSuperseded) {
		return
	}
	if msg.field != f.focus || msg.text != f.inputs[f.focus].Value() {
		return
	}
	if msg.err != nil {
		f.err = "Stop search failed: " + msg.err.Error()
		f.suggestions = nil
		return
	}
	f.err = ""
	f.suggestions = msg.list
	if len(f.suggestions) > maxSuggestions {
		f.suggestions = f.suggestions[:maxSuggestions]
	}
	f.cursor = 0
}

func (f *addForm) handleKey(msg tea.KeyMsg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Escape):
		return f, nil, true

	case key.Matches(msg, keys.NextField), key.Matches(msg, keys.PrevField):
		if f.focus == fieldFrom {
			f.setFocus(fieldTo)
		} else {
			f.setFocus(fieldFrom)
		}
		return f, nil, false

	case key.Matches(msg, keys.CycleMode):
		f.mode = f.mode.Next()
		f.chosen = [2]prefs.Place{}
		f.suggestions = nil
		f.err = ""
		for i := range f.inputs {
			f.inputs[i].Placeholder = "Search " + f.mode.Place()
		}
		return f, f.suggestCmd(), false

	case msg.Type == tea.KeyUp:
		if f.cursor > 0 {
			f.cursor--
		}
		return f, nil, false

	case msg.Type == tea.KeyDown:
		if f.cursor < len(f.suggestions)-1 {
			f.cursor++
		}
		return f, nil, false

	case key.Matches(msg, keys.Confirm):
		if len(f.suggestions) > 0 {
			f.choose(f.suggestions[f.cursor])
			return f, nil, false
		}
		return f.submit()
	}

	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if f.inputs[f.focus].Value() == before {
		return f, cmd, false
	}
	f.chosen[f.focus] = prefs.Place{}
	f.err = ""
	return f, tea.Batch(cmd, f.suggestCmd()), false
}

func (f *addForm) setFocus(field formField) {
	f.inputs[f.focus].Blur()
	f.focus = field
	f.inputs[f.focus].Focus()
	f.suggestions = nil
	f.cursor = 0
}

func (f *addForm) choose(s entur.Suggestion) {
	f.chosen[f.focus] = prefs.Place{StopID: s.ID, Name: s.Label}
	f.inputs[f.focus].SetValue(s.Label)
	f.inputs[f.focus].CursorEnd()
	f.suggestions = nil
	f.cursor = 0
	if f.focus == fieldFrom && f.chosen[fieldTo].StopID == "" {
		f.setFocus(fieldTo)
	}
}

func (f *addForm) submit() (Modal, tea.Cmd, bool) {
	from, to := f.chosen[fieldFrom], f.chosen[fieldTo]
	switch {
	case from.StopID == "":
		f.err = "Pick a from " + f.mode.Place() + " from the suggestions"
		return f, nil, false
	case to.StopID == "":
		f.err = "Pick a to " + f.mode.Place() + " from the suggestions"
		return f, nil, false
	case from.StopID == to.StopID:
		f.err = "From and to must be different stops"
		return f, nil, false
	}

	d := prefs.Departure{PlaceFrom: from, PlaceTo: to, Mode: f.mode}
	board := f.board
	return f, actionCmd("Added "+d.Title(), func() error {
		_, err := board.Save(d)
		return err
	}), true
}

func (f *addForm) suggestCmd() tea.Cmd {
	field := f.focus
	text := f.inputs[field].Value()
	if strings.TrimSpace(text) == "" || f.board == nil {
		return nil
	}
	ctx, board, mode := f.ctx, f.board, f.mode
	return func() tea.Msg {
		list, err := board.Suggest(ctx, text, mode)
		return suggestionsMsg{field: field, text: text, list: list, err: err}
	}
}

func (f *addForm) View(theme Theme, width int) string {
	styles := theme.Styles()
	boxWidth := minInt(maxInt(width-4, 30), 64)
	inner := boxWidth - 4

	var lines []string
	lines = append(lines, styles.Text.Bold(true).Render("Add departure"), "")
	lines = append(lines,
		styles.MutedText.Render("Mode  ")+styles.Text.Render(f.mode.Symbol()+" "+f.mode.Name())+
			styles.FaintText.Render("  ctrl+t to change"))

	for _, field := range []formField{fieldFrom, fieldTo} {
		label := "From  "
		if field == fieldTo {
			label = "To    "
		}
		input := f.inputs[field]
		input.Width = inner - len(label) - 2
		row := styles.MutedText.Render(label) + input.View()
		if f.chosen[field].StopID != "" {
			row += " " + styles.SuccessText.Render("✓")
		}
		lines = append(lines, row)
		if field == f.focus {
			lines = append(lines, f.renderSuggestions(styles, inner)...)
		}
	}

	if f.err != "" {
		lines = append(lines, "", styles.DangerText.Render(truncate(f.err, inner)))
	}
	lines = append(lines, "",
		styles.FaintText.Render("tab switch field · enter choose or save · esc cancel"))

	return styles.PanelFocus.
		Width(boxWidth).
		Background(lipgloss.Color(theme.Surface)).
		Render(strings.Join(lines, "\n"))
}

func (f *addForm) renderSuggestions(styles Styles, width int) []string {
	lines := make([]string, 0, len(f.suggestions))
	for i, s := range f.suggestions {
		label := truncate(s.Label, width-8)
		if i == f.cursor {
			lines = append(lines, styles.AccentText.Render("    › "+label))
			continue
		}
		lines = append(lines, styles.MutedText.Render("      "+label))
	}
	return lines
}
