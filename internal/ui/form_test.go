package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
)

func formUpdate(t *testing.T, f *addForm, msg tea.Msg) (tea.Cmd, bool) {
	t.Helper()
	next, cmd, done := f.Update(msg, DefaultKeyMap())
	if next != f {
		t.Fatalf("Update returned a different modal")
	}
	return cmd, done
}

func TestAddForm_TypingLooksUpSuggestions(t *testing.T) {
	board := &fakeBoard{suggestions: []entur.Suggestion{
		{ID: "NSR:StopPlace:1", Label: "Oslo S, Oslo"},
		{ID: "NSR:StopPlace:2", Label: "Oslo bussterminal, Oslo"},
	}}
	f := newAddForm(context.Background(), board)

	formUpdate(t, f, runes("Os"))
	if got := f.inputs[fieldFrom].Value(); got != "Os" {
		t.Fatalf("from = %q, want Os", got)
	}

	msg, ok := f.suggestCmd()().(suggestionsMsg)
	if !ok {
		t.Fatalf("suggestCmd did not produce suggestionsMsg")
	}
	if msg.field != fieldFrom || msg.text != "Os" {
		t.Fatalf("msg = %+v", msg)
	}
	formUpdate(t, f, msg)
	if len(f.suggestions) != 2 {
		t.Fatalf("suggestions = %v", f.suggestions)
	}

	formUpdate(t, f, tea.KeyMsg{Type: tea.KeyDown})
	formUpdate(t, f, tea.KeyMsg{Type: tea.KeyEnter})
	want := prefs.Place{StopID: "NSR:StopPlace:2", Name: "Oslo bussterminal, Oslo"}
	if f.chosen[fieldFrom] != want {
		t.Fatalf("chosen from = %+v, want %+v", f.chosen[fieldFrom], want)
	}
	if f.focus != fieldTo {
		t.Fatalf("focus = %v, want to field", f.focus)
	}
	if f.suggestions != nil {
		t.Fatalf("suggestions not cleared")
	}
}

func TestAddForm_IgnoresStaleSuggestions(t *testing.T) {
	f := newAddForm(context.Background(), &fakeBoard{})
	f.inputs[fieldFrom].SetValue("Oslo")

	cases := []struct {
		name string
		msg  suggestionsMsg
	}{
		{"superseded", suggestionsMsg{field: fieldFrom, text: "Oslo", err: entur.ErrSuperseded}},
		{"old text", suggestionsMsg{field: fieldFrom, text: "Os", list: []entur.Suggestion{{ID: "x"}}}},
		{"other field", suggestionsMsg{field: fieldTo, text: "Oslo", list: []entur.Suggestion{{ID: "x"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			formUpdate(t, f, tc.msg)
			if f.suggestions != nil || f.err != "" {
				t.Fatalf("stale result applied: suggestions=%v err=%q", f.suggestions, f.err)
			}
		})
	}

	formUpdate(t, f, suggestionsMsg{field: fieldFrom, text: "Oslo", err: errors.New("status 503")})
	if !strings.Contains(f.err, "status 503") {
		t.Fatalf("err = %q", f.err)
	}
}

func TestAddForm_Validation(t *testing.T) {
	same := prefs.Place{StopID: "NSR:StopPlace:1", Name: "Alpha"}
	cases := []struct {
		name   string
		from   prefs.Place
		to     prefs.Place
		errHas string
	}{
		{"no from", prefs.Place{}, same, "from stop"},
		{"no to", same, prefs.Place{}, "to stop"},
		{"same stop", same, same, "From and to must be different stops"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := &fakeBoard{}
			f := newAddForm(context.Background(), board)
			f.chosen = [2]prefs.Place{tc.from, tc.to}

			cmd, done := formUpdate(t, f, tea.KeyMsg{Type: tea.KeyEnter})
			if done || cmd != nil {
				t.Fatalf("invalid form submitted")
			}
			if !strings.Contains(f.err, tc.errHas) {
				t.Fatalf("err = %q, want it to contain %q", f.err, tc.errHas)
			}
		})
	}
}

func TestAddForm_SubmitSaves(t *testing.T) {
	board := &fakeBoard{}
	f := newAddForm(context.Background(), board)
	f.chosen = [2]prefs.Place{
		{StopID: "NSR:StopPlace:1", Name: "Alpha"},
		{StopID: "NSR:StopPlace:2", Name: "Beta"},
	}

	cmd, done := formUpdate(t, f, tea.KeyMsg{Type: tea.KeyEnter})
	if !done || cmd == nil {
		t.Fatalf("form not submitted: done=%v cmd=%v", done, cmd != nil)
	}
	msg, ok := cmd().(actionDoneMsg)
	if !ok || msg.err != nil {
		t.Fatalf("save result = %#v", msg)
	}
	if msg.text != "Added Bus from Alpha to Beta" {
		t.Fatalf("text = %q", msg.text)
	}
	if len(board.saved) != 1 || board.saved[0].Mode != prefs.ModeBus || board.saved[0].PlaceTo.StopID != "NSR:StopPlace:2" {
		t.Fatalf("saved = %+v", board.saved)
	}
}

func TestAddForm_CycleModeClearsChoices(t *testing.T) {
	f := newAddForm(context.Background(), &fakeBoard{})
	f.chosen[fieldFrom] = prefs.Place{StopID: "NSR:StopPlace:1", Name: "Alpha"}

	formUpdate(t, f, tea.KeyMsg{Type: tea.KeyCtrlT})
	if f.mode != prefs.ModeTram {
		t.Fatalf("mode = %q, want tram", f.mode)
	}
	if f.chosen[fieldFrom] != (prefs.Place{}) {
		t.Fatalf("chosen place kept across mode change")
	}
}

func TestAddForm_TabSwitchesField(t *testing.T) {
	f := newAddForm(context.Background(), &fakeBoard{})
	f.suggestions = []entur.Suggestion{{ID: "x"}}

	formUpdate(t, f, tea.KeyMsg{Type: tea.KeyTab})
	if f.focus != fieldTo || f.suggestions != nil {
		t.Fatalf("focus = %v suggestions = %v", f.focus, f.suggestions)
	}
	formUpdate(t, f, tea.KeyMsg{Type: tea.KeyShiftTab})
	if f.focus != fieldFrom {
		t.Fatalf("focus = %v, want from", f.focus)
	}
}

func TestAddForm_View(t *testing.T) {
	f := newAddForm(context.Background(), &fakeBoard{})
	f.err = "From and to must be different stops"
	out := f.View(GetTheme("Nightfox"), 100)
	for _, want := range []string{"Add departure", "From", "To", "bus", f.err} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}
