package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/refresh"
	"github.com/five82/transitboard/internal/state"
)

func boardModel(t *testing.T, panels map[int]state.Panel) Model {
	t.Helper()
	m := newTestModel(&fakeBoard{})
	m.now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	m, _ = update(t, m, boardMsg{
		departures: []prefs.Departure{testDeparture(1, "Alpha", "Beta")},
		snapshot:   state.Snapshot{Panels: panels},
	})
	return m
}

func TestRenderBoard_Empty(t *testing.T) {
	m := newTestModel(&fakeBoard{})
	if out := m.renderBoard(); !strings.Contains(out, "No departures yet") {
		t.Fatalf("renderBoard() = %q", out)
	}
}

func TestRenderBoard_Statuses(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	trip := entur.Trip{
		ExpectedDeparture: now.Add(5*time.Minute + 2*time.Minute),
		AimedDeparture:    now.Add(5 * time.Minute),
		PublicCode:        "31",
		FrontText:         "Tonsenhagen",
		Platform:          "B",
		Situations:        []entur.Situation{{ID: "s1", Summary: "Stop moved"}},
	}

	cases := []struct {
		name  string
		panel state.Panel
		want  []string
	}{
		{"idle", state.Panel{Status: state.StatusIdle}, []string{"Bus from Alpha to Beta", "Waiting for first refresh"}},
		{"loading", state.Panel{Status: state.StatusLoading, Height: 3}, []string{"Loading departures"}},
		{"results", state.Panel{
			Status:  state.StatusResults,
			Trips:   []entur.Trip{trip},
			Notices: refresh.CollectNotices([]entur.Trip{trip}),
		}, []string{"31", "Tonsenhagen", "(stop B)", "7 min", "+2 min", "Stop moved"}},
		{"stale while loading", state.Panel{Status: state.StatusLoading, Trips: []entur.Trip{trip}}, []string{"Tonsenhagen"}},
		{"empty", state.Panel{Status: state.StatusEmpty, Message: "No departures by bus from Alpha stop to Beta stop"}, []string{"No departures by bus"}},
		{"error", state.Panel{Status: state.StatusError, Err: errors.New("status 503")}, []string{"Could not load departures", "status 503", "to try again"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := boardModel(t, map[int]state.Panel{1: tc.panel})
			out := m.renderBoard()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Fatalf("renderBoard() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRenderBoard_ExpandedShowsDetails(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	trip := entur.Trip{
		ExpectedDeparture: now.Add(10 * time.Minute),
		AimedDeparture:    now.Add(10 * time.Minute),
		PublicCode:        "31",
		FrontText:         "Tonsenhagen",
		LineName:          "Snarøya - Tonsenhagen",
		Authority:         "Ruter",
	}
	m := boardModel(t, map[int]state.Panel{1: {Status: state.StatusResults, Trips: []entur.Trip{trip}}})
	m.expanded[1] = true

	out := m.renderBoard()
	for _, want := range []string{"Ruter", "planned 08:10", "showing 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expanded panel missing %q:\n%s", want, out)
		}
	}
}

func TestVisiblePanels(t *testing.T) {
	panels := []string{"a\na", "b\nb", "c\nc", "d\nd"}

	cases := []struct {
		name     string
		selected int
		height   int
		want     []string
	}{
		{"all fit", 0, 8, panels},
		{"selected first", 0, 4, panels[0:2]},
		{"selected last", 3, 4, panels[2:4]},
		{"fill upward first", 2, 6, panels[0:3]},
		{"too small keeps selection", 2, 1, panels[2:3]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := visiblePanels(panels, tc.selected, tc.height)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("visiblePanels() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNoticeMarkers(t *testing.T) {
	notices := []refresh.Notice{{Trips: []int{0, 2}}, {Trips: []int{2}}}
	got := noticeMarkers(notices)
	if got[0] != "⚠¹" || got[2] != "⚠¹⚠²" || got[1] != "" {
		t.Fatalf("noticeMarkers() = %q", got)
	}
	if superscript(12) != "¹²" {
		t.Fatalf("superscript(12) = %q", superscript(12))
	}
}
