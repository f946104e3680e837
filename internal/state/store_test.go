package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/refresh"
)

func sampleTrips() []entur.Trip {
	return []entur.Trip{
		{PublicCode: "31", Situations: []entur.Situation{{ID: "S1", Summary: "Detour"}}},
		{PublicCode: "25"},
	}
}

func TestStore_ResultsAndSnapshotClone(t *testing.T) {
	var s Store
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return fixed }

	s.ShowLoading(1, 1)
	notices := []refresh.Notice{{Situation: entur.Situation{ID: "S1"}, Trips: []int{0}}}
	s.ShowResults(1, sampleTrips(), notices)

	snap := s.Snapshot()
	p, ok := snap.Panel(1)
	if !ok || p.Status != StatusResults {
		t.Fatalf("panel = %#v, want results", p)
	}
	if len(p.Trips) != 2 || p.Height != 3 || !p.UpdatedAt.Equal(fixed) {
		t.Fatalf("panel = %#v", p)
	}

	// Returned snapshot should be independent of the stored one.
	p.Trips[0].PublicCode = "999"
	p.Trips[0].Situations[0].Summary = "changed"
	p.Notices[0].Trips[0] = 42
	again, _ := s.Snapshot().Panel(1)
	if again.Trips[0].PublicCode != "31" || again.Trips[0].Situations[0].Summary != "Detour" {
		t.Fatalf("Snapshot should clone trips; got %#v", again.Trips[0])
	}
	if again.Notices[0].Trips[0] != 0 {
		t.Fatalf("Snapshot should clone notices; got %v", again.Notices[0].Trips)
	}
}

func TestStore_LoadingKeepsPreviousTripsAndHeight(t *testing.T) {
	var s Store
	s.ShowResults(1, sampleTrips(), nil)
	s.ShowLoading(1, 1)

	p, _ := s.Snapshot().Panel(1)
	if p.Status != StatusLoading {
		t.Fatalf("Status = %v, want loading", p.Status)
	}
	if len(p.Trips) != 2 || p.Height != 2 {
		t.Fatalf("loading panel = %#v, want previous trips and height 2", p)
	}

	s.ShowLoading(9, 0)
	if p, _ := s.Snapshot().Panel(9); p.Height != 1 {
		t.Fatalf("new loading panel height = %d, want 1", p.Height)
	}
}

func TestStore_EmptyAndErrorPanels(t *testing.T) {
	var s Store
	s.ShowResults(1, sampleTrips(), nil)

	s.ShowEmpty(1, "No departures by bus from Alpha to Beta")
	p, _ := s.Snapshot().Panel(1)
	if p.Status != StatusEmpty || p.Message == "" || len(p.Trips) != 0 {
		t.Fatalf("empty panel = %#v", p)
	}

	origErr := errors.New("boom")
	s.ShowError(1, origErr)
	snap := s.Snapshot()
	p, _ = snap.Panel(1)
	if p.Status != StatusError || p.Err == nil || p.Err.Error() != "boom" {
		t.Fatalf("error panel = %#v", p)
	}
	if !errors.Is(p.Err, origErr) {
		t.Fatalf("panel error should wrap the original")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store = %d failures offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.ShowError(1, errors.New("fail 1"))
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after one failure = %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.ShowError(2, errors.New("fail 2"))
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after two failures = %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.ShowEmpty(3, "none")
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() || snap.LastError != nil {
		t.Fatalf("after success = %d offline=%v err=%v", snap.ConsecutiveFailures, snap.IsOffline(), snap.LastError)
	}
}

func TestStore_PruneAndMarkRefreshed(t *testing.T) {
	var s Store
	for _, id := range []int{1, 2, 3} {
		s.ShowEmpty(id, "none")
	}
	s.Prune([]int{2})

	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.MarkRefreshed(when)

	snap := s.Snapshot()
	if len(snap.Panels) != 1 {
		t.Fatalf("panels = %v, want only 2", snap.Panels)
	}
	if _, ok := snap.Panel(2); !ok {
		t.Fatalf("panel 2 was pruned")
	}
	if !snap.LastRefresh.Equal(when) {
		t.Fatalf("LastRefresh = %v, want %v", snap.LastRefresh, when)
	}
}

func TestStore_IgnoresPrunedIDs(t *testing.T) {
	var s Store
	s.ShowError(1, errors.New("fail"))
	s.ShowEmpty(2, "none")
	s.Prune([]int{2})

	s.ShowLoading(1, 1)
	s.ShowError(1, errors.New("late failure"))
	s.ShowResults(1, sampleTrips(), nil)

	snap := s.Snapshot()
	if _, ok := snap.Panel(1); ok {
		t.Fatalf("late update recreated pruned panel 1")
	}
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil {
		t.Fatalf("late failure counted: failures=%d err=%v", snap.ConsecutiveFailures, snap.LastError)
	}

	// An id that comes back is accepted again.
	s.Prune([]int{1, 2})
	s.ShowEmpty(1, "none")
	if _, ok := s.Snapshot().Panel(1); !ok {
		t.Fatalf("panel 1 not shown after it was tracked again")
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:    "idle",
		StatusLoading: "loading",
		StatusResults: "results",
		StatusEmpty:   "empty",
		StatusError:   "error",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
