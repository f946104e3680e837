package refresh

import (
	"reflect"
	"testing"

	"github.com/five82/transitboard/internal/entur"
)

func TestCollectNotices_DedupesAndAccumulatesTrips(t *testing.T) {
	detour := entur.Situation{ID: "S1", Summary: "Detour"}
	detourAgain := entur.Situation{ID: "S1", Summary: "Detour (updated text)"}
	works := entur.Situation{Summary: "Roadworks", Description: "Lane closed"}
	trips := []entur.Trip{
		{Situations: []entur.Situation{detour, works}},
		{},
		{Situations: []entur.Situation{works, detourAgain, detourAgain}},
	}

	got := CollectNotices(trips)
	want := []Notice{
		{Situation: detour, Trips: []int{0, 2}},
		{Situation: works, Trips: []int{0, 2}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectNotices = %+v, want %+v", got, want)
	}
}

func TestCollectNotices_NoSituations(t *testing.T) {
	if got := CollectNotices([]entur.Trip{{}, {}}); len(got) != 0 {
		t.Fatalf("CollectNotices = %v, want none", got)
	}
}
