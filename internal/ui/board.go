package ui

import (
	"context"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/state"
)

// Board is the application surface the UI drives.
type Board interface {
	Departures() []prefs.Departure
	Snapshot() state.Snapshot
	NextRefresh() time.Time

	// Refresh requests a refresh pass; without force it only runs if due.
	Refresh(force bool)
	// Postpone delays the next refresh pass.
	Postpone(d time.Duration)

	Save(d prefs.Departure) (prefs.Departure, error)
	Remove(id int) error
	MoveFirst(id int) error
	MoveLast(id int) error
	Reverse(id int) error
	ToggleTrips(id int) error

	Suggest(ctx context.Context, text string, mode prefs.Mode) ([]entur.Suggestion, error)
	SaveTheme(name string) error
}
