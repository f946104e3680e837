package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/refresh"
	"github.com/five82/transitboard/internal/schedule"
	"github.com/five82/transitboard/internal/state"
)

// Board ties the saved departures to the refresh machinery. The refresh
// timer calls pass; the UI calls everything else.
type Board struct {
	ctx    context.Context
	prefs  *prefs.Store
	medium prefs.Medium
	panels *state.Store
	coord  *refresh.Coordinator
	search *entur.Autocompleter
	logger *slog.Logger
	onPass func(time.Time)

	timer *schedule.Timer

	mu         sync.RWMutex
	departures []prefs.Departure
}

// Departures returns the saved departures in display order as of the last
// sync.
func (b *Board) Departures() []prefs.Departure {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]prefs.Departure, len(b.departures))
	copy(out, b.departures)
	return out
}

// Snapshot returns the current panel state.
func (b *Board) Snapshot() state.Snapshot {
	return b.panels.Snapshot()
}

// NextRefresh returns when the timer fires next.
func (b *Board) NextRefresh() time.Time {
	return b.timer.Next()
}

// Refresh asks the timer for a refresh pass: immediately when force is set,
// otherwise only if one is due.
func (b *Board) Refresh(force bool) {
	b.timer.Check(force)
}

// Postpone pushes the next refresh back by d, capped at one interval from
// now.
func (b *Board) Postpone(d time.Duration) {
	b.timer.Adjust(d)
}

// Save stores d and fetches its departures right away.
func (b *Board) Save(d prefs.Departure) (prefs.Departure, error) {
	saved, err := b.prefs.Save(d)
	if err != nil {
		return prefs.Departure{}, err
	}
	b.sync()
	b.refreshOne(saved.ID)
	b.logger.Info("departure saved", "departure", saved.ID, "title", saved.Title())
	return saved, nil
}

// Remove deletes a departure and its panel.
func (b *Board) Remove(id int) error {
	removed, ok, err := b.prefs.Remove(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("remove departure %d: %w", id, prefs.ErrNotFound)
	}
	b.sync()
	b.logger.Info("departure removed", "departure", id, "title", removed.Title())
	return nil
}

// MoveFirst moves a departure to the top of the board.
func (b *Board) MoveFirst(id int) error {
	return b.move(id, b.prefs.MoveFirst)
}

// MoveLast moves a departure to the bottom of the board.
func (b *Board) MoveLast(id int) error {
	return b.move(id, b.prefs.MoveLast)
}

func (b *Board) move(id int, fn func(int) (prefs.Departure, bool, error)) error {
	_, ok, err := fn(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("move departure %d: %w", id, prefs.ErrNotFound)
	}
	b.sync()
	return nil
}

// Reverse swaps origin and destination and refetches.
func (b *Board) Reverse(id int) error {
	if _, err := b.prefs.Reverse(id); err != nil {
		return err
	}
	b.sync()
	b.refreshOne(id)
	return nil
}

// ToggleTrips switches between showing 3 and 6 departures and refetches.
func (b *Board) ToggleTrips(id int) error {
	if _, err := b.prefs.ToggleNumTrips(id); err != nil {
		return err
	}
	b.sync()
	b.refreshOne(id)
	return nil
}

// Suggest looks up stops for the add-departure form. A newer call
// supersedes an older one still running.
func (b *Board) Suggest(ctx context.Context, text string, mode prefs.Mode) ([]entur.Suggestion, error) {
	b.search.SetMode(mode)
	return b.search.Lookup(ctx, text)
}

// SaveTheme persists the UI theme.
func (b *Board) SaveTheme(name string) error {
	return prefs.SaveTheme(b.medium, name)
}

// Theme returns the saved UI theme.
func (b *Board) Theme() string {
	return prefs.LoadTheme(b.medium)
}

// pass is the timer callback: reload departures and refresh all of them.
func (b *Board) pass(now time.Time) {
	deps := b.sync()
	b.panels.MarkRefreshed(now)
	started := b.coord.RefreshAll(b.ctx)
	b.logger.Debug("refresh pass", "departures", len(deps), "started", started)
	if b.onPass != nil {
		b.onPass(now)
	}
}

func (b *Board) sync() []prefs.Departure {
	deps := b.prefs.All()
	b.coord.Sync(deps)

	ids := make([]int, len(deps))
	for i, d := range deps {
		ids[i] = d.ID
	}
	b.panels.Prune(ids)

	b.mu.Lock()
	b.departures = deps
	b.mu.Unlock()
	return deps
}

func (b *Board) refreshOne(id int) {
	if e, ok := b.coord.Entity(id); ok {
		b.coord.Refresh(b.ctx, e)
	}
}
