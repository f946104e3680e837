// Package refresh fetches departures for every saved departure and hands
// the outcome to a Renderer, making sure no departure has more than one
// fetch in flight.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/prefs"
)

// Outcomes reported to the observer.
const (
	OutcomeResults = "results"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Renderer receives refresh results. Calls must not block for long; they
// are made from fetch goroutines.
type Renderer interface {
	ShowLoading(id int, height int)
	ShowResults(id int, trips []entur.Trip, notices []Notice)
	ShowEmpty(id int, message string)
	ShowError(id int, err error)
}

// QueryBuilder turns a trip query into a transport request.
type QueryBuilder func(entur.TripQuery) (entur.Request, error)

// Entity is a departure tracked by the coordinator.
type Entity struct {
	ID int

	mu        sync.Mutex
	departure prefs.Departure

	loading atomic.Bool
	removed atomic.Bool
	height  atomic.Int32
}

// Departure returns the departure the entity currently refreshes.
func (e *Entity) Departure() prefs.Departure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.departure
}

// Loading reports whether a fetch is in flight.
func (e *Entity) Loading() bool {
	return e.loading.Load()
}

func (e *Entity) setDeparture(d prefs.Departure) {
	e.mu.Lock()
	e.departure = d
	e.mu.Unlock()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLanguage sets the preferred language for disruption texts.
func WithLanguage(lang string) Option {
	return func(c *Coordinator) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithSearchWindow sets how many minutes ahead trips are searched.
func WithSearchWindow(minutes int) Option {
	return func(c *Coordinator) {
		if minutes > 0 {
			c.searchWindow = minutes
		}
	}
}

// WithObserver is called after every fetch with its outcome and duration.
func WithObserver(fn func(outcome string, elapsed time.Duration)) Option {
	return func(c *Coordinator) {
		c.observe = fn
	}
}

// Coordinator refreshes tracked entities through a transport.
type Coordinator struct {
	transport    entur.Transport
	build        QueryBuilder
	renderer     Renderer
	logger       *slog.Logger
	language     string
	searchWindow int
	observe      func(outcome string, elapsed time.Duration)

	mu       sync.Mutex
	entities []*Entity

	wg sync.WaitGroup
}

// NewCoordinator returns a Coordinator with no tracked entities. A nil
// build uses entur.BuildTripQuery.
func NewCoordinator(transport entur.Transport, build QueryBuilder, renderer Renderer, logger *slog.Logger, opts ...Option) *Coordinator {
	if build == nil {
		build = entur.BuildTripQuery
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Coordinator{
		transport:    transport,
		build:        build,
		renderer:     renderer,
		logger:       logger,
		language:     entur.DefaultLanguage,
		searchWindow: entur.DefaultSearchWindowMinutes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync makes the tracked entities mirror departures in order. Entities of
// departures that are still present are kept, including their loading
// state. Fetches still running for dropped entities are not rendered.
func (c *Coordinator) Sync(departures []prefs.Departure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := make(map[int]*Entity, len(c.entities))
	for _, e := range c.entities {
		existing[e.ID] = e
	}
	next := make([]*Entity, 0, len(departures))
	for _, d := range departures {
		e, ok := existing[d.ID]
		if !ok {
			e = &Entity{ID: d.ID}
		}
		e.setDeparture(d)
		next = append(next, e)
		delete(existing, d.ID)
	}
	for _, e := range existing {
		e.removed.Store(true)
	}
	c.entities = next
}

// Entities returns the tracked entities in display order.
func (c *Coordinator) Entities() []*Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// Entity returns the tracked entity for a departure id.
func (c *Coordinator) Entity(id int) (*Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entities {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Refresh starts a fetch for e unless one is already in flight. It reports
// whether a fetch was started. A fetch whose departure changes route or trip
// count while it runs is discarded and started again for the new query.
func (c *Coordinator) Refresh(ctx context.Context, e *Entity) bool {
	if e == nil || e.removed.Load() {
		return false
	}
	if !e.loading.CompareAndSwap(false, true) {
		c.logger.Debug("refresh skipped, already loading", "departure", e.ID)
		return false
	}

	height := int(e.height.Load())
	if height < 1 {
		height = 1
	}
	c.renderer.ShowLoading(e.ID, height)

	d := e.Departure()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		superseded := c.run(ctx, e, d)
		e.loading.Store(false)
		if superseded && ctx.Err() == nil {
			c.Refresh(ctx, e)
		}
	}()
	return true
}

func (c *Coordinator) run(ctx context.Context, e *Entity, d prefs.Departure) (superseded bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh panicked", "departure", e.ID, "panic", fmt.Sprint(r))
		}
	}()
	return c.fetch(ctx, e, d)
}

// RefreshAll refreshes every tracked entity and returns how many fetches
// were started.
func (c *Coordinator) RefreshAll(ctx context.Context) int {
	started := 0
	for _, e := range c.Entities() {
		if c.Refresh(ctx, e) {
			started++
		}
	}
	return started
}

// Wait blocks until all started fetches have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// fetch loads trips for d and renders them. It renders nothing and reports
// true when e no longer asks for d by the time the answer arrives.
func (c *Coordinator) fetch(ctx context.Context, e *Entity, d prefs.Departure) bool {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		if c.observe != nil {
			c.observe(outcome, time.Since(start))
		}
	}()

	req, err := c.build(entur.TripQuery{
		FromID:              d.PlaceFrom.StopID,
		ToID:                d.PlaceTo.StopID,
		Mode:                d.Mode,
		NumTrips:            d.EffectiveNumTrips(),
		SearchWindowMinutes: c.searchWindow,
	})
	if err != nil {
		c.fail(e, fmt.Errorf("build request: %w", err))
		return false
	}

	resp, err := c.transport.Do(ctx, req)
	if e.removed.Load() {
		outcome = OutcomeDropped
		c.logger.Debug("refresh dropped, departure removed", "departure", e.ID)
		return false
	}
	if !sameQuery(d, e.Departure()) {
		outcome = OutcomeDropped
		c.logger.Debug("refresh dropped, departure changed", "departure", e.ID)
		return true
	}
	if err != nil {
		c.fail(e, err)
		return false
	}

	trips := resp.Trips(c.language)
	if len(trips) == 0 {
		outcome = OutcomeEmpty
		e.height.Store(1)
		c.renderer.ShowEmpty(e.ID, EmptyMessage(d))
		return false
	}

	outcome = OutcomeResults
	notices := CollectNotices(trips)
	e.height.Store(int32(len(trips) + len(notices)))
	c.renderer.ShowResults(e.ID, trips, notices)
	c.logger.Debug("departure refreshed",
		"departure", e.ID,
		"trips", len(trips),
		"notices", len(notices))
	return false
}

// sameQuery reports whether a and b ask the planner the same question.
func sameQuery(a, b prefs.Departure) bool {
	return a.PlaceFrom.StopID == b.PlaceFrom.StopID &&
		a.PlaceTo.StopID == b.PlaceTo.StopID &&
		a.Mode == b.Mode &&
		a.EffectiveNumTrips() == b.EffectiveNumTrips()
}

func (c *Coordinator) fail(e *Entity, err error) {
	c.logger.Warn("departure refresh failed", "departure", e.ID, "error", err)
	e.height.Store(2)
	c.renderer.ShowError(e.ID, err)
}

// EmptyMessage describes a departure that has no upcoming trips.
func EmptyMessage(d prefs.Departure) string {
	return fmt.Sprintf("No departures by %s from %s to %s", d.Mode.Name(), d.PlaceFrom.Name, d.PlaceTo.Name)
}
