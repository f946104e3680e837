package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/refresh"
)

// Status is the render state of one departure panel.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusResults
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusResults:
		return "results"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Panel is what the UI shows for one departure. Trips and notices of the
// last successful fetch stay in place while a new fetch is loading.
type Panel struct {
	Status    Status
	Trips     []entur.Trip
	Notices   []refresh.Notice
	Message   string
	Err       error
	Height    int
	UpdatedAt time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Panels              map[int]Panel
	LastRefresh         time.Time
	LastError           error
	ConsecutiveFailures int // Number of failed fetches since the last success
}

// Panel returns the panel for a departure id.
func (s Snapshot) Panel(id int) (Panel, bool) {
	p, ok := s.Panels[id]
	return p, ok
}

// IsOffline returns true when several fetches in a row have failed.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. The zero value is
// ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	tracked  map[int]struct{} // ids kept by the last Prune; nil accepts all

	// Now overrides time.Now for tests.
	Now func() time.Time
}

var _ refresh.Renderer = (*Store)(nil)

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) update(id int, fn func(p *Panel)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[id]; s.tracked != nil && !ok {
		return
	}
	if s.snapshot.Panels == nil {
		s.snapshot.Panels = make(map[int]Panel)
	}
	p := s.snapshot.Panels[id]
	fn(&p)
	s.snapshot.Panels[id] = p
}

// ShowLoading marks a panel as loading.
func (s *Store) ShowLoading(id int, height int) {
	s.update(id, func(p *Panel) {
		p.Status = StatusLoading
		if height > p.Height {
			p.Height = height
		}
		if p.Height < 1 {
			p.Height = 1
		}
	})
}

// ShowResults stores fetched trips and resets the failure counter.
func (s *Store) ShowResults(id int, trips []entur.Trip, notices []refresh.Notice) {
	now := s.now()
	s.update(id, func(p *Panel) {
		*p = Panel{
			Status:    StatusResults,
			Trips:     cloneTrips(trips),
			Notices:   cloneNotices(notices),
			Height:    len(trips) + len(notices),
			UpdatedAt: now,
		}
		s.snapshot.ConsecutiveFailures = 0
		s.snapshot.LastError = nil
	})
}

// ShowEmpty stores an explanatory message for a departure without trips.
func (s *Store) ShowEmpty(id int, message string) {
	now := s.now()
	s.update(id, func(p *Panel) {
		*p = Panel{Status: StatusEmpty, Message: message, Height: 1, UpdatedAt: now}
		s.snapshot.ConsecutiveFailures = 0
		s.snapshot.LastError = nil
	})
}

// ShowError records a failed fetch. Previous trips are dropped so stale
// departure times are never shown as current.
func (s *Store) ShowError(id int, err error) {
	now := s.now()
	s.update(id, func(p *Panel) {
		*p = Panel{Status: StatusError, Err: err, Height: 2, UpdatedAt: now}
		s.snapshot.ConsecutiveFailures++
		s.snapshot.LastError = err
	})
}

// MarkRefreshed records the start of a refresh pass.
func (s *Store) MarkRefreshed(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastRefresh = t
}

// Prune drops panels whose id is not in keep. Until the next Prune, updates
// for any other id are ignored, so a late fetch for a removed departure
// neither brings its panel back nor counts as a failure.
func (s *Store) Prune(keep []int) {
	wanted := make(map[int]struct{}, len(keep))
	for _, id := range keep {
		wanted[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = wanted
	for id := range s.snapshot.Panels {
		if _, ok := wanted[id]; !ok {
			delete(s.snapshot.Panels, id)
		}
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Panels = make(map[int]Panel, len(s.snapshot.Panels))
	for id, p := range s.snapshot.Panels {
		p.Trips = cloneTrips(p.Trips)
		p.Notices = cloneNotices(p.Notices)
		if p.Err != nil {
			p.Err = fmt.Errorf("%w", p.Err)
		}
		snap.Panels[id] = p
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneTrips(trips []entur.Trip) []entur.Trip {
	if len(trips) == 0 {
		return nil
	}
	dup := make([]entur.Trip, len(trips))
	copy(dup, trips)
	for i := range dup {
		if len(dup[i].Situations) > 0 {
			dup[i].Situations = append([]entur.Situation(nil), dup[i].Situations...)
		}
	}
	return dup
}

func cloneNotices(notices []refresh.Notice) []refresh.Notice {
	if len(notices) == 0 {
		return nil
	}
	dup := make([]refresh.Notice, len(notices))
	copy(dup, notices)
	for i := range dup {
		dup[i].Trips = append([]int(nil), dup[i].Trips...)
	}
	return dup
}
