package prefs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const departuresKey = "departures"

// Store is the ordered collection of saved departures. Every mutation is a
// read-modify-write of the whole collection.
type Store struct {
	medium Medium
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore returns a store persisting to medium.
func NewStore(medium Medium, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{medium: medium, logger: logger}
}

// All returns every valid stored departure in display order. Records that
// fail validation are dropped and logged; an unreadable collection is
// treated as empty.
func (s *Store) All() []Departure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the departure with the given id.
func (s *Store) Get(id int) (Departure, bool) {
	for _, d := range s.All() {
		if d.ID == id {
			return d, true
		}
	}
	return Departure{}, false
}

// Save stores d. A zero id is assigned max(existing ids)+1. An existing id is
// replaced in place; a new one is appended.
func (s *Store) Save(d Departure) (Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	if d.ID == 0 {
		d.ID = nextID(list)
	}
	if err := d.Validate(); err != nil {
		return Departure{}, fmt.Errorf("save departure: %w", err)
	}

	replaced := false
	for i := range list {
		if list[i].ID == d.ID {
			list[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, d)
	}
	if err := s.persist(list); err != nil {
		return Departure{}, err
	}
	return d, nil
}

// Remove deletes the departure with the given id and returns it.
func (s *Store) Remove(id int) (Departure, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	var removed Departure
	found := false
	kept := list[:0]
	for _, d := range list {
		if d.ID == id {
			removed = d
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if err := s.persist(kept); err != nil {
		return Departure{}, false, err
	}
	return removed, found, nil
}

// MoveFirst moves the departure to the start of the list.
func (s *Store) MoveFirst(id int) (Departure, bool, error) {
	return s.move(id, true)
}

// MoveLast moves the departure to the end of the list.
func (s *Store) MoveLast(id int) (Departure, bool, error) {
	return s.move(id, false)
}

// RemoveAll empties the collection.
func (s *Store) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist([]Departure{})
}

// Reverse swaps origin and destination of a departure and saves it.
func (s *Store) Reverse(id int) (Departure, error) {
	d, ok := s.Get(id)
	if !ok {
		return Departure{}, fmt.Errorf("reverse departure %d: %w", id, ErrNotFound)
	}
	return s.Save(d.Reversed())
}

// ToggleNumTrips flips the number of requested trips between the default and
// twice the default.
func (s *Store) ToggleNumTrips(id int) (Departure, error) {
	d, ok := s.Get(id)
	if !ok {
		return Departure{}, fmt.Errorf("toggle trips for departure %d: %w", id, ErrNotFound)
	}
	if d.EffectiveNumTrips() == DefaultNumTrips {
		d.NumTrips = DefaultNumTrips * 2
	} else {
		d.NumTrips = DefaultNumTrips
	}
	return s.Save(d)
}

func (s *Store) move(id int, first bool) (Departure, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	idx := -1
	for i, d := range list {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Departure{}, false, nil
	}

	moved := list[idx]
	rest := append(list[:idx:idx], list[idx+1:]...)
	if first {
		list = append([]Departure{moved}, rest...)
	} else {
		list = append(rest, moved)
	}
	if err := s.persist(list); err != nil {
		return Departure{}, false, err
	}
	return moved, true, nil
}

func (s *Store) load() []Departure {
	raw, ok, err := s.medium.Get(departuresKey)
	if err != nil {
		s.logger.Error("failed to read departures, starting empty", slog.String("error", err.Error()))
		return []Departure{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Departure{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Error("failed to parse departures, starting empty", slog.String("error", err.Error()))
		return []Departure{}
	}

	list := make([]Departure, 0, len(items))
	for i, item := range items {
		var d Departure
		if err := json.Unmarshal(item, &d); err != nil {
			s.logger.Warn("dropping malformed departure",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := d.Validate(); err != nil {
			s.logger.Warn("dropping invalid departure",
				slog.Int("index", i),
				slog.Int("id", d.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		list = append(list, d)
	}
	return list
}

func (s *Store) persist(list []Departure) error {
	if list == nil {
		list = []Departure{}
	}
	bytes, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal departures: %w", err)
	}
	if err := s.medium.Set(departuresKey, string(bytes)); err != nil {
		return fmt.Errorf("persist departures: %w", err)
	}
	return nil
}

func nextID(list []Departure) int {
	maxID := 0
	for _, d := range list {
		if d.ID > maxID {
			maxID = d.ID
		}
	}
	return maxID + 1
}
