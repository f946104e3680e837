package prefs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid departure")

// ErrNotFound reports an unknown departure id.
var ErrNotFound = errors.New("departure not found")

// DefaultNumTrips is used when a departure has no explicit trip count.
const DefaultNumTrips = 3

// Place identifies a stop place by its upstream id and display name.
type Place struct {
	StopID string `json:"stopId"`
	Name   string `json:"name"`
}

// Departure is a saved origin/destination pair for one transport mode.
type Departure struct {
	ID        int   `json:"id"`
	PlaceFrom Place `json:"placeFrom"`
	PlaceTo   Place `json:"placeTo"`
	Mode      Mode  `json:"mode"`
	NumTrips  int   `json:"numTrips,omitempty"`
}

// EffectiveNumTrips returns NumTrips, or DefaultNumTrips when unset.
func (d Departure) EffectiveNumTrips() int {
	if d.NumTrips > 0 {
		return d.NumTrips
	}
	return DefaultNumTrips
}

// Reversed returns a copy with origin and destination swapped.
func (d Departure) Reversed() Departure {
	d.PlaceFrom, d.PlaceTo = d.PlaceTo, d.PlaceFrom
	return d
}

// Title is the heading shown for a departure, e.g. "Bus from Alpha to Beta".
// Anything after the first comma in a stop name (usually the municipality)
// is dropped.
func (d Departure) Title() string {
	from := shortName(d.PlaceFrom.Name)
	to := shortName(d.PlaceTo.Name)
	if from == "" && to == "" {
		return "New departure by " + d.Mode.Name()
	}
	if from == "" {
		from = "..."
	}
	title := capitalize(d.Mode.Name()) + " from " + from
	if to != "" {
		title += " to " + to
	}
	return title
}

// Validate checks the structural shape of a departure.
func (d Departure) Validate() error {
	if d.ID <= 0 {
		return invalid("id must be a positive number, got %d", d.ID)
	}
	if err := d.PlaceFrom.validate("placeFrom"); err != nil {
		return err
	}
	if err := d.PlaceTo.validate("placeTo"); err != nil {
		return err
	}
	if !d.Mode.Valid() {
		return invalid("unknown mode %q", string(d.Mode))
	}
	if d.NumTrips < 0 {
		return invalid("numTrips must be a positive number, got %d", d.NumTrips)
	}
	return nil
}

func (p Place) validate(field string) error {
	if strings.TrimSpace(p.StopID) == "" {
		return invalid("%s.stopId is empty", field)
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("%s.name is empty", field)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func shortName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, ","); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
