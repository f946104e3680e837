package prefs

// Mode is a transport mode supported by the journey planner.
type Mode string

const (
	ModeBus   Mode = "bus"
	ModeTram  Mode = "tram"
	ModeMetro Mode = "metro"
	ModeRail  Mode = "rail"
)

type modeInfo struct {
	name       string
	place      string
	symbol     string
	categories []string
}

var modes = map[Mode]modeInfo{
	ModeBus:   {name: "bus", place: "stop", symbol: "🚌", categories: []string{"onstreetBus", "busStation", "coachStation"}},
	ModeTram:  {name: "tram", place: "stop", symbol: "🚋", categories: []string{"onstreetTram", "tramStation"}},
	ModeMetro: {name: "metro", place: "station", symbol: "🚇", categories: []string{"metroStation"}},
	ModeRail:  {name: "train", place: "station", symbol: "🚆", categories: []string{"railStation"}},
}

var modeOrder = []Mode{ModeBus, ModeTram, ModeMetro, ModeRail}

// Modes returns the supported modes in display order.
func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, ok := modes[m]
	return ok
}

// Name returns the human name of the mode ("bus", "train", ...).
func (m Mode) Name() string {
	if info, ok := modes[m]; ok {
		return info.name
	}
	return string(m)
}

// Place returns the noun used for a boarding point of this mode.
func (m Mode) Place() string {
	if info, ok := modes[m]; ok {
		return info.place
	}
	return "stop"
}

// Symbol returns an emoji for the mode.
func (m Mode) Symbol() string {
	return modes[m].symbol
}

// GeocoderCategories lists the stop categories searched when autocompleting
// places for this mode.
func (m Mode) GeocoderCategories() []string {
	cats := modes[m].categories
	out := make([]string, len(cats))
	copy(out, cats)
	return out
}

// Next returns the mode after m in display order, wrapping around.
func (m Mode) Next() Mode {
	for i, candidate := range modeOrder {
		if candidate == m {
			return modeOrder[(i+1)%len(modeOrder)]
		}
	}
	return modeOrder[0]
}
