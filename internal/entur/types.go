package entur

import (
	"strings"
	"time"
)

// DefaultLanguage is the preferred language for situation texts.
const DefaultLanguage = "no"

// TripResponse mirrors the journey planner trip payload.
type TripResponse struct {
	Data   TripData       `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// TripData holds the query result. Trip is nil when the planner rejected
// the query.
type TripData struct {
	Trip *TripResult `json:"trip"`
}

// TripResult is the trip field of the response.
type TripResult struct {
	TripPatterns []TripPattern `json:"tripPatterns"`
}

// TripPattern is one suggested journey.
type TripPattern struct {
	Legs []Leg `json:"legs"`
}

// Leg is one ride of a trip pattern.
type Leg struct {
	Mode              string         `json:"mode"`
	Authority         *Named         `json:"authority"`
	FromPlace         *Named         `json:"fromPlace"`
	ToPlace           *Named         `json:"toPlace"`
	FromEstimatedCall EstimatedCall  `json:"fromEstimatedCall"`
	Line              *Line          `json:"line"`
	Situations        []RawSituation `json:"situations"`
}

// Named is any object the planner only describes by name.
type Named struct {
	Name string `json:"name"`
}

// EstimatedCall is a real-time call at the boarding quay.
type EstimatedCall struct {
	ExpectedDepartureTime time.Time           `json:"expectedDepartureTime"`
	AimedDepartureTime    time.Time           `json:"aimedDepartureTime"`
	DestinationDisplay    *DestinationDisplay `json:"destinationDisplay"`
	Quay                  *Quay               `json:"quay"`
}

// DestinationDisplay is the sign text of the vehicle.
type DestinationDisplay struct {
	FrontText string `json:"frontText"`
}

// Quay is the boarding position.
type Quay struct {
	PublicCode string `json:"publicCode"`
}

// Line identifies the route.
type Line struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	PublicCode   string            `json:"publicCode"`
	Presentation *LinePresentation `json:"presentation"`
}

// LinePresentation carries hex colours without a leading '#'.
type LinePresentation struct {
	Colour     string `json:"colour"`
	TextColour string `json:"textColour"`
}

// RawSituation is a service disruption as returned by the planner.
type RawSituation struct {
	SituationNumber string           `json:"situationNumber"`
	Summary         []TranslatedText `json:"summary"`
	Description     []TranslatedText `json:"description"`
	ValidityPeriod  *ValidityPeriod  `json:"validityPeriod"`
}

// TranslatedText is one language variant of a text.
type TranslatedText struct {
	Value    string `json:"value"`
	Language string `json:"language"`
}

// ValidityPeriod bounds when a situation applies.
type ValidityPeriod struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// GraphQLError is an error entry of a GraphQL response.
type GraphQLError struct {
	Message string `json:"message"`
}

// Trip is a departure ready for display.
type Trip struct {
	ExpectedDeparture time.Time
	AimedDeparture    time.Time
	LineID            string
	LineName          string
	PublicCode        string
	FrontText         string
	Authority         string
	Colour            string
	TextColour        string
	Platform          string
	Mode              string
	Situations        []Situation
}

// Delay is how late the trip is expected to leave. Early departures count
// as on time.
func (t Trip) Delay() time.Duration {
	if t.AimedDeparture.IsZero() || t.ExpectedDeparture.IsZero() {
		return 0
	}
	d := t.ExpectedDeparture.Sub(t.AimedDeparture)
	if d < 0 {
		return 0
	}
	return d
}

// Situation is a disruption notice with texts in the chosen language.
type Situation struct {
	ID          string
	Summary     string
	Description string
	ValidFrom   time.Time
	ValidTo     time.Time
}

// Trips converts the response into display trips, reading the first leg of
// every pattern. Situation texts prefer lang and fall back to the first
// translation.
func (r *TripResponse) Trips(lang string) []Trip {
	if r == nil || r.Data.Trip == nil {
		return nil
	}
	if strings.TrimSpace(lang) == "" {
		lang = DefaultLanguage
	}

	trips := make([]Trip, 0, len(r.Data.Trip.TripPatterns))
	for _, pattern := range r.Data.Trip.TripPatterns {
		if len(pattern.Legs) == 0 {
			continue
		}
		leg := pattern.Legs[0]
		trip := Trip{
			ExpectedDeparture: leg.FromEstimatedCall.ExpectedDepartureTime,
			AimedDeparture:    leg.FromEstimatedCall.AimedDepartureTime,
			Mode:              leg.Mode,
		}
		if leg.Authority != nil {
			trip.Authority = leg.Authority.Name
		}
		if dd := leg.FromEstimatedCall.DestinationDisplay; dd != nil {
			trip.FrontText = dd.FrontText
		}
		if q := leg.FromEstimatedCall.Quay; q != nil {
			trip.Platform = q.PublicCode
		}
		if line := leg.Line; line != nil {
			trip.LineID = line.ID
			trip.LineName = line.Name
			trip.PublicCode = line.PublicCode
			if p := line.Presentation; p != nil {
				trip.Colour = p.Colour
				trip.TextColour = p.TextColour
			}
		}
		for _, l := range pattern.Legs {
			for _, raw := range l.Situations {
				if s, ok := raw.localize(lang); ok {
					trip.Situations = append(trip.Situations, s)
				}
			}
		}
		trips = append(trips, trip)
	}
	return trips
}

func (s RawSituation) localize(lang string) (Situation, bool) {
	out := Situation{
		ID:          strings.TrimSpace(s.SituationNumber),
		Summary:     pickLanguage(s.Summary, lang),
		Description: pickLanguage(s.Description, lang),
	}
	if out.Summary == "" && out.Description == "" {
		return Situation{}, false
	}
	if s.ValidityPeriod != nil {
		out.ValidFrom = s.ValidityPeriod.StartTime
		out.ValidTo = s.ValidityPeriod.EndTime
	}
	return out, true
}

func pickLanguage(texts []TranslatedText, lang string) string {
	for _, t := range texts {
		if strings.EqualFold(t.Language, lang) && strings.TrimSpace(t.Value) != "" {
			return strings.TrimSpace(t.Value)
		}
	}
	for _, t := range texts {
		if v := strings.TrimSpace(t.Value); v != "" {
			return v
		}
	}
	return ""
}
