package entur

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/five82/transitboard/internal/prefs"
)

const (
	// DefaultNumTripPatterns is the number of trips requested when a query
	// does not set one.
	DefaultNumTripPatterns = 3
	// DefaultSearchWindowMinutes bounds how far ahead the planner looks.
	DefaultSearchWindowMinutes = 360
)

// TripQuery selects departures between two stop places for one mode.
type TripQuery struct {
	FromID              string
	ToID                string
	Mode                prefs.Mode
	NumTrips            int
	SearchWindowMinutes int
}

// Request is an outbound journey planner call. The payload is sent as-is.
type Request struct {
	Payload []byte
	Headers map[string]string
}

const tripQueryText = `query trips($from: Location!, $to: Location!, $mode: TransportMode,
                    $numTripPatterns: Int!, $searchWindow: Int!)
{
  trip(from: $from, to: $to, numTripPatterns: $numTripPatterns,
       modes: {transportModes: {transportMode: $mode}},
       maximumTransfers: 1, searchWindow: $searchWindow)
  {
    tripPatterns {
      legs {
        mode
        authority { name }
        fromPlace { name }
        toPlace { name }
        fromEstimatedCall {
          expectedDepartureTime
          aimedDepartureTime
          destinationDisplay { frontText }
          quay { publicCode }
        }
        line {
          id
          name
          publicCode
          presentation { colour textColour }
        }
        situations {
          situationNumber
          summary { value language }
          description { value language }
          validityPeriod { startTime endTime }
        }
      }
    }
  }
}`

type placeRef struct {
	Place string `json:"place"`
}

type tripVariables struct {
	From            placeRef `json:"from"`
	To              placeRef `json:"to"`
	Mode            *string  `json:"mode"`
	NumTripPatterns int      `json:"numTripPatterns"`
	SearchWindow    int      `json:"searchWindow"`
}

type graphQLPayload struct {
	Query     string        `json:"query"`
	Variables tripVariables `json:"variables"`
}

// BuildTripQuery renders q as a GraphQL request.
func BuildTripQuery(q TripQuery) (Request, error) {
	from := strings.TrimSpace(q.FromID)
	to := strings.TrimSpace(q.ToID)
	if from == "" || to == "" {
		return Request{}, fmt.Errorf("trip query needs both stop ids")
	}

	vars := tripVariables{
		From:            placeRef{Place: from},
		To:              placeRef{Place: to},
		NumTripPatterns: q.NumTrips,
		SearchWindow:    q.SearchWindowMinutes,
	}
	if q.Mode != "" {
		mode := string(q.Mode)
		vars.Mode = &mode
	}
	if vars.NumTripPatterns <= 0 {
		vars.NumTripPatterns = DefaultNumTripPatterns
	}
	if vars.SearchWindow <= 0 {
		vars.SearchWindow = DefaultSearchWindowMinutes
	}

	payload, err := json.Marshal(graphQLPayload{Query: tripQueryText, Variables: vars})
	if err != nil {
		return Request{}, fmt.Errorf("encode trip query: %w", err)
	}
	return Request{Payload: payload}, nil
}
