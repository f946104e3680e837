package entur

import (
	"encoding/json"
	"testing"
	"time"
)

const sampleTripJSON = `{
  "data": {
    "trip": {
      "tripPatterns": [
        {
          "legs": [
            {
              "mode": "bus",
              "authority": {"name": "Ruter"},
              "fromEstimatedCall": {
                "expectedDepartureTime": "2024-03-01T08:05:00+01:00",
                "aimedDepartureTime": "2024-03-01T08:02:00+01:00",
                "destinationDisplay": {"frontText": "Storo"},
                "quay": {"publicCode": "B"}
              },
              "line": {"id": "RUT:Line:31", "name": "Tonsenhagen", "publicCode": "31",
                       "presentation": {"colour": "E60000", "textColour": "FFFFFF"}},
              "situations": [
                {
                  "situationNumber": "RUT:SituationNumber:1",
                  "summary": [{"value": "Detour", "language": "en"}, {"value": "Omkjøring", "language": "no"}],
                  "description": [{"value": "Roadworks", "language": "en"}],
                  "validityPeriod": {"startTime": "2024-03-01T00:00:00+01:00", "endTime": null}
                }
              ]
            }
          ]
        },
        {"legs": []},
        {
          "legs": [
            {
              "mode": "bus",
              "fromEstimatedCall": {
                "expectedDepartureTime": "2024-03-01T08:10:00+01:00",
                "aimedDepartureTime": "2024-03-01T08:12:00+01:00",
                "destinationDisplay": {"frontText": "Grorud"}
              },
              "line": {"id": "RUT:Line:25", "publicCode": "25"},
              "situations": [
                {"situationNumber": "X", "summary": [], "description": []}
              ]
            }
          ]
        }
      ]
    }
  }
}`

func TestTripResponse_Trips(t *testing.T) {
	var resp TripResponse
	if err := json.Unmarshal([]byte(sampleTripJSON), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	trips := resp.Trips("")
	if len(trips) != 2 {
		t.Fatalf("len(trips) = %d, want 2", len(trips))
	}

	first := trips[0]
	if first.PublicCode != "31" || first.FrontText != "Storo" || first.Platform != "B" || first.Authority != "Ruter" {
		t.Fatalf("first trip = %+v", first)
	}
	if first.Colour != "E60000" || first.TextColour != "FFFFFF" {
		t.Fatalf("colours = %q/%q", first.Colour, first.TextColour)
	}
	if first.Delay() != 3*time.Minute {
		t.Fatalf("Delay = %v, want 3m", first.Delay())
	}
	if len(first.Situations) != 1 {
		t.Fatalf("situations = %+v", first.Situations)
	}
	s := first.Situations[0]
	if s.ID != "RUT:SituationNumber:1" || s.Summary != "Omkjøring" || s.Description != "Roadworks" {
		t.Fatalf("situation = %+v, want norwegian summary and english fallback description", s)
	}
	if s.ValidFrom.IsZero() || !s.ValidTo.IsZero() {
		t.Fatalf("validity = %v - %v", s.ValidFrom, s.ValidTo)
	}

	second := trips[1]
	if second.Delay() != 0 {
		t.Fatalf("early departure Delay = %v, want 0", second.Delay())
	}
	if second.Platform != "" || len(second.Situations) != 0 {
		t.Fatalf("second trip = %+v", second)
	}
}

func TestTripResponse_TripsPrefersRequestedLanguage(t *testing.T) {
	var resp TripResponse
	if err := json.Unmarshal([]byte(sampleTripJSON), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	trips := resp.Trips("en")
	if got := trips[0].Situations[0].Summary; got != "Detour" {
		t.Fatalf("Summary = %q, want Detour", got)
	}
}

func TestTripResponse_TripsHandlesMissingData(t *testing.T) {
	var nilResp *TripResponse
	if trips := nilResp.Trips("no"); trips != nil {
		t.Fatalf("nil response trips = %v", trips)
	}
	empty := &TripResponse{Data: TripData{Trip: &TripResult{}}}
	if trips := empty.Trips("no"); len(trips) != 0 {
		t.Fatalf("empty response trips = %v", trips)
	}
}
