package entur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/five82/transitboard/internal/prefs"
)

const (
	// DefaultGeocoderURL is the public autocomplete endpoint.
	DefaultGeocoderURL = "https://api.entur.io/geocoder/v1/autocomplete"

	minSuggestText  = 2
	suggestionLimit = 20
)

// DefaultCountyIDs limits place search to eastern Norway.
var DefaultCountyIDs = []string{"03", "31", "32", "33", "34", "39", "40"}

// ErrSuperseded is returned to a lookup that a newer lookup replaced.
var ErrSuperseded = errors.New("lookup superseded by a newer one")

// Suggestion is a stop place matching the typed text.
type Suggestion struct {
	ID    string
	Label string
}

// Suggester finds stop places for free text.
type Suggester interface {
	Suggest(ctx context.Context, text string, mode prefs.Mode) ([]Suggestion, error)
}

// Geocoder queries the Entur autocomplete API.
type Geocoder struct {
	endpoint   *url.URL
	http       *http.Client
	clientName string
	countyIDs  []string
}

var _ Suggester = (*Geocoder)(nil)

// NewGeocoder builds a Geocoder. Blank values fall back to the public
// endpoint, the default client name and DefaultCountyIDs.
func NewGeocoder(endpoint, clientName string, countyIDs []string, client *http.Client) (*Geocoder, error) {
	u, err := parseEndpoint(endpoint, DefaultGeocoderURL)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultClientName
	}
	ids := make([]string, 0, len(countyIDs))
	for _, id := range countyIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = append(ids, DefaultCountyIDs...)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Geocoder{endpoint: u, http: client, clientName: name, countyIDs: ids}, nil
}

type geocoderResponse struct {
	Features []struct {
		Properties struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Suggest returns stop places of mode matching text. Texts shorter than two
// characters yield no suggestions and no request.
func (g *Geocoder) Suggest(ctx context.Context, text string, mode prefs.Mode) ([]Suggestion, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minSuggestText {
		return nil, nil
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	values := url.Values{}
	values.Set("boundary.county_ids", strings.Join(g.countyIDs, ","))
	values.Set("size", strconv.Itoa(suggestionLimit))
	values.Set("layers", "venue")
	values.Set("categories", strings.Join(mode.GeocoderCategories(), ","))
	values.Set("text", text)
	u := *g.endpoint
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ET-Client-Name", g.clientName)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	var payload geocoderResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Features == nil {
		return nil, fmt.Errorf("decode response: no features in geocoder answer")
	}

	out := make([]Suggestion, 0, len(payload.Features))
	for _, f := range payload.Features {
		if f.Properties.ID == "" || f.Properties.Label == "" {
			continue
		}
		out = append(out, Suggestion{ID: f.Properties.ID, Label: f.Properties.Label})
	}
	return out, nil
}

// Autocompleter keeps at most one suggestion lookup alive. Starting a new
// lookup cancels the previous one.
type Autocompleter struct {
	source Suggester

	mu     sync.Mutex
	mode   prefs.Mode
	seq    uint64
	cancel context.CancelFunc
}

// NewAutocompleter returns an Autocompleter searching stops of mode.
func NewAutocompleter(source Suggester, mode prefs.Mode) *Autocompleter {
	return &Autocompleter{source: source, mode: mode}
}

// SetMode changes the mode used by later lookups.
func (a *Autocompleter) SetMode(mode prefs.Mode) {
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()
}

// Lookup fetches suggestions for text. If another Lookup starts before this
// one finishes, this one returns ErrSuperseded.
func (a *Autocompleter) Lookup(ctx context.Context, text string) ([]Suggestion, error) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.seq++
	id := a.seq
	mode := a.mode
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minSuggestText {
		a.mu.Unlock()
		return nil, nil
	}
	lookupCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.seq == id {
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel()
	}()

	suggestions, err := a.source.Suggest(lookupCtx, text, mode)

	a.mu.Lock()
	superseded := a.seq != id
	a.mu.Unlock()
	if superseded {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Cancel aborts the running lookup, if any.
func (a *Autocompleter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}
