// Package entur talks to the Entur JourneyPlanner v3 and Geocoder APIs.
//
// # Trip queries
//
// BuildTripQuery turns a TripQuery into an opaque Request holding the
// GraphQL payload. A Transport sends a Request and returns the decoded
// TripResponse; TripResponse.Trips flattens it into display trips using
// the first leg of every trip pattern.
//
// # Transports
//
// HTTPTransport performs exactly one POST. It sets the ET-Client-Name
// header Entur requires and a fresh X-Correlation-Id per request, and can
// space requests with a token bucket. Non-2xx answers become *StatusError
// and may be retried; request construction, decoding and GraphQL query
// errors are marked permanent.
//
// Two decorators compose around it:
//
//	transport := entur.Retrying(
//		entur.Throttled(httpTransport, dispatcher),
//		retry.DefaultPolicy(),
//		logger,
//	)
//
// Throttled queues every call on a dispatch.Dispatcher. Retrying runs the
// retry loop outside of it, so a call waiting out its backoff does not hold
// a dispatcher slot and each attempt queues again at the back.
//
// # Place search
//
// Geocoder.Suggest calls the autocomplete endpoint restricted to venues of
// the categories for a transport mode. Autocompleter wraps a Suggester so
// that only the newest lookup survives; older ones are cancelled and report
// ErrSuperseded.
package entur
