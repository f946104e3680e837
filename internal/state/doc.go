// Package state holds the render state shared between refresh goroutines
// and the terminal UI.
//
// # Overview
//
// Store implements refresh.Renderer. Fetch goroutines call ShowLoading,
// ShowResults, ShowEmpty and ShowError as departures refresh; the UI reads
// a Snapshot on every tick and draws from it. Neither side waits on the
// other beyond the short critical section of a copy.
//
//	Refresh goroutines:              UI (Bubble Tea):
//	┌──────────────────┐            ┌──────────────────┐
//	│ transport.Do()   │            │ tickMsg          │
//	│      ↓           │            │      ↓           │
//	│ store.ShowX(id)  │───────────→│ store.Snapshot() │
//	│                  │  (mutex)   │      ↓           │
//	│                  │            │ View()           │
//	└──────────────────┘            └──────────────────┘
//
// # Panels
//
// Each departure id maps to a Panel with a Status:
//
//   - StatusLoading: a fetch is in flight. Trips of the previous fetch are
//     kept so the panel does not collapse while loading.
//   - StatusResults: trips and their disruption notices.
//   - StatusEmpty: the planner answered with no trips; Message explains.
//   - StatusError: the fetch failed after all retries; Err holds the cause.
//
// Prune drops panels of departures the user removed.
//
// # Failure tracking
//
// ConsecutiveFailures counts failed fetches since the last successful one,
// across all departures. IsOffline reports two or more in a row, which the
// UI uses to show a single banner instead of an error per panel.
//
// # Defensive Copying
//
// Snapshot deep-copies trips, notices and errors, so the UI may hold on to
// a snapshot while refreshes keep writing.
//
// The zero Store is ready to use.
package state
