// Package app is the composition root of transitboard.
//
// # Overview
//
// Run loads the configuration, opens the log file and the preference file,
// builds every service exactly once and hands a Board to the terminal UI.
// The UI owns the terminal; everything else logs to the file.
//
// # Architecture
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()           TOML settings
//	       ├─────> logging.Open()          JSON log file
//	       ├─────> prefs.NewFileMedium()   saved departures and theme
//	       ├─────> Build()                 wire the services below
//	       ├─────> Services.Start()        first refresh pass runs now
//	       └─────> ui.Run()                blocks until the user quits
//
//	Build():
//	  HTTPTransport ─> Throttled(dispatcher) ─> Retrying(policy)
//	                                                 │
//	  prefs.Store ─> Board.sync() ─> refresh.Coordinator ─> state.Store
//	                       ▲
//	  schedule.Timer ──────┘ (Board.pass every refresh interval)
//
// Each retry attempt queues through the dispatcher on its own, so the
// backoff wait between attempts never holds a dispatcher slot.
//
// # Board
//
// Board is what the UI talks to. Changes to the saved departures go through
// the preference store and are followed by a sync, which makes the
// coordinator's entities and the panel state mirror the stored order. A
// saved, reversed or resized departure is refetched right away; a full pass
// happens when the timer fires or the user forces one.
//
// # Shutdown
//
// Services.Close stops the timer, cancels outstanding requests, rejects
// queued dispatcher work and waits for running fetches.
//
// # Metrics
//
// With metrics_addr set, /metrics is served from a private Prometheus
// registry fed by the dispatcher, transport, retry loop and coordinator.
package app
