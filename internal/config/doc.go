// Package config loads the transitboard TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/transitboard/config.toml
//  3. If the file doesn't exist, use the built-in defaults
//  4. If the file exists but fields are blank or out of range, use defaults
//
// # TOML Format
//
// Every field is optional:
//
//	journey_planner_url = "https://api.entur.io/journey-planner/v3/graphql"
//	geocoder_url = "https://api.entur.io/geocoder/v1/autocomplete"
//	client_name = "private-transitboard"
//	refresh_interval_seconds = 60
//	max_concurrency = 1
//	dispatch_delay_ms = 50
//	retry_attempts = 3
//	retry_backoff_ms = 5000
//	retry_backoff_step_ms = 5000
//	request_timeout_seconds = 10
//	requests_per_minute = 0        # 0 disables request spacing
//	search_window_minutes = 360
//	geocoder_county_ids = ["03", "31", "32", "33", "34", "39", "40"]
//	language = "no"
//	prefs_path = "~/.config/transitboard/prefs.toml"
//	log_path = "~/.local/state/transitboard/transitboard.log"
//	log_level = "info"
//	metrics_addr = ""              # e.g. "127.0.0.1:9464" to serve /metrics
//
// ClientName is sent as the ET-Client-Name header; Entur asks clients to
// identify themselves as "<company>-<application>".
//
// # Path Expansion
//
// Tilde paths are expanded to the home directory and relative paths are made
// absolute, both for the config file location and for prefs_path and
// log_path.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, and TOML parse errors ("parse config: ..."). A missing
// config file is not an error.
package config
