// Package logtail reads the tail of the transitboard log file and turns its
// JSON records into display lines for the log view.
//
// # Reading Log Files
//
// Read returns the last maxLines of a file using a ring buffer, so memory
// stays O(maxLines) however large the file grows:
//
//	lines, err := logtail.Read(cfg.LogPath, 400)
//	if err != nil {
//		return err
//	}
//	for _, e := range logtail.FormatLines(lines) {
//		fmt.Println(e)
//	}
//
// A missing file reads as no lines. Other errors are returned wrapped.
//
// # Formatting
//
// The application logs with slog's JSON handler. Parse decodes one record
// into an Entry with its time, level, message and the remaining attributes
// sorted by key. Entry.String renders it compactly:
//
//	08:05:09 WARN  departure refresh failed departure=3 error="status 503"
//
// Lines that are not JSON (a panic trace, for example) are passed through
// unchanged. Styling by level is left to the UI.
package logtail
