// Package ui provides the terminal departure board for transitboard.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model owns all view state and talks to
// the rest of the application only through the Board interface, which the
// app package implements. Board reads (Departures, Snapshot, NextRefresh)
// are cheap and happen on every UI tick; mutations run as tea.Cmds so the
// update loop never blocks on the journey planner or the prefs file.
//
// # Package Structure
//
//   - app.go: Model, Update loop, messages and commands, Run
//   - board.go: the Board interface
//   - panels.go: departure panels and trip rows
//   - form.go: the add-departure modal with stop autocompletion
//   - menu.go: the per-departure action menu
//   - logs.go: the log view backed by internal/logtail
//   - header.go, help.go: status bar, command bar and help overlay
//   - theme.go, keys.go, layout.go, strings.go: styling, bindings, constants
//
// # Views
//
// Two views are available, toggled with l:
//
//   - Board: one bordered panel per saved departure, in saved order
//   - Logs: the tail of the JSON log file, coloured by level
//
// Modals (the add form and the action menu) and the help overlay are drawn
// on top of the board and receive keys first.
//
// # Refresh Behaviour
//
// The UI never schedules network work itself. r forces a refresh pass,
// regaining terminal focus asks for one only if it is due, and opening a
// panel's details postpones the next pass by DetailPostpone so the panel
// does not change while it is being read.
//
// # Themes
//
// Nightfox, Kanagawa and Slate are built in. T cycles them and the choice is
// saved through Board.SaveTheme.
package ui
