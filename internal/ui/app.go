package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewBoard View = iota
	ViewLogs
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Board     Board
	ThemeName string
	LogPath   string
	Tick      time.Duration
	Interval  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	board    Board
	logPath  string
	tick     time.Duration
	interval time.Duration

	// UI state
	theme  Theme
	keys   keyMap
	view   View
	width  int
	height int
	ready  bool

	// Board state
	departures []prefs.Departure
	snapshot   state.Snapshot
	next       time.Time
	now        time.Time
	selected   int
	expanded   map[int]bool
	spinner    spinner.Model

	// Overlays
	showHelp bool
	modal    Modal

	// Command bar message
	flash      string
	flashErr   bool
	flashUntil time.Time

	// Log state
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		ctx:      ctx,
		board:    opts.Board,
		logPath:  opts.LogPath,
		tick:     tick,
		interval: opts.Interval,
		theme:    GetTheme(themeName),
		keys:     DefaultKeyMap(),
		view:     ViewBoard,
		now:      time.Now(),
		expanded: make(map[int]bool),
		spinner:  sp,
		logState: logState{follow: true},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		m.spinner.Tick,
	}
	if m.board != nil {
		cmds = append(cmds, fetchBoardCmd(m.board))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tea.FocusMsg:
		return m, tea.Tick(FocusCheckDelay, func(time.Time) tea.Msg {
			return focusCheckMsg{}
		})

	case focusCheckMsg:
		if m.board == nil {
			return m, nil
		}
		m.board.Refresh(false)
		return m, fetchBoardCmd(m.board)

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case boardMsg:
		m.departures = msg.departures
		m.snapshot = msg.snapshot
		m.next = msg.next
		m.clampSelection()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
		} else if msg.text != "" {
			m.setFlash(msg.text, false)
		}
		if m.board == nil {
			return m, nil
		}
		return m, fetchBoardCmd(m.board)

	case suggestionsMsg:
		if m.modal == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
		return m, cmd

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var done bool
		m.modal, cmd, done = m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			m.modal.View(m.theme, m.width),
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
		)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var done bool
		m.modal, cmd, done = m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, saveThemeCmd(m.board, m.theme.Name)

	case key.Matches(msg, m.keys.ViewLogs):
		if m.view == ViewLogs {
			m.view = ViewBoard
			return m, nil
		}
		m.view = ViewLogs
		return m, loadLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Escape):
		m.view = ViewBoard
		return m, nil
	}

	switch m.view {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleBoardKey(msg)
	}
}

// handleBoardKey processes keyboard input for the departure board.
func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.departures)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		if n := len(m.departures); n > 0 {
			m.selected = n - 1
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.board == nil {
			return m, nil
		}
		m.board.Refresh(true)
		m.setFlash("Refreshing departures", false)
		return m, fetchBoardCmd(m.board)

	case key.Matches(msg, m.keys.Add):
		if m.board == nil {
			return m, nil
		}
		m.modal = newAddForm(m.ctx, m.board)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Details):
		d, ok := m.selectedDeparture()
		if !ok {
			return m, nil
		}
		m.expanded[d.ID] = !m.expanded[d.ID]
		if m.expanded[d.ID] && m.board != nil {
			m.board.Postpone(DetailPostpone)
		}

	case key.Matches(msg, m.keys.Menu):
		d, ok := m.selectedDeparture()
		if !ok || m.board == nil {
			return m, nil
		}
		m.modal = newActionMenu(m.board, d)
	}

	return m, nil
}

// handleTick processes the UI tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	if m.flash != "" && now.After(m.flashUntil) {
		m.flash = ""
		m.flashErr = false
	}

	var cmds []tea.Cmd
	if m.board != nil {
		cmds = append(cmds, fetchBoardCmd(m.board))
	}
	if m.view == ViewLogs && m.logState.follow {
		cmds = append(cmds, loadLogsCmd(m.logPath))
	}
	cmds = append(cmds, tickCmd(m.tick))
	return m, tea.Batch(cmds...)
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
	m.flashUntil = m.now.Add(FlashDuration)
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.departures) {
		m.selected = len(m.departures) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) selectedDeparture() (prefs.Departure, bool) {
	if m.selected < 0 || m.selected >= len(m.departures) {
		return prefs.Departure{}, false
	}
	return m.departures[m.selected], true
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	switch m.view {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderBoard())
	}
	return b.String()
}

// Messages

type tickMsg time.Time

type focusCheckMsg struct{}

type boardMsg struct {
	departures []prefs.Departure
	snapshot   state.Snapshot
	next       time.Time
}

type actionDoneMsg struct {
	text string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchBoardCmd(board Board) tea.Cmd {
	return func() tea.Msg {
		return boardMsg{
			departures: board.Departures(),
			snapshot:   board.Snapshot(),
			next:       board.NextRefresh(),
		}
	}
}

func saveThemeCmd(board Board, name string) tea.Cmd {
	if board == nil {
		return nil
	}
	return func() tea.Msg {
		if err := board.SaveTheme(name); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: "Theme " + name}
	}
}

// actionCmd runs a board mutation off the update loop.
func actionCmd(done string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: done}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(m.ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
