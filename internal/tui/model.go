// Package tui is the interactive administration console: one tab per
// screen, a paged table with tabs, search and filters, dialogs for writes
// and the session progression wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/tui/themes"
)

// mode is what the keyboard currently drives.
type mode int

const (
	modeLogin mode = iota
	modeBrowse
	modeSearch
	modeFilter
	modeCreate
	modeEdit
	modeComment
	modePrice
	modeExport
	modeConfirm
	modeWizard
	modeHelp
)

// commandTimeout bounds every request a key press starts, except deletes,
// which wait for the confirmation dialog.
const commandTimeout = 30 * time.Second

// chrome is the number of lines around the table: title, screen tabs,
// collection tabs, filters, pager, banner, input and help.
const chrome = 12

// Model holds the console state.
type Model struct {
	ctx       context.Context
	send      func(tea.Msg)
	session   *Session
	selection *collection.Selection[int, string]
	confirm   *confirmRequestMsg
	recorder  *Recorder
	theme     themes.Theme
	config    Config
	keymap    KeyMap
	help      help.Model
	pager     paginator.Model
	spinner   spinner.Model
	input     textinput.Model
	password  textinput.Model
	table     table.Model
	loginErr  string
	decision  model.Decision
	screen    int
	target    int
	cursor    int
	from      int
	to        int
	width     int
	height    int
	mode      mode
	before    mode
	busy      bool
	quitting  bool
}

// newModel creates a new model with the given configuration.
func newModel(ctx context.Context, cfg Config) Model {
	input := textinput.New()
	input.CharLimit = 512
	input.Placeholder = "username"
	input.Cursor.SetMode(cursor.CursorStatic)

	password := textinput.New()
	password.Cursor.SetMode(cursor.CursorStatic)
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	pager := paginator.New()
	pager.Type = paginator.Arabic

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(cfg.Theme.RoundedBox.GetBorderStyle()).
		BorderForeground(cfg.Theme.RoundedBox.GetBorderBottomForeground()).
		BorderBottom(true).
		Foreground(cfg.Theme.Primary).
		Bold(true)
	styles.Selected = cfg.Theme.Selected
	tbl := table.New(table.WithFocused(true))
	tbl.SetStyles(styles)

	m := Model{
		ctx:       ctx,
		config:    cfg,
		theme:     cfg.Theme,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		pager:     pager,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:     input,
		password:  password,
		table:     tbl,
		selection: collection.NewSelection[int, string](),
		width:     cfg.Width,
		height:    cfg.Height,
		mode:      modeLogin,
	}
	m.input.Focus()
	if cfg.Session != nil {
		m.attach(*cfg.Session)
	}
	m.resize()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.session != nil {
		cmds = append(cmds, m.refresh())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.answer(false)
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, m.handleKey(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case stateChangedMsg:
		// Rendering reads the screens directly.

	case actionDoneMsg:
		m.busy = false
		cmds = append(cmds, m.handleActionDone(msg))

	case confirmRequestMsg:
		m.confirm = &msg
		m.before = m.mode
		m.mode = modeConfirm

	case loggedInMsg:
		m.busy = false
		if msg.err != nil {
			m.loginErr = api.UserMessage(msg.err)
			common.LogDebug("console login failed", common.Fields{"error": msg.err.Error()})
			break
		}
		m.attach(msg.session)
		cmds = append(cmds, m.refresh())

	case loggedOutMsg:
		m.detach("Your session has ended. Please log in again.")
		cmds = append(cmds, textinput.Blink)

	case wizardDoneMsg:
		m.busy = false
		m.cursor = 0

	case exportedMsg:
		m.busy = false
		if msg.err != nil {
			m.notify().Error(fmt.Sprintf("Export failed: %v", msg.err))
		} else {
			m.notify().Success(fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path))
		}
	}

	m.syncTable()
	m.recorder.RecordState(m, msg)
	return m, tea.Batch(cmds...)
}

// handleKey dispatches a key press to the active mode.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeLogin:
		return m.handleLoginKey(msg)
	case modeBrowse:
		return m.handleBrowseKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeWizard:
		return m.handleWizardKey(msg)
	case modeHelp:
		if key.Matches(msg, m.keymap.Help, m.keymap.Cancel, m.keymap.Quit) {
			m.mode = m.before
			m.help.ShowAll = false
		}
		return nil
	default:
		return m.handleInputKey(msg)
	}
}

// handleActionDone surfaces the failures nothing else reported.
func (m *Model) handleActionDone(msg actionDoneMsg) tea.Cmd {
	err := msg.err
	switch {
	case err == nil, errors.Is(err, collection.ErrSuperseded), errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, common.ErrNotAuthenticated):
		m.detach("Please log in.")
		return textinput.Blink
	case errors.Is(err, collection.ErrInvalidFilter), errors.Is(err, collection.ErrUnknownFilter),
		errors.Is(err, collection.ErrUnsupported):
		m.notify().Error(err.Error())
	}
	common.LogDebug("console action failed", common.Fields{"action": msg.action, "error": err.Error()})
	return nil
}

// attach switches to a logged-in session.
func (m *Model) attach(s Session) {
	m.session = &s
	m.screen = 0
	m.mode = modeBrowse
	m.loginErr = ""
	m.input.Blur()
	m.password.Reset()
	m.selection.Clear()
	m.subscribe()
	m.resetTable()
}

// subscribe re-renders whenever a screen or the notifier changes off the
// update loop.
func (m *Model) subscribe() {
	if m.send == nil || m.session == nil {
		return
	}
	send := m.send
	for _, s := range m.session.Registry.Screens() {
		s.OnChange(func() { send(stateChangedMsg{}) })
	}
	m.session.Registry.Notifier().OnChange(func(collection.Notification) { send(stateChangedMsg{}) })
}

// detach closes the session and returns to the login form.
func (m *Model) detach(reason string) {
	m.answer(false)
	if m.session != nil {
		m.session.Registry.Close()
	}
	m.session = nil
	m.mode = modeLogin
	m.loginErr = reason
	m.busy = false
	m.selection.Clear()
	m.table.SetRows(nil)
	m.input.Reset()
	m.input.Placeholder = "username"
	m.input.Focus()
	m.password.Blur()
}

// answer replies to a pending confirmation.
func (m *Model) answer(ok bool) {
	if m.confirm == nil {
		return
	}
	m.confirm.reply <- ok
	m.confirm = nil
}

// current returns the visible screen.
func (m Model) current() console.Screen {
	if m.session == nil {
		return nil
	}
	screens := m.session.Registry.Screens()
	if len(screens) == 0 {
		return nil
	}
	return screens[m.screen%len(screens)]
}

// notify returns the shared notification channel. Without a session the
// messages go nowhere.
func (m Model) notify() *collection.Notifier {
	if m.session == nil {
		return collection.NewNotifier(nil, 0)
	}
	return m.session.Registry.Notifier()
}

// selectedID returns the record under the cursor.
func (m Model) selectedID() (int, int, bool) {
	s := m.current()
	if s == nil {
		return 0, 0, false
	}
	st := s.State()
	i := m.table.Cursor()
	if i < 0 || i >= len(st.IDs) {
		return 0, 0, false
	}
	return st.IDs[i], i, true
}

// resize fits the table to the terminal.
func (m *Model) resize() {
	m.table.SetWidth(max(m.width-4, 20))
	m.table.SetHeight(max(m.height-chrome, 3))
	m.help.Width = m.width
	m.input.Width = max(m.width-20, 20)
}

// resetTable swaps the columns for the current screen.
func (m *Model) resetTable() {
	s := m.current()
	m.table.SetRows(nil)
	if s == nil {
		return
	}
	cols := make([]table.Column, len(s.Columns()))
	for i, c := range s.Columns() {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	m.table.SetColumns(cols)
	m.table.SetCursor(0)
	m.syncTable()
}

// syncTable copies the current page into the table.
func (m *Model) syncTable() {
	s := m.current()
	if s == nil {
		return
	}
	st := s.State()
	width := len(s.Columns())
	bulk := s.Supports(console.ActionBulkPrice)

	rows := make([]table.Row, len(st.Rows))
	for i, r := range st.Rows {
		row := make(table.Row, width)
		copy(row, r)
		if bulk && width > 0 {
			mark := "  "
			if m.selection.Has(st.IDs[i]) {
				mark = "✓ "
			}
			row[0] = mark + row[0]
		}
		rows[i] = row
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}

	m.pager.PerPage = max(st.Page.Size, 1)
	m.pager.TotalPages = max(st.TotalPages, 1)
	m.pager.Page = min(st.Page.Index, m.pager.TotalPages-1)
}
