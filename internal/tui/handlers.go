package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/progression"
)

func (m *Model) handleLoginKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keymap.Focus):
		if m.input.Focused() {
			m.input.Blur()
			return m.password.Focus()
		}
		m.password.Blur()
		return m.input.Focus()

	case key.Matches(msg, m.keymap.Confirm):
		if m.busy {
			return nil
		}
		username := strings.TrimSpace(m.input.Value())
		if username == "" {
			m.loginErr = "Username is required."
			return nil
		}
		if m.input.Focused() && m.password.Value() == "" {
			m.input.Blur()
			return m.password.Focus()
		}
		if m.config.Connect == nil {
			m.loginErr = "Login is not available."
			return nil
		}
		m.busy = true
		m.loginErr = ""
		return m.login(username, m.password.Value())
	}

	var cmd tea.Cmd
	if m.password.Focused() {
		m.password, cmd = m.password.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	s := m.current()
	if s == nil {
		return nil
	}
	st := s.State()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.before = m.mode
		m.mode = modeHelp
		m.help.ShowAll = true
		return nil

	case key.Matches(msg, m.keymap.NextScreen):
		return m.switchScreen(1)

	case key.Matches(msg, m.keymap.PrevScreen):
		return m.switchScreen(-1)

	case key.Matches(msg, m.keymap.NextTab), key.Matches(msg, m.keymap.PrevTab):
		if len(st.Tabs) < 2 {
			return nil
		}
		step := 1
		if key.Matches(msg, m.keymap.PrevTab) {
			step = len(st.Tabs) - 1
		}
		next := (st.ActiveTab + step) % len(st.Tabs)
		return m.do("select tab", func(ctx context.Context) error { return s.SelectTab(ctx, next) })

	case key.Matches(msg, m.keymap.NextPage):
		return m.do("next page", s.NextPage)

	case key.Matches(msg, m.keymap.PrevPage):
		return m.do("previous page", s.PrevPage)

	case key.Matches(msg, m.keymap.PageSize):
		i := slices.Index(collection.PageSizeOptions, st.Page.Size)
		if i < 0 {
			m.notify().Info(s.Title() + " loads every record at once")
			return nil
		}
		size := collection.PageSizeOptions[(i+1)%len(collection.PageSizeOptions)]
		return m.do("page size", func(ctx context.Context) error { return s.SetPageSize(ctx, size) })

	case key.Matches(msg, m.keymap.Refresh):
		return m.do("refresh", s.Refresh)

	case key.Matches(msg, m.keymap.Search):
		value := st.PendingSearch
		if value == "" {
			value = st.Filters[collection.SearchField]
		}
		return m.openInput(modeSearch, "search", value)

	case key.Matches(msg, m.keymap.Filter):
		return m.openInput(modeFilter, filterHint(s), "")

	case key.Matches(msg, m.keymap.ResetFilters):
		return m.do("reset filters", s.ResetFilters)

	case key.Matches(msg, m.keymap.Create):
		if !m.supports(s, console.ActionCreate, "Creating") {
			return nil
		}
		return m.openInput(modeCreate, assignHint(s.RequiredFields()), "")

	case key.Matches(msg, m.keymap.Edit):
		id, _, ok := m.selectedID()
		if !ok || !m.supports(s, console.ActionUpdate, "Editing") {
			return nil
		}
		m.target = id
		return m.openInput(modeEdit, fmt.Sprintf("changes for #%d, field=value", id), "")

	case key.Matches(msg, m.keymap.Delete):
		id, _, ok := m.selectedID()
		if !ok || !m.supports(s, console.ActionDelete, "Deleting") {
			return nil
		}
		return m.delete(s, id)

	case key.Matches(msg, m.keymap.Approve), key.Matches(msg, m.keymap.Reject):
		id, row, ok := m.selectedID()
		if !ok || !m.supports(s, console.ActionApprove, "Approval") {
			return nil
		}
		if !st.Approvable[row] {
			m.notify().Warning(fmt.Sprintf("%s #%d is no longer pending", s.Title(), id))
			return nil
		}
		m.target = id
		m.decision = model.DecisionApproved
		hint := "comments (optional)"
		if key.Matches(msg, m.keymap.Reject) {
			m.decision = model.DecisionRejected
			hint = "reason for rejecting"
		}
		return m.openInput(modeComment, hint, "")

	case key.Matches(msg, m.keymap.Select):
		id, row, ok := m.selectedID()
		if !ok || !s.Supports(console.ActionBulkPrice) {
			return nil
		}
		m.selection.Toggle(id, st.Rows[row][0])
		return nil

	case key.Matches(msg, m.keymap.BulkPrice):
		if !m.supports(s, console.ActionBulkPrice, "Bulk pricing") {
			return nil
		}
		if m.selection.Len() == 0 {
			m.notify().Warning("Select prices with Space first")
			return nil
		}
		return m.openInput(modePrice, fmt.Sprintf("new unit price for %d items", m.selection.Len()), "")

	case key.Matches(msg, m.keymap.Export):
		path := filepath.Join(m.config.ExportDir, s.Name()+".csv")
		return m.openInput(modeExport, "file (.csv or .pdf)", path)

	case key.Matches(msg, m.keymap.Progression):
		if m.session.Wizard == nil {
			m.notify().Warning("Session progression is not available")
			return nil
		}
		m.session.Wizard.Reset()
		m.mode = modeWizard
		m.cursor, m.from, m.to = 0, 0, 0
		return m.wizardDo(m.session.Wizard.Load)

	case key.Matches(msg, m.keymap.Logout):
		return m.logout()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.closeInput()
		return nil
	case key.Matches(msg, m.keymap.Confirm):
		value := strings.TrimSpace(m.input.Value())
		current := m.mode
		m.closeInput()
		return m.submit(current, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		if s := m.current(); s != nil {
			s.TypeSearch(m.input.Value())
		}
	}
	return cmd
}

// submit runs the action an input dialog collected.
func (m *Model) submit(md mode, value string) tea.Cmd {
	s := m.current()
	if s == nil {
		return nil
	}

	switch md {
	case modeSearch:
		return m.do("search", func(ctx context.Context) error {
			return s.SetFilter(ctx, collection.SearchField, value)
		})

	case modeFilter:
		values, err := parseFilters(value)
		if err != nil {
			m.notify().Error(err.Error())
			return nil
		}
		return m.do("filter", func(ctx context.Context) error { return s.SetFilters(ctx, values) })

	case modeCreate:
		values, err := console.ParseAssignments([]string{value})
		if err != nil {
			m.notify().Error(err.Error())
			return nil
		}
		payload, err := console.EncodeAssignments(values)
		if err != nil {
			m.notify().Error(err.Error())
			return nil
		}
		return m.do("create", func(ctx context.Context) error {
			_, err := s.Create(ctx, payload)
			return err
		})

	case modeEdit:
		patch, err := console.ParseAssignments([]string{value})
		if err != nil {
			m.notify().Error(err.Error())
			return nil
		}
		id := m.target
		return m.do("update", func(ctx context.Context) error {
			_, err := s.Update(ctx, id, patch)
			return err
		})

	case modeComment:
		req := model.ApprovalRequest{Decision: m.decision, Comments: value}
		id := m.target
		return m.do(string(m.decision), func(ctx context.Context) error {
			_, err := s.Approve(ctx, id, req)
			return err
		})

	case modePrice:
		price, err := decimal.NewFromString(value)
		if err != nil || price.IsNegative() {
			m.notify().Error(fmt.Sprintf("%q is not a valid price", value))
			return nil
		}
		req := model.BulkPriceRequest{}
		for _, id := range m.selection.Keys() {
			req.Items = append(req.Items, model.PriceUpdate{ID: id, UnitPrice: price})
		}
		registry, sel := m.session.Registry, m.selection
		return m.do("bulk price", func(ctx context.Context) error {
			if _, err := registry.BulkUpdatePrices(ctx, req); err != nil {
				return err
			}
			sel.Clear()
			return nil
		})

	case modeExport:
		if value == "" {
			return nil
		}
		m.busy = true
		return exportScreen(s, value)
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Yes), key.Matches(msg, m.keymap.Confirm):
		m.answer(true)
	case key.Matches(msg, m.keymap.No):
		m.answer(false)
	default:
		return nil
	}
	m.mode = m.before
	if m.mode == modeConfirm {
		m.mode = modeBrowse
	}
	return nil
}

func (m *Model) handleWizardKey(msg tea.KeyMsg) tea.Cmd {
	w := m.session.Wizard
	if m.busy {
		return nil
	}

	switch {
	case key.Matches(msg, m.keymap.Up):
		m.cursor = max(m.cursor-1, 0)
		return nil
	case key.Matches(msg, m.keymap.Down):
		m.cursor = min(m.cursor+1, max(m.wizardRows()-1, 0))
		return nil
	}

	switch w.Step() {
	case progression.StepSelectSessions:
		sessions := w.Sessions()
		switch {
		case key.Matches(msg, m.keymap.Cancel), key.Matches(msg, m.keymap.Quit):
			m.mode = modeBrowse
		case key.Matches(msg, m.keymap.MarkFrom) && m.cursor < len(sessions):
			m.from = sessions[m.cursor].ID
		case key.Matches(msg, m.keymap.MarkTo) && m.cursor < len(sessions):
			m.to = sessions[m.cursor].ID
		case key.Matches(msg, m.keymap.Confirm):
			if err := w.ChooseSessions(m.from, m.to); err != nil {
				m.notify().Error(wizardError(err))
				return nil
			}
			return m.wizardDo(w.Preview)
		}

	case progression.StepPreviewStudents:
		candidates := w.Candidates()
		var id int
		if m.cursor < len(candidates) {
			id = candidates[m.cursor].StudentID
		}
		var err error
		switch {
		case key.Matches(msg, m.keymap.Cancel):
			err = w.Back()
			m.cursor = 0
		case key.Matches(msg, m.keymap.Select) && id != 0:
			_, err = w.Toggle(id)
		case key.Matches(msg, m.keymap.SelectAll):
			err = w.ToggleAll()
		case key.Matches(msg, m.keymap.Promote) && id != 0:
			err = w.SetAction(id, model.ActionPromoted)
		case key.Matches(msg, m.keymap.Retain) && id != 0:
			err = w.SetAction(id, model.ActionRetained)
		case key.Matches(msg, m.keymap.Demote) && id != 0:
			err = w.SetAction(id, model.ActionDemoted)
		case key.Matches(msg, m.keymap.Confirm):
			err = w.Review()
			m.cursor = 0
		}
		if err != nil {
			m.notify().Error(wizardError(err))
		}

	case progression.StepConfirmActions:
		switch {
		case key.Matches(msg, m.keymap.Cancel):
			_ = w.Back()
			m.cursor = 0
		case key.Matches(msg, m.keymap.Confirm):
			return m.wizardDo(func(ctx context.Context) error {
				_, err := w.Execute(ctx)
				return err
			})
		}

	case progression.StepViewResults:
		switch {
		case key.Matches(msg, m.keymap.Confirm):
			w.Reset()
			m.cursor, m.from, m.to = 0, 0, 0
		case key.Matches(msg, m.keymap.Cancel), key.Matches(msg, m.keymap.Quit):
			w.Reset()
			m.mode = modeBrowse
			return m.refreshScreen(console.ScreenStudents)
		}
	}
	return nil
}

// wizardRows is the length of the list the wizard cursor moves over.
func (m Model) wizardRows() int {
	w := m.session.Wizard
	switch w.Step() {
	case progression.StepSelectSessions:
		return len(w.Sessions())
	case progression.StepPreviewStudents:
		return len(w.Candidates())
	case progression.StepConfirmActions:
		return len(w.Moves())
	}
	return 0
}

func wizardError(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Something went wrong. Please try again."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// switchScreen moves between screens, loading a screen the first time it
// is shown.
func (m *Model) switchScreen(step int) tea.Cmd {
	n := len(m.session.Registry.Screens())
	if n == 0 {
		return nil
	}
	m.screen = (m.screen + step + n) % n
	m.selection.Clear()
	m.resetTable()
	if m.current().State().Loaded {
		return nil
	}
	return m.refresh()
}

func (m *Model) openInput(md mode, placeholder, value string) tea.Cmd {
	m.mode = md
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.table.Blur()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

func (m *Model) supports(s console.Screen, a console.Action, what string) bool {
	if s.Supports(a) {
		return true
	}
	m.notify().Warning(fmt.Sprintf("%s is not available on %s", what, s.Title()))
	return false
}

// filterHint lists a screen's filters for the filter dialog.
func filterHint(s console.Screen) string {
	names := make([]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		if f.Name != collection.SearchField {
			names = append(names, f.Name)
		}
	}
	return "name=value, one of: " + strings.Join(names, " ")
}

func assignHint(required []string) string {
	if len(required) == 0 {
		return "field=value, field=value"
	}
	return strings.Join(required, "=, ") + "="
}

// parseFilters reads "name=value, name=value". An empty value clears the
// filter.
func parseFilters(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%q is not name=value", part)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no filters given")
	}
	return out, nil
}
