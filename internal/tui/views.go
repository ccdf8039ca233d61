package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/progression"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.session == nil {
		return m.renderLogin()
	}
	if m.mode == modeWizard {
		return m.renderWizard()
	}
	return m.renderBrowse()
}

// renderLogin renders the login form.
func (m Model) renderLogin() string {
	lines := []string{
		m.theme.Title.Render("🎓 School Console"),
		m.theme.Subtitle.Render("Log in to continue"),
		"Username  " + m.input.View(),
		"Password  " + m.password.View(),
		"",
	}
	switch {
	case m.busy:
		lines = append(lines, m.spinner.View()+" Logging in...")
	case m.loginErr != "":
		lines = append(lines, m.theme.StatusError.Render(m.loginErr))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Enter to log in · Tab to switch field · Esc to quit"))

	box := m.theme.RoundedBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderBrowse renders the screen tabs, the table and whatever dialog is
// open.
func (m Model) renderBrowse() string {
	s := m.current()
	if s == nil {
		return ""
	}
	st := s.State()

	parts := []string{
		m.renderHeader(),
		m.renderScreenTabs(),
		m.renderCollectionTabs(st),
		m.renderFilters(st),
		m.table.View(),
		m.renderStatus(s, st),
		m.renderBanner(),
	}
	if dialog := m.renderDialog(); dialog != "" {
		parts = append(parts, dialog)
	}
	parts = append(parts, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.Bold.Foreground(m.theme.Primary).Render("🎓 School Console")
	if user, ok := m.session.Registry.User(); ok {
		title += lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf("  user #%d (%s)", user.ID, user.Type))
	}
	if m.busy {
		title += "  " + m.spinner.View()
	}
	return title
}

func (m Model) renderScreenTabs() string {
	screens := m.session.Registry.Screens()
	tabs := make([]string, len(screens))
	for i, s := range screens {
		if i == m.screen%len(screens) {
			tabs[i] = m.theme.TabActive.Render(s.Title())
		} else {
			tabs[i] = m.theme.TabInactive.Render(s.Title())
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderCollectionTabs(st console.State) string {
	if len(st.Tabs) == 0 {
		return ""
	}
	tabs := make([]string, len(st.Tabs))
	for i, name := range st.Tabs {
		if i == st.ActiveTab {
			tabs[i] = m.theme.Bold.Underline(true).Render(name)
		} else {
			tabs[i] = lipgloss.NewStyle().Foreground(m.theme.Muted).Render(name)
		}
	}
	return " " + strings.Join(tabs, "  ·  ")
}

func (m Model) renderFilters(st console.State) string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	var parts []string
	for _, name := range slices.Sorted(maps.Keys(st.Filters)) {
		if v := st.Filters[name]; v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", name, v))
		}
	}
	if st.PendingSearch != "" && st.PendingSearch != st.Filters[collection.SearchField] {
		parts = append(parts, fmt.Sprintf("typing %q", st.PendingSearch))
	}
	if len(parts) == 0 {
		return muted.Render(" No filters")
	}
	return muted.Render(" Filters: ") + m.theme.Normal.Render(strings.Join(parts, "  "))
}

func (m Model) renderStatus(s console.Screen, st console.State) string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	var parts []string
	switch {
	case st.Loading && !st.Loaded:
		parts = append(parts, m.spinner.View()+" Loading "+s.Title()+"...")
	case st.Loaded && len(st.Rows) == 0:
		parts = append(parts, "No records")
	default:
		parts = append(parts, "Page "+m.pager.View())
	}
	parts = append(parts, fmt.Sprintf("%d records", st.Total))
	if st.Page.Size > 0 && st.Page.Size < collection.ClientFetchLimit {
		parts = append(parts, fmt.Sprintf("%d per page", st.Page.Size))
	}
	if n := m.selection.Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if id, row, ok := m.selectedID(); ok && st.Approvable[row] {
		parts = append(parts, m.theme.Status("Pending").Render(fmt.Sprintf("#%d awaits approval (a/r)", id)))
	}
	return muted.Render(" " + strings.Join(parts, " · "))
}

// renderBanner renders the current notification, if any.
func (m Model) renderBanner() string {
	n := m.notify().Current()
	if !n.Visible {
		return ""
	}
	return m.theme.Notice(n.Severity).Render(" " + n.Text)
}

func (m Model) renderDialog() string {
	label := map[mode]string{
		modeSearch:  "Search",
		modeFilter:  "Filter",
		modeCreate:  "New record",
		modeEdit:    "Edit",
		modeComment: "Comments",
		modePrice:   "Unit price",
		modeExport:  "Export to",
	}
	switch m.mode {
	case modeConfirm:
		if m.confirm == nil {
			return ""
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			m.theme.StatusWarning.Render(m.confirm.prompt),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("y to confirm · n to cancel"),
		)
		return m.theme.RoundedBox.Render(body)
	case modeComment:
		verb := "Approve"
		if m.decision == model.DecisionRejected {
			verb = "Reject"
		}
		return m.theme.Bold.Render(fmt.Sprintf("%s #%d ", verb, m.target)) + m.input.View()
	}
	if l, ok := label[m.mode]; ok {
		return m.theme.Bold.Render(l+": ") + m.input.View()
	}
	return ""
}

// renderWizard renders the current progression step.
func (m Model) renderWizard() string {
	w := m.session.Wizard
	step := w.Step()

	steps := make([]string, 4)
	for i := range steps {
		s := progression.Step(i)
		if s == step {
			steps[i] = m.theme.TabActive.Render(fmt.Sprintf("%d. %s", i+1, s))
		} else {
			steps[i] = m.theme.TabInactive.Render(fmt.Sprintf("%d. %s", i+1, s))
		}
	}

	var body []string
	var hint string
	switch step {
	case progression.StepSelectSessions:
		body = m.wizardSessions(w)
		hint = "↑/↓ move · f from · t to · Enter preview · Esc close"
	case progression.StepPreviewStudents:
		body = m.wizardCandidates(w)
		hint = "Space toggle · A all · p promote · r retain · d demote · Enter review · Esc back"
	case progression.StepConfirmActions:
		body = m.wizardMoves(w)
		hint = "Enter execute · Esc back"
	case progression.StepViewResults:
		body = m.wizardResults(w)
		hint = "Enter start over · Esc close"
	}
	if m.busy {
		body = append(body, "", m.spinner.View()+" Working...")
	}

	parts := []string{
		m.theme.Title.Render("Session progression"),
		lipgloss.JoinHorizontal(lipgloss.Top, steps...),
		"",
		strings.Join(body, "\n"),
		"",
		m.renderBanner(),
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(hint),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) wizardSessions(w *progression.Wizard) []string {
	sessions := w.Sessions()
	if len(sessions) == 0 {
		return []string{"No sessions loaded"}
	}
	lines := make([]string, len(sessions))
	for i, s := range sessions {
		var marks []string
		if s.ID == m.from {
			marks = append(marks, "from")
		}
		if s.ID == m.to {
			marks = append(marks, "to")
		}
		if s.IsCurrent {
			marks = append(marks, "current")
		}
		line := fmt.Sprintf("%-12s %s to %s", s.Name, s.StartDate, s.EndDate)
		if len(marks) > 0 {
			line += "  [" + strings.Join(marks, ", ") + "]"
		}
		lines[i] = m.cursorLine(i, line)
	}
	return lines
}

func (m Model) wizardCandidates(w *progression.Wizard) []string {
	candidates := w.Candidates()
	if len(candidates) == 0 {
		return []string{"No students to progress"}
	}
	lines := make([]string, len(candidates))
	for i, c := range candidates {
		box, action := "[ ]", ""
		if a, ok := w.Action(c.StudentID); ok {
			box, action = "[x]", string(a)
		}
		lines[i] = m.cursorLine(i, fmt.Sprintf("%s %-24s %-10s %s", box, c.Name, c.ClassName, action))
	}
	return m.window(lines)
}

func (m Model) wizardMoves(w *progression.Wizard) []string {
	moves := w.Moves()
	lines := make([]string, len(moves))
	for i, mv := range moves {
		lines[i] = m.cursorLine(i, fmt.Sprintf("%-24s %-10s → %-10s %s",
			mv.Candidate.Name, mv.Candidate.ClassName, mv.Target.Name, mv.Action))
	}
	header := m.theme.Bold.Render(fmt.Sprintf("%d students will be processed", len(moves)))
	return append([]string{header}, m.window(lines)...)
}

func (m Model) wizardResults(w *progression.Wizard) []string {
	res, ok := w.Result()
	if !ok {
		return nil
	}
	lines := []string{
		fmt.Sprintf("Processed %d", res.Processed),
		m.theme.StatusSuccess.Render(fmt.Sprintf("Promoted  %d", res.Promoted)),
		fmt.Sprintf("Retained  %d", res.Retained),
		m.theme.StatusWarning.Render(fmt.Sprintf("Demoted   %d", res.Demoted)),
	}
	if len(res.Failures) > 0 {
		lines = append(lines, "", m.theme.StatusError.Render(fmt.Sprintf("%d failed:", len(res.Failures))))
		for _, f := range res.Failures {
			lines = append(lines, fmt.Sprintf("  student %d: %s", f.StudentID, f.Reason))
		}
	}
	return lines
}

func (m Model) cursorLine(i int, line string) string {
	if i == m.cursor {
		return m.theme.Selected.Render("> " + line)
	}
	return "  " + line
}

// window keeps the cursor visible in lists longer than the terminal.
func (m Model) window(lines []string) []string {
	height := max(m.height-chrome, 5)
	if len(lines) <= height {
		return lines
	}
	start := min(max(m.cursor-height/2, 0), len(lines)-height)
	return lines[start : start+height]
}
