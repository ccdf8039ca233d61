package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up         key.Binding
	Down       key.Binding
	NextScreen key.Binding
	PrevScreen key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	PageSize   key.Binding

	// Collection
	Search       key.Binding
	Filter       key.Binding
	ResetFilters key.Binding
	Refresh      key.Binding

	// Records
	Create    key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Approve   key.Binding
	Reject    key.Binding
	Select    key.Binding
	BulkPrice key.Binding
	Export    key.Binding

	// Progression wizard
	Progression key.Binding
	MarkFrom    key.Binding
	MarkTo      key.Binding
	SelectAll   key.Binding
	Promote     key.Binding
	Retain      key.Binding
	Demote      key.Binding

	// Dialogs
	Confirm key.Binding
	Cancel  key.Binding
	Yes     key.Binding
	No      key.Binding
	Focus   key.Binding

	// Application
	Logout    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		NextScreen: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next screen"),
		),
		PrevScreen: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("Shift+Tab", "previous screen"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous tab"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("l", "right", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("h", "left", "pgup"),
			key.WithHelp("←/h", "previous page"),
		),
		PageSize: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "page size"),
		),

		// Collection
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		ResetFilters: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "reset filters"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("Ctrl+R", "refresh"),
		),

		// Records
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reject"),
		),
		Select: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("Space/x", "select"),
		),
		BulkPrice: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bulk price"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export"),
		),

		// Progression wizard
		Progression: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "session progression"),
		),
		MarkFrom: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "from session"),
		),
		MarkTo: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "to session"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "select all"),
		),
		Promote: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "promote"),
		),
		Retain: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retain"),
		),
		Demote: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "demote"),
		),

		// Dialogs
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "no"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "up", "down"),
			key.WithHelp("Tab", "next field"),
		),

		// Application
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextScreen, k.Search, k.Filter, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextScreen, k.PrevScreen, k.NextTab, k.PrevTab},
		{k.NextPage, k.PrevPage, k.PageSize, k.Refresh},
		{k.Search, k.Filter, k.ResetFilters, k.Export},
		{k.Create, k.Edit, k.Delete, k.Approve, k.Reject},
		{k.Select, k.BulkPrice, k.Progression},
		{k.Logout, k.Help, k.Quit},
	}
}
