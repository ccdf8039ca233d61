package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/export"
)

var errNothingToExport = errors.New("nothing to export on this page")

// do runs fn off the update loop and reports how it went.
func (m *Model) do(action string, fn func(context.Context) error) tea.Cmd {
	m.busy = true
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, commandTimeout)
		defer cancel()
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// refresh reloads the current screen.
func (m *Model) refresh() tea.Cmd {
	s := m.current()
	if s == nil {
		return nil
	}
	return m.do("refresh", s.Refresh)
}

// refreshScreen reloads a screen that has been shown before.
func (m *Model) refreshScreen(name string) tea.Cmd {
	s, err := m.session.Registry.Get(name)
	if err != nil || !s.State().Loaded {
		return nil
	}
	return m.do("refresh", s.Refresh)
}

// delete asks for confirmation through the dialog, so it runs without a
// deadline.
func (m *Model) delete(s console.Screen, id int) tea.Cmd {
	m.busy = true
	ctx, confirm := m.ctx, dialogConfirmer{send: m.send}
	return func() tea.Msg {
		_, err := s.Delete(ctx, id, confirm)
		return actionDoneMsg{action: "delete", err: err}
	}
}

func (m *Model) login(username, password string) tea.Cmd {
	connect, ctx := m.config.Connect, m.ctx
	return func() tea.Msg {
		s, err := connect(ctx, username, password)
		if err == nil && s.Registry == nil {
			err = fmt.Errorf("%w: screen registry", common.ErrMissingConfig)
		}
		return loggedInMsg{session: s, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	auth, parent := m.config.Auth, m.ctx
	return func() tea.Msg {
		if auth != nil {
			ctx, cancel := context.WithTimeout(parent, commandTimeout)
			defer cancel()
			if err := auth.Logout(ctx); err != nil {
				common.LogWarn("logout failed", common.Fields{"error": err.Error()})
			}
		}
		return loggedOutMsg{}
	}
}

func (m *Model) wizardDo(fn func(context.Context) error) tea.Cmd {
	m.busy = true
	parent, w := m.ctx, m.session.Wizard
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, commandTimeout)
		defer cancel()
		err := fn(ctx)
		return wizardDoneMsg{step: w.Step(), err: err}
	}
}

// exportScreen writes the visible page of s to path.
func exportScreen(s console.Screen, path string) tea.Cmd {
	return func() tea.Msg {
		format, err := export.ParseFormat(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		t := export.FromScreen(s)
		if len(t.Rows) == 0 {
			return exportedMsg{err: errNothingToExport}
		}

		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: fmt.Errorf("create %s: %w", path, err)}
		}
		if err := export.Write(f, format, t); err != nil {
			_ = f.Close()
			return exportedMsg{err: errors.Join(err, os.Remove(path))}
		}
		if err := f.Close(); err != nil {
			return exportedMsg{err: fmt.Errorf("close %s: %w", path, err)}
		}
		common.LogInfo("screen exported", common.Fields{"screen": s.Name(), "path": path, "rows": len(t.Rows)})
		return exportedMsg{path: path, rows: len(t.Rows)}
	}
}
