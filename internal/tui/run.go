package tui

import (
	"context"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/schoolctl/internal/common"
)

// relay forwards messages into the program once it exists.
type relay struct {
	program *tea.Program
	mu      sync.RWMutex
}

func (r *relay) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

func (r *relay) attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Run opens the console and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Session == nil && cfg.Connect == nil {
		return fmt.Errorf("console needs a session or a way to log in")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &relay{}
	m := newModel(ctx, cfg)
	m.send = r.Send
	m.subscribe()

	if cfg.Record {
		rec, err := NewRecorder(cfg.RecordDir)
		if err != nil {
			return err
		}
		defer rec.Close()
		m.recorder = rec
		common.LogInfo("recording console frames", common.Fields{"dir": rec.Dir()})
	}

	if cfg.Auth != nil {
		cfg.Auth.OnUnauthorized(func() { r.Send(loggedOutMsg{}) })
	}

	program := tea.NewProgram(
		m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithOutput(os.Stdout),
	)
	r.attach(program)

	final, err := program.Run()
	if fm, ok := final.(Model); ok && fm.session != nil {
		fm.answer(false)
		fm.session.Registry.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to run console: %w", err)
	}
	return nil
}
