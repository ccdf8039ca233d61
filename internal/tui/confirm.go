package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/schoolctl/internal/collection"
)

var errNoTerminal = errors.New("no terminal to confirm on")

// dialogConfirmer asks through the running program and blocks the calling
// command until the dialog is answered.
type dialogConfirmer struct {
	send func(tea.Msg)
}

var _ collection.Confirmer = dialogConfirmer{}

func (c dialogConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if c.send == nil {
		return false, errNoTerminal
	}
	reply := make(chan bool, 1)
	c.send(confirmRequestMsg{prompt: prompt, reply: reply})

	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
