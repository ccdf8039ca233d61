package tui

import "github.com/Veraticus/schoolctl/internal/progression"

// stateChangedMsg asks for a re-render after a screen or the notifier
// changed on another goroutine.
type stateChangedMsg struct{}

// actionDoneMsg reports a finished screen command.
type actionDoneMsg struct {
	err    error
	action string
}

type loggedInMsg struct {
	err     error
	session Session
}

type loggedOutMsg struct{}

// confirmRequestMsg carries a delete confirmation from the command
// goroutine; the answer goes back on reply.
type confirmRequestMsg struct {
	reply  chan<- bool
	prompt string
}

type wizardDoneMsg struct {
	err  error
	step progression.Step
}

type exportedMsg struct {
	err  error
	path string
	rows int
}
