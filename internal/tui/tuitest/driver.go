// Package tuitest drives Bubble Tea models without a terminal.
package tuitest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Driver feeds messages to a model and runs the commands it returns the
// way a program would: off the update loop, with their messages fed back.
// Commands that block, such as a pending confirmation, are left running
// and their messages are picked up by later calls.
type Driver struct {
	model    tea.Model
	msgs     chan tea.Msg
	inflight atomic.Int64
	mu       sync.Mutex

	// Settle is how long the driver waits for a running command before
	// handing control back to the test.
	Settle time.Duration

	// Skip drops messages the test does not care about. By default spinner
	// ticks are dropped so animations do not run forever.
	Skip func(tea.Msg) bool

	// Messages records every message the model received.
	Messages []tea.Msg
}

// New creates a driver for model.
func New(model tea.Model) *Driver {
	return &Driver{
		model:  model,
		msgs:   make(chan tea.Msg, 1024),
		Settle: 2 * time.Second,
		Skip: func(msg tea.Msg) bool {
			_, tick := msg.(spinner.TickMsg)
			return tick
		},
	}
}

// Inject queues msg as if a command had produced it. It is safe to call
// from any goroutine and is the driver's stand-in for Program.Send.
func (d *Driver) Inject(msg tea.Msg) {
	d.msgs <- msg
}

// Init runs the model's initial commands.
func (d *Driver) Init() *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.start(d.model.Init())
	d.settle()
	return d
}

// Send delivers msgs in order, running commands between them.
func (d *Driver) Send(msgs ...tea.Msg) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, msg := range msgs {
		d.apply(msg)
		d.settle()
	}
	return d
}

// Press sends one key press per name. See Key for the names understood.
func (d *Driver) Press(names ...string) *Driver {
	for _, name := range names {
		d.Send(Key(name))
	}
	return d
}

// Type sends text one rune at a time.
func (d *Driver) Type(text string) *Driver {
	return d.Send(Type(text)...)
}

// Drain processes whatever commands have finished since the last call.
func (d *Driver) Drain() *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settle()
	return d
}

// Model returns the current model.
func (d *Driver) Model() tea.Model {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model
}

// View renders the current model without ANSI styling.
func (d *Driver) View() string {
	return StripANSI(d.Model().View())
}

// Quit reports whether the model asked the program to quit.
func (d *Driver) Quit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, msg := range d.Messages {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func (d *Driver) apply(msg tea.Msg) {
	d.Messages = append(d.Messages, msg)
	next, cmd := d.model.Update(msg)
	d.model = next
	d.start(cmd)
}

func (d *Driver) start(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	d.inflight.Add(1)
	go func() {
		if msg := cmd(); msg != nil {
			d.msgs <- msg
		}
		d.inflight.Add(-1)
	}()
}

func (d *Driver) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, cmd := range msg {
			d.start(cmd)
		}
	case tea.QuitMsg:
		d.Messages = append(d.Messages, msg)
	default:
		if d.Skip != nil && d.Skip(msg) {
			return
		}
		d.apply(msg)
	}
}

// settle processes messages until no command is running, or until the
// running ones have been quiet for Settle.
func (d *Driver) settle() {
	quiet := time.Now()
	for {
		select {
		case msg := <-d.msgs:
			d.handle(msg)
			quiet = time.Now()
			continue
		default:
		}
		if d.inflight.Load() == 0 && len(d.msgs) == 0 {
			return
		}
		if time.Since(quiet) > d.Settle {
			return
		}
		select {
		case msg := <-d.msgs:
			d.handle(msg)
			quiet = time.Now()
		case <-time.After(5 * time.Millisecond):
		}
	}
}
