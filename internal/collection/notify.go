package collection

import (
	"sync"
	"time"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 6 * time.Second

// Severity classifies a notification.
type Severity string

// Severities.
const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Notification is the single transient message shown to the user.
type Notification struct {
	Text     string
	Severity Severity
	ID       uint64
	Visible  bool
}

// Notifier holds at most one notification. A new message replaces the
// current one, and a dismissal timer only clears the message it was
// started for.
type Notifier struct {
	clock     Clock
	timer     Timer
	listeners []func(Notification)
	current   Notification
	ttl       time.Duration
	seq       uint64
	mu        sync.Mutex
}

// NewNotifier creates a notifier whose messages dismiss after ttl.
func NewNotifier(clock Clock, ttl time.Duration) *Notifier {
	if clock == nil {
		clock = RealClock()
	}
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{clock: clock, ttl: ttl}
}

// Show replaces the current notification.
func (n *Notifier) Show(text string, severity Severity) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	id := n.seq
	n.current = Notification{Text: text, Severity: severity, ID: id, Visible: true}
	n.timer = n.clock.AfterFunc(n.ttl, func() { n.dismiss(id) })
	current := n.current
	listeners := n.listeners
	n.mu.Unlock()

	notifyAll(listeners, current)
}

// Success shows a success message.
func (n *Notifier) Success(text string) { n.Show(text, SeveritySuccess) }

// Error shows an error message.
func (n *Notifier) Error(text string) { n.Show(text, SeverityError) }

// Info shows an informational message.
func (n *Notifier) Info(text string) { n.Show(text, SeverityInfo) }

// Warning shows a warning.
func (n *Notifier) Warning(text string) { n.Show(text, SeverityWarning) }

// Dismiss hides the current notification.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	id := n.current.ID
	n.mu.Unlock()
	n.dismiss(id)
}

func (n *Notifier) dismiss(id uint64) {
	n.mu.Lock()
	if n.current.ID != id || !n.current.Visible {
		n.mu.Unlock()
		return
	}
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current.Visible = false
	current := n.current
	listeners := n.listeners
	n.mu.Unlock()

	notifyAll(listeners, current)
}

// Current returns the notification state.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// OnChange registers a listener called after every show or dismiss.
func (n *Notifier) OnChange(fn func(Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func notifyAll(listeners []func(Notification), current Notification) {
	for _, fn := range listeners {
		fn(current)
	}
}
