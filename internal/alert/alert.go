// Package alert implements the transient notification shown after cart actions.
// At most one alert is live at a time and it clears itself after a fixed TTL.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an alert stays visible unless dismissed or replaced.
const DefaultTTL = 3 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Message is a raised alert.
type Message struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Severity Severity  `json:"severity"`
	RaisedAt time.Time `json:"raised_at"`
}

// ExpiresAt is when the alert clears itself under the given TTL.
func (m Message) ExpiresAt(ttl time.Duration) time.Time {
	return m.RaisedAt.Add(ttl)
}

// ClearReason says why an alert went away.
type ClearReason string

const (
	ReasonExpired   ClearReason = "expired"
	ReasonDismissed ClearReason = "dismissed"
	ReasonReplaced  ClearReason = "replaced"
	ReasonClosed    ClearReason = "closed"
)

// Notifier holds the current alert and the single timer that clears it.
type Notifier struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	current  *Message
	gen      uint64
	timer    *time.Timer
	closed   bool
	onChange func(Message, ClearReason)
}

// NewNotifier creates a Notifier. A non-positive ttl falls back to DefaultTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// TTL returns the auto-clear delay.
func (n *Notifier) TTL() time.Duration {
	return n.ttl
}

// OnChange registers fn to run after every clear. fn is called without the
// notifier lock held.
func (n *Notifier) OnChange(fn func(Message, ClearReason)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Raise replaces the current alert and arms a fresh timer for it. The timer of a
// replaced alert is stopped; should it fire anyway, the generation check keeps it
// from clearing the newer alert.
func (n *Notifier) Raise(text string, severity Severity) Message {
	msg := Message{ID: uuid.New(), Text: text, Severity: severity, RaisedAt: n.now()}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return msg
	}
	prev := n.current
	n.stopTimerLocked()
	n.gen++
	gen := n.gen
	n.current = &msg
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(gen) })
	hook := n.onChange
	n.mu.Unlock()

	if prev != nil && hook != nil {
		hook(*prev, ReasonReplaced)
	}
	return msg
}

// Dismiss clears the current alert now and cancels its timer.
func (n *Notifier) Dismiss() {
	n.clear(ReasonDismissed)
}

// Current returns the live alert, if any.
func (n *Notifier) Current() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Message{}, false
	}
	return *n.current, true
}

// Close cancels any pending timer. Later Raise calls do not arm timers.
func (n *Notifier) Close() {
	n.clear(ReasonClosed)
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || n.current == nil {
		n.mu.Unlock()
		return
	}
	prev := *n.current
	n.current = nil
	n.timer = nil
	hook := n.onChange
	n.mu.Unlock()

	if hook != nil {
		hook(prev, ReasonExpired)
	}
}

func (n *Notifier) clear(reason ClearReason) {
	n.mu.Lock()
	if reason == ReasonClosed {
		n.closed = true
	}
	n.stopTimerLocked()
	n.gen++
	prev := n.current
	n.current = nil
	hook := n.onChange
	n.mu.Unlock()

	if prev != nil && hook != nil {
		hook(*prev, reason)
	}
}

func (n *Notifier) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
