// Package session tracks who is signed in and notifies listeners when
// that changes. The checklist service owns authentication; this is only
// the client-side mirror of it.
package session

import "sync"

// Session identifies a signed-in user.
type Session struct {
	UserID string
	Token  string
}

// Change is sent to subscribers whenever the session starts or ends.
// Session is nil on sign-out.
type Change struct {
	Session *Session
}

// Notifier holds the current session and broadcasts changes. Safe for
// concurrent use; sends are non-blocking so a stalled subscriber drops
// notifications instead of blocking sign-in/out.
type Notifier struct {
	mu      sync.Mutex
	current *Session
	subs    map[int]chan Change
	nextSub int
}

// NewNotifier creates a Notifier with no active session.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Change)}
}

// Current returns the active session, or nil when signed out.
func (n *Notifier) Current() *Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	s := *n.current
	return &s
}

// SignIn records a new active session and notifies subscribers.
func (n *Notifier) SignIn(s Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &s
	n.broadcast(Change{Session: &s})
}

// SignOut clears the active session and notifies subscribers.
func (n *Notifier) SignOut() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	n.broadcast(Change{})
}

// Subscribe registers a session-change listener. If a session is
// already active, the listener immediately receives it.
func (n *Notifier) Subscribe() (int, <-chan Change) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSub
	n.nextSub++
	ch := make(chan Change, 4)
	n.subs[id] = ch
	if n.current != nil {
		s := *n.current
		ch <- Change{Session: &s}
	}
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

// broadcast requires n.mu to be held.
func (n *Notifier) broadcast(c Change) {
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
