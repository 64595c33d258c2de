// Package notifier tells open lesson pages that their lesson changed on disk.
package notifier

import "sync"

// All is the topic of listeners interested in every lesson.
const All = ""

// Notifier pings listeners subscribed to a lesson. A ping carries no data;
// the listener decides what to reload.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel pinged whenever lesson changes. Use All to
// hear about every lesson. The caller must Unsubscribe when done.
func (n *Notifier) Subscribe(lesson string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = lesson
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings the listeners of lesson and those subscribed to All.
// Broadcast(All) pings everyone. A listener whose previous ping is still
// unread is skipped.
func (n *Notifier) Broadcast(lesson string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, topic := range n.listeners {
		if lesson != All && topic != All && topic != lesson {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
