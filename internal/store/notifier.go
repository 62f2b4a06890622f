package store

import (
	"sync"
	"sync/atomic"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

// Notifier fans change notifications out to every subscriber. Publish
// never blocks: when a subscriber's buffer is full the notification is
// not queued, but the loss is never silent. The subscriber's sticky
// overflow flag is raised so it can recover by treating everything as
// changed on its next cycle.
type Notifier struct {
	mu      sync.RWMutex
	subs    []*Subscription
	dropped atomic.Uint64
}

// Subscription is one consumer's view of the notification stream.
type Subscription struct {
	ch       chan domain.ChangeNotification
	overflow atomic.Bool
}

// Chan returns the notification channel.
func (s *Subscription) Chan() <-chan domain.ChangeNotification {
	return s.ch
}

// Overflowed reports whether any notification was lost since the last
// call, and clears the flag. A consumer seeing true must assume every
// category of every instrument may have changed.
func (s *Subscription) Overflowed() bool {
	return s.overflow.Swap(false)
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a new consumer with the given channel buffer.
func (n *Notifier) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 256
	}
	sub := &Subscription{ch: make(chan domain.ChangeNotification, buffer)}
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return sub
}

// Publish broadcasts one notification to all subscribers.
func (n *Notifier) Publish(note domain.ChangeNotification) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subs {
		select {
		case sub.ch <- note:
		default:
			sub.overflow.Store(true)
			n.dropped.Add(1)
		}
	}
}

// Dropped returns the count of notifications lost to full subscribers.
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}
