package store

import (
	"testing"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

func TestNotifier_Broadcast(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe(4)
	b := n.Subscribe(4)

	note := domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote}
	n.Publish(note)

	// Both subscribers receive their own copy
	if got := <-a.Chan(); got != note {
		t.Errorf("subscriber a got %+v", got)
	}
	if got := <-b.Chan(); got != note {
		t.Errorf("subscriber b got %+v", got)
	}
}

func TestNotifier_SlowSubscriberDrops(t *testing.T) {
	n := NewNotifier()
	slow := n.Subscribe(1)
	fast := n.Subscribe(8)

	for i := 0; i < 4; i++ {
		n.Publish(domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote})
	}

	if n.Dropped() != 3 {
		t.Errorf("expected 3 dropped for the slow subscriber, got %d", n.Dropped())
	}
	if len(fast.ch) != 4 {
		t.Errorf("fast subscriber should have all 4, got %d", len(fast.ch))
	}
	if len(slow.ch) != 1 {
		t.Errorf("slow subscriber should hold 1, got %d", len(slow.ch))
	}
}

func TestNotifier_OverflowIsSticky(t *testing.T) {
	n := NewNotifier()
	slow := n.Subscribe(1)
	fast := n.Subscribe(8)

	n.Publish(domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote})
	n.Publish(domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryDepth})

	// The depth note was lost, but the loss is observable even after
	// the queued note has been drained.
	<-slow.Chan()
	if !slow.Overflowed() {
		t.Error("expected overflow flag after a dropped notification")
	}
	if slow.Overflowed() {
		t.Error("overflow flag should clear once observed")
	}

	if fast.Overflowed() {
		t.Error("subscriber that kept up should not report overflow")
	}
}
