package store

import (
	"sync"
	"testing"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

func TestMarketStore_UpsertSemantics(t *testing.T) {
	s := NewMarketStore()

	if _, ok := s.Get("700.HK"); ok {
		t.Error("expected unknown instrument to be absent")
	}

	// Updates to unseen instruments create a fresh record, never error
	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(320)})

	snap, ok := s.Get("700.HK")
	if !ok {
		t.Fatal("expected instrument after update")
	}
	if !snap.Quote.LastDone.Equal(decimal.NewFromInt(320)) {
		t.Errorf("expected last done 320, got %s", snap.Quote.LastDone)
	}
}

func TestMarketStore_QuoteReplaceIsAtomic(t *testing.T) {
	s := NewMarketStore()
	const iterations = 2000

	var wg sync.WaitGroup
	wg.Add(2)

	// Writer: LastDone and Volume always carry the same value, so a
	// torn read would expose fields from two different updates.
	go func() {
		defer wg.Done()
		for i := 1; i <= iterations; i++ {
			s.UpdateQuote("700.HK", domain.Quote{
				LastDone: decimal.NewFromInt(int64(i)),
				Volume:   int64(i),
			})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			q, ok := s.Quote("700.HK")
			if !ok {
				continue
			}
			if q.LastDone.IntPart() != q.Volume {
				t.Errorf("torn read: last_done=%s volume=%d", q.LastDone, q.Volume)
				return
			}
		}
	}()

	wg.Wait()
}

func TestMarketStore_IndependentSubRecordWriters(t *testing.T) {
	s := NewMarketStore()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(int64(i))})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.UpdateDepth("700.HK", domain.Depth{
				Asks: []domain.DepthLevel{{Position: 1, Price: decimal.NewFromInt(int64(i))}},
			})
		}
	}()
	wg.Wait()

	snap, ok := s.Get("700.HK")
	if !ok {
		t.Fatal("expected snapshot")
	}
	if snap.Quote.LastDone.IsZero() && len(snap.Depth.Asks) == 0 {
		t.Error("expected both sub-records populated")
	}
}

func TestMarketStore_TimestampsNeverGoBackwards(t *testing.T) {
	s := NewMarketStore()
	later := time.Now()
	earlier := later.Add(-time.Minute)

	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(1), Timestamp: later})
	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(2), Timestamp: earlier})

	q, _ := s.Quote("700.HK")
	if q.Timestamp.Before(later) {
		t.Errorf("timestamp went backwards: %v < %v", q.Timestamp, later)
	}
	// The data itself still reflects receipt order
	if !q.LastDone.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected latest update applied, got %s", q.LastDone)
	}
}

func TestMarketStore_PrevCloseBackfill(t *testing.T) {
	s := NewMarketStore()

	// REST snapshot delivers prev_close; pushes never do.
	s.UpdateQuote("700.HK", domain.Quote{
		LastDone:  decimal.NewFromInt(320),
		PrevClose: decimal.NewFromInt(310),
	})
	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(325)})

	q, _ := s.Quote("700.HK")
	if !q.PrevClose.Equal(decimal.NewFromInt(310)) {
		t.Errorf("expected prev_close preserved, got %s", q.PrevClose)
	}
}

func TestMarketStore_GetMany(t *testing.T) {
	s := NewMarketStore()
	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(320)})
	s.UpdateQuote("AAPL.US", domain.Quote{LastDone: decimal.NewFromInt(190)})

	got := s.GetMany([]domain.Instrument{"700.HK", "AAPL.US", "MISSING.US"})
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if _, ok := got["MISSING.US"]; ok {
		t.Error("unknown instrument should be absent, not zero-valued")
	}
}

func TestMarketStore_SnapshotIsACopy(t *testing.T) {
	s := NewMarketStore()
	s.UpdateDepth("700.HK", domain.Depth{
		Asks: []domain.DepthLevel{{Position: 1, Price: decimal.NewFromInt(320)}},
	})

	snap, _ := s.Get("700.HK")
	snap.Depth.Asks[0].Price = decimal.NewFromInt(999)

	again, _ := s.Get("700.HK")
	if !again.Depth.Asks[0].Price.Equal(decimal.NewFromInt(320)) {
		t.Error("mutating a returned snapshot leaked into the store")
	}
}

func TestMarketStore_TradesRingBounded(t *testing.T) {
	s := NewMarketStore()
	for i := 0; i < maxTrades+25; i++ {
		s.AppendTrade("700.HK", domain.Trade{
			Price:  decimal.NewFromInt(int64(i)),
			Volume: int64(i),
		})
	}

	snap, _ := s.Get("700.HK")
	if len(snap.Trades) != maxTrades {
		t.Fatalf("expected %d trades, got %d", maxTrades, len(snap.Trades))
	}
	// Oldest entries fall off the front
	if snap.Trades[len(snap.Trades)-1].Volume != int64(maxTrades+24) {
		t.Errorf("expected newest trade last, got volume %d", snap.Trades[len(snap.Trades)-1].Volume)
	}
}

func TestMarketStore_NotificationsPerUpdate(t *testing.T) {
	s := NewMarketStore()
	sub := s.Subscribe(16)

	s.UpdateQuote("700.HK", domain.Quote{LastDone: decimal.NewFromInt(1)})
	s.UpdateDepth("700.HK", domain.Depth{})

	notes := sub.Chan()
	first := <-notes
	if first.Instrument != "700.HK" || first.Category != domain.CategoryQuote {
		t.Errorf("unexpected first notification: %+v", first)
	}
	second := <-notes
	if second.Category != domain.CategoryDepth {
		t.Errorf("unexpected second notification: %+v", second)
	}
}
