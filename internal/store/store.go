package store

import (
	"sync"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

// maxTrades bounds the per-instrument recent-trades ring.
const maxTrades = 50

// entry holds one instrument's state. Each sub-record has its own lock
// so a quote writer and a depth writer for the same instrument never
// contend, and a replace is atomic with respect to readers.
type entry struct {
	quoteMu sync.RWMutex
	name    string
	quote   domain.Quote

	depthMu sync.RWMutex
	depth   domain.Depth

	candleMu sync.RWMutex
	candles  domain.CandleSeries

	tradeMu sync.RWMutex
	trades  []domain.Trade
}

// MarketStore is the sole owner of all market snapshots. Writers are
// the ingestion loop and the bootstrap sync; every reader receives
// copies. The top-level lock guards only the map, never the data, so a
// single-instrument update never blocks the rest of the store.
type MarketStore struct {
	mu       sync.RWMutex
	entries  map[domain.Instrument]*entry
	notifier *Notifier
}

// NewMarketStore creates an empty store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		entries:  make(map[domain.Instrument]*entry),
		notifier: NewNotifier(),
	}
}

// Subscribe registers a change-notification consumer. Each subscriber
// drains its own channel independently (broadcast, not a shared queue)
// and carries its own overflow flag.
func (s *MarketStore) Subscribe(buffer int) *Subscription {
	return s.notifier.Subscribe(buffer)
}

// ensure returns the entry for an instrument, creating it when unseen
// (upsert semantics: updates never error on unknown instruments).
func (s *MarketStore) ensure(inst domain.Instrument) *entry {
	s.mu.RLock()
	e, ok := s.entries[inst]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[inst]; ok {
		return e
	}
	e = &entry{}
	s.entries[inst] = e
	return e
}

// UpdateQuote atomically replaces the quote sub-record.
func (s *MarketStore) UpdateQuote(inst domain.Instrument, q domain.Quote) domain.ChangeNotification {
	e := s.ensure(inst)

	e.quoteMu.Lock()
	// Per-instrument timestamps never go backwards; prev_close arrives
	// only via REST snapshots, so pushes must not blank it out.
	if q.Timestamp.Before(e.quote.Timestamp) {
		q.Timestamp = e.quote.Timestamp
	}
	if q.PrevClose.IsZero() {
		q.PrevClose = e.quote.PrevClose
	}
	e.quote = q
	e.quoteMu.Unlock()

	note := domain.ChangeNotification{Instrument: inst, Category: domain.CategoryQuote}
	s.notifier.Publish(note)
	return note
}

// UpdateDepth atomically replaces the depth sub-record.
func (s *MarketStore) UpdateDepth(inst domain.Instrument, d domain.Depth) domain.ChangeNotification {
	e := s.ensure(inst)

	e.depthMu.Lock()
	if d.Timestamp.Before(e.depth.Timestamp) {
		d.Timestamp = e.depth.Timestamp
	}
	e.depth = d
	e.depthMu.Unlock()

	note := domain.ChangeNotification{Instrument: inst, Category: domain.CategoryDepth}
	s.notifier.Publish(note)
	return note
}

// UpdateCandles atomically replaces the candle series fragment.
func (s *MarketStore) UpdateCandles(inst domain.Instrument, c domain.CandleSeries) domain.ChangeNotification {
	e := s.ensure(inst)

	e.candleMu.Lock()
	e.candles = c
	e.candleMu.Unlock()

	note := domain.ChangeNotification{Instrument: inst, Category: domain.CategoryCandle}
	s.notifier.Publish(note)
	return note
}

// AppendTrade appends one trade to the bounded recent-trades ring.
func (s *MarketStore) AppendTrade(inst domain.Instrument, t domain.Trade) domain.ChangeNotification {
	e := s.ensure(inst)

	e.tradeMu.Lock()
	e.trades = append(e.trades, t)
	if len(e.trades) > maxTrades {
		e.trades = e.trades[len(e.trades)-maxTrades:]
	}
	e.tradeMu.Unlock()

	note := domain.ChangeNotification{Instrument: inst, Category: domain.CategoryTrade}
	s.notifier.Publish(note)
	return note
}

// SetName records the display name from static info. No notification:
// names only change during bootstrap sync.
func (s *MarketStore) SetName(inst domain.Instrument, name string) {
	e := s.ensure(inst)
	e.quoteMu.Lock()
	e.name = name
	e.quoteMu.Unlock()
}

// Quote returns a copy of the quote sub-record.
func (s *MarketStore) Quote(inst domain.Instrument) (domain.Quote, bool) {
	s.mu.RLock()
	e, ok := s.entries[inst]
	s.mu.RUnlock()
	if !ok {
		return domain.Quote{}, false
	}
	e.quoteMu.RLock()
	defer e.quoteMu.RUnlock()
	return e.quote, true
}

// Get returns a consistent point-in-time copy of the full snapshot.
func (s *MarketStore) Get(inst domain.Instrument) (domain.MarketSnapshot, bool) {
	s.mu.RLock()
	e, ok := s.entries[inst]
	s.mu.RUnlock()
	if !ok {
		return domain.MarketSnapshot{}, false
	}
	return e.snapshot(inst), true
}

// GetMany returns snapshots for the given instruments. Unknown
// instruments are simply absent from the result. No global write lock
// is taken, so ingestion is never blocked by a bulk read.
func (s *MarketStore) GetMany(insts []domain.Instrument) map[domain.Instrument]domain.MarketSnapshot {
	result := make(map[domain.Instrument]domain.MarketSnapshot, len(insts))
	for _, inst := range insts {
		if snap, ok := s.Get(inst); ok {
			result[inst] = snap
		}
	}
	return result
}

// Instruments returns all known instrument identifiers.
func (s *MarketStore) Instruments() []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Instrument, 0, len(s.entries))
	for inst := range s.entries {
		out = append(out, inst)
	}
	return out
}

// Len returns the number of known instruments.
func (s *MarketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (e *entry) snapshot(inst domain.Instrument) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{Instrument: inst}

	e.quoteMu.RLock()
	snap.Name = e.name
	snap.Quote = e.quote
	e.quoteMu.RUnlock()

	e.depthMu.RLock()
	snap.Depth = e.depth
	snap.Depth.Asks = append([]domain.DepthLevel(nil), e.depth.Asks...)
	snap.Depth.Bids = append([]domain.DepthLevel(nil), e.depth.Bids...)
	e.depthMu.RUnlock()

	e.candleMu.RLock()
	snap.Candles = e.candles
	snap.Candles.Candles = append([]domain.Candle(nil), e.candles.Candles...)
	e.candleMu.RUnlock()

	e.tradeMu.RLock()
	snap.Trades = append([]domain.Trade(nil), e.trades...)
	e.tradeMu.RUnlock()

	return snap
}
