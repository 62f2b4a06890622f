package domain

// Category identifies which sub-record of a snapshot changed
type Category uint8

const (
	CategoryQuote Category = iota
	CategoryDepth
	CategoryCandle
	CategoryTrade
)

func (c Category) String() string {
	switch c {
	case CategoryQuote:
		return "quote"
	case CategoryDepth:
		return "depth"
	case CategoryCandle:
		return "candle"
	case CategoryTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// MarketSnapshot is the latest known complete state for one instrument.
// The market store owns all instances; readers only ever receive copies.
// Each sub-record (Quote, Depth, Candles, Trades) is replaced as a whole,
// never field by field, so a copy is always internally consistent.
type MarketSnapshot struct {
	Instrument Instrument   `json:"instrument"`
	Name       string       `json:"name"`
	Quote      Quote        `json:"quote"`
	Depth      Depth        `json:"depth"`
	Candles    CandleSeries `json:"candles"`
	Trades     []Trade      `json:"trades"`
}

// ChangeNotification describes one applied update. It is produced once
// per update and fanned out to the render scheduler and alert engine.
type ChangeNotification struct {
	Instrument Instrument
	Category   Category
}
