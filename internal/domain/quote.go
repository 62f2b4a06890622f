package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents the latest trade data for an instrument
type Quote struct {
	LastDone  decimal.Decimal `json:"last_done"`
	PrevClose decimal.Decimal `json:"prev_close"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    int64           `json:"volume"`   // cumulative session volume
	Turnover  decimal.Decimal `json:"turnover"` // cumulative session turnover
	Timestamp time.Time       `json:"timestamp"`
}

// ChangePercent returns 100 * (LastDone - PrevClose) / PrevClose.
// Returns zero when PrevClose is unknown or non-positive.
func (q Quote) ChangePercent() decimal.Decimal {
	if !q.PrevClose.IsPositive() {
		return decimal.Zero
	}
	return q.LastDone.Sub(q.PrevClose).Div(q.PrevClose).Mul(decimal.NewFromInt(100))
}

// Change returns the absolute price change versus the previous close.
func (q Quote) Change() decimal.Decimal {
	return q.LastDone.Sub(q.PrevClose)
}

// DepthLevel is one price level of the order book
type DepthLevel struct {
	Position   int             `json:"position"` // 1-based, best price first
	Price      decimal.Decimal `json:"price"`
	Volume     int64           `json:"volume"`
	OrderCount int64           `json:"order_count"`
}

// Depth holds both sides of the order book
type Depth struct {
	Asks      []DepthLevel `json:"asks"`
	Bids      []DepthLevel `json:"bids"`
	Timestamp time.Time    `json:"timestamp"`
}

// Candle is a single OHLCV bar
type Candle struct {
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// CandleSeries is the most recent fragment of bars for one period
type CandleSeries struct {
	Period    CandlePeriod `json:"period"`
	Candles   []Candle     `json:"candles"`
	Timestamp time.Time    `json:"timestamp"`
}

// Trade is one executed trade from the trades feed
type Trade struct {
	Price     decimal.Decimal `json:"price"`
	Volume    int64           `json:"volume"`
	Direction string          `json:"direction"` // "buy", "sell", "neutral"
	Timestamp time.Time       `json:"timestamp"`
}
