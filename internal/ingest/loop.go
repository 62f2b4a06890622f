package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/gateway"
	"github.com/tytsxai/longbridge-terminal/internal/infra"
	"github.com/tytsxai/longbridge-terminal/internal/store"

	"github.com/shopspring/decimal"
)

// FrameSource abstracts the push stream: a channel of raw frames plus
// the fatal error once the channel closes.
type FrameSource interface {
	Frames() <-chan []byte
	Err() error
}

// QuoteSink receives quote changes inline, in application order.
// Implemented by the alert engine.
type QuoteSink interface {
	OnQuote(inst domain.Instrument, q domain.Quote)
}

// Loop is the single consumer of the push stream. It decodes each
// frame, applies it to the market store and triggers alert evaluation.
// A malformed frame is logged and skipped; only shutdown or fatal
// stream loss terminates the loop.
type Loop struct {
	source FrameSource
	market *store.MarketStore
	alerts QuoteSink
}

// NewLoop creates an ingestion loop. alerts may be nil.
func NewLoop(source FrameSource, market *store.MarketStore, alerts QuoteSink) *Loop {
	return &Loop{
		source: source,
		market: market,
		alerts: alerts,
	}
}

// Run consumes the stream until ctx is canceled (returns nil) or the
// frame channel closes on fatal stream loss (returns the stream error).
// Must be run in a single goroutine: per-instrument per-category
// ordering is receipt order.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Ingestion loop started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Ingestion loop stopping")
			return nil
		case raw, ok := <-l.source.Frames():
			if !ok {
				err := l.source.Err()
				if err == nil {
					// Channel closed by an orderly disconnect.
					return nil
				}
				slog.Error("Push stream lost", slog.Any("error", err))
				return fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
			}
			l.handleFrame(raw)
		}
	}
}

func (l *Loop) handleFrame(raw []byte) {
	var frame gateway.PushFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		l.skip("envelope", err)
		return
	}

	inst, err := domain.ParseInstrument(frame.Symbol)
	if err != nil {
		l.skip("symbol", fmt.Errorf("%w: %q", err, frame.Symbol))
		return
	}
	ts := time.UnixMilli(frame.Timestamp)

	switch frame.Type {
	case "quote":
		l.applyQuote(inst, frame.Data, ts)
	case "depth":
		l.applyDepth(inst, frame.Data, ts)
	case "trade":
		l.applyTrade(inst, frame.Data, ts)
	case "candle":
		l.applyCandle(inst, frame.Data, ts)
	default:
		l.skip("type", fmt.Errorf("unknown frame type %q", frame.Type))
	}
}

func (l *Loop) applyQuote(inst domain.Instrument, data json.RawMessage, ts time.Time) {
	var p gateway.PushQuote
	if err := json.Unmarshal(data, &p); err != nil {
		l.skip("quote", err)
		return
	}

	lastDone, err := decimal.NewFromString(p.LastDone)
	if err != nil {
		l.skip("quote", err)
		return
	}
	open, _ := decimal.NewFromString(p.Open)
	high, _ := decimal.NewFromString(p.High)
	low, _ := decimal.NewFromString(p.Low)
	turnover, _ := decimal.NewFromString(p.Turnover)

	l.market.UpdateQuote(inst, domain.Quote{
		LastDone:  lastDone,
		Open:      open,
		High:      high,
		Low:       low,
		Volume:    p.Volume,
		Turnover:  turnover,
		Timestamp: ts,
	})
	infra.GlobalMetrics.RecordEventApplied()

	// Rule evaluation runs inline so alerts observe every quote in
	// order. Re-read the stored copy: the store backfills prev_close.
	if l.alerts != nil {
		if q, ok := l.market.Quote(inst); ok {
			l.alerts.OnQuote(inst, q)
		}
	}
}

func (l *Loop) applyDepth(inst domain.Instrument, data json.RawMessage, ts time.Time) {
	var p gateway.PushDepth
	if err := json.Unmarshal(data, &p); err != nil {
		l.skip("depth", err)
		return
	}

	depth := domain.Depth{
		Asks:      convertLevels(p.Asks),
		Bids:      convertLevels(p.Bids),
		Timestamp: ts,
	}
	l.market.UpdateDepth(inst, depth)
	infra.GlobalMetrics.RecordEventApplied()
}

func (l *Loop) applyTrade(inst domain.Instrument, data json.RawMessage, ts time.Time) {
	var p gateway.PushTrade
	if err := json.Unmarshal(data, &p); err != nil {
		l.skip("trade", err)
		return
	}

	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		l.skip("trade", err)
		return
	}

	l.market.AppendTrade(inst, domain.Trade{
		Price:     price,
		Volume:    p.Volume,
		Direction: p.Direction,
		Timestamp: ts,
	})
	infra.GlobalMetrics.RecordEventApplied()
}

func (l *Loop) applyCandle(inst domain.Instrument, data json.RawMessage, ts time.Time) {
	var p gateway.PushCandle
	if err := json.Unmarshal(data, &p); err != nil {
		l.skip("candle", err)
		return
	}

	period := domain.CandlePeriod(p.Period)
	if !period.Valid() {
		l.skip("candle", fmt.Errorf("unknown period %q", p.Period))
		return
	}

	open, err := decimal.NewFromString(p.Open)
	if err != nil {
		l.skip("candle", err)
		return
	}
	high, _ := decimal.NewFromString(p.High)
	low, _ := decimal.NewFromString(p.Low)
	cls, err := decimal.NewFromString(p.Close)
	if err != nil {
		l.skip("candle", err)
		return
	}

	bar := domain.Candle{
		Open: open, High: high, Low: low, Close: cls,
		Volume:    p.Volume,
		Timestamp: ts,
	}

	series := domain.CandleSeries{Period: period, Timestamp: ts}
	if snap, ok := l.market.Get(inst); ok && snap.Candles.Period == period {
		series.Candles = snap.Candles.Candles
	}
	// A push bar either extends the series or revises the open bar.
	if n := len(series.Candles); n > 0 && series.Candles[n-1].Timestamp.Equal(bar.Timestamp) {
		series.Candles[n-1] = bar
	} else {
		series.Candles = append(series.Candles, bar)
	}

	l.market.UpdateCandles(inst, series)
	infra.GlobalMetrics.RecordEventApplied()
}

func convertLevels(levels []gateway.PushDepthLevel) []domain.DepthLevel {
	out := make([]domain.DepthLevel, 0, len(levels))
	for _, lv := range levels {
		price, err := decimal.NewFromString(lv.Price)
		if err != nil {
			continue
		}
		out = append(out, domain.DepthLevel{
			Position:   lv.Position,
			Price:      price,
			Volume:     lv.Volume,
			OrderCount: lv.OrderCount,
		})
	}
	return out
}

func (l *Loop) skip(source string, err error) {
	infra.GlobalMetrics.RecordDecodeFailure()
	slog.Warn("Skipping malformed push frame",
		slog.String("source", source), slog.Any("error", err))
}
