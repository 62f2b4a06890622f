package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind enumerates the alert predicate kinds
type RuleKind string

const (
	PriceAbove         RuleKind = "price_above"
	PriceBelow         RuleKind = "price_below"
	ChangePercentAbove RuleKind = "change_percent_above"
	ChangePercentBelow RuleKind = "change_percent_below"
	VolumeAbove        RuleKind = "volume_above"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case PriceAbove, PriceBelow, ChangePercentAbove, ChangePercentBelow, VolumeAbove:
		return true
	}
	return false
}

// AlertRule is a durable user-defined threshold rule.
// Timestamps are stored as Unix seconds so the rules file stays diffable.
type AlertRule struct {
	ID              string          `json:"id"`
	Instrument      Instrument      `json:"instrument"`
	Kind            RuleKind        `json:"kind"`
	Threshold       decimal.Decimal `json:"threshold"`
	Enabled         bool            `json:"enabled"`
	CooldownSeconds int64           `json:"cooldown_seconds"`
	LastFiredUnix   int64           `json:"last_fired_unix,omitempty"`
	CreatedUnix     int64           `json:"created_unix"`
	UpdatedUnix     int64           `json:"updated_unix"`
}

// Satisfied evaluates the rule predicate against a quote.
// Rules requiring a previous close return false until one is known.
func (r *AlertRule) Satisfied(q Quote) bool {
	switch r.Kind {
	case PriceAbove:
		return q.LastDone.GreaterThanOrEqual(r.Threshold)
	case PriceBelow:
		return q.LastDone.LessThanOrEqual(r.Threshold)
	case ChangePercentAbove:
		if !q.PrevClose.IsPositive() {
			return false
		}
		return q.ChangePercent().GreaterThanOrEqual(r.Threshold)
	case ChangePercentBelow:
		if !q.PrevClose.IsPositive() {
			return false
		}
		return q.ChangePercent().LessThanOrEqual(r.Threshold)
	case VolumeAbove:
		return decimal.NewFromInt(q.Volume).GreaterThanOrEqual(r.Threshold)
	default:
		return false
	}
}

// InCooldown reports whether the rule fired within its cooldown window.
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastFiredUnix == 0 {
		return false
	}
	return now.Unix()-r.LastFiredUnix < r.CooldownSeconds
}

// TriggerValue returns the quote field the rule compares against,
// recorded on the alert event for audit.
func (r *AlertRule) TriggerValue(q Quote) decimal.Decimal {
	switch r.Kind {
	case ChangePercentAbove, ChangePercentBelow:
		return q.ChangePercent()
	case VolumeAbove:
		return decimal.NewFromInt(q.Volume)
	default:
		return q.LastDone
	}
}

// AlertEvent records one rule firing. Events are append-only: created
// once, surfaced to the UI once, and written to the durable event log.
type AlertEvent struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"rule_id"`
	Instrument Instrument      `json:"instrument"`
	Kind       RuleKind        `json:"kind"`
	Threshold  decimal.Decimal `json:"threshold"`
	Value      decimal.Decimal `json:"value"`
	FiredAt    time.Time       `json:"fired_at"`
}
