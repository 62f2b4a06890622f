package alert

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const eventBufferSize = 256

// EventLog is the durable append-only sink for fired alerts.
// Implemented by the sqlite storage layer.
type EventLog interface {
	AppendAlertEvent(ev *domain.AlertEvent) error
}

// Engine owns the alert rule set. Rules are indexed per instrument so
// evaluating one quote costs O(rules for that instrument). A rule fires
// on the false-to-true transition of its predicate, gated by a
// per-rule cooldown. Mutations persist synchronously before they are
// acknowledged.
type Engine struct {
	mu        sync.Mutex
	rules     map[string]*domain.AlertRule
	index     map[domain.Instrument][]*domain.AlertRule // enabled rules only
	satisfied map[string]bool                           // previous predicate value

	file     *RulesFile
	log      EventLog
	events   chan domain.AlertEvent
	cooldown int64

	now func() time.Time // injectable for tests
}

// NewEngine creates an engine persisting to file, logging fired events
// to log (may be nil). cooldownSeconds is the default for new rules.
func NewEngine(file *RulesFile, log EventLog, cooldownSeconds int64) *Engine {
	if cooldownSeconds <= 0 {
		cooldownSeconds = 30
	}
	return &Engine{
		rules:     make(map[string]*domain.AlertRule),
		index:     make(map[domain.Instrument][]*domain.AlertRule),
		satisfied: make(map[string]bool),
		file:      file,
		log:       log,
		events:    make(chan domain.AlertEvent, eventBufferSize),
		cooldown:  cooldownSeconds,
		now:       time.Now,
	}
}

// Load reads the persisted rule set. Corrupt storage is not fatal: the
// rules file backs it up and yields an empty set.
func (e *Engine) Load() error {
	rules, err := e.file.Load()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range rules {
		r := rules[i]
		e.rules[r.ID] = &r
	}
	e.rebuildIndexLocked()
	slog.Info("Alert rules loaded", slog.Int("count", len(e.rules)))
	return nil
}

// Events returns the channel on which fired alerts are surfaced to the
// UI, each exactly once.
func (e *Engine) Events() <-chan domain.AlertEvent {
	return e.events
}

// Rules returns a copy of all rules, enabled or not.
func (e *Engine) Rules() []domain.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, *r)
	}
	return out
}

// RulesFor returns a copy of the enabled rules for one instrument.
func (e *Engine) RulesFor(inst domain.Instrument) []domain.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	indexed := e.index[inst]
	out := make([]domain.AlertRule, 0, len(indexed))
	for _, r := range indexed {
		out = append(out, *r)
	}
	return out
}

// Create adds a new enabled rule and persists it before returning.
func (e *Engine) Create(inst domain.Instrument, kind domain.RuleKind, threshold decimal.Decimal) (domain.AlertRule, error) {
	if !kind.Valid() {
		return domain.AlertRule{}, fmt.Errorf("create rule: unknown kind %q", kind)
	}

	now := e.now().Unix()
	rule := domain.AlertRule{
		ID:              uuid.NewString(),
		Instrument:      inst,
		Kind:            kind,
		Threshold:       threshold,
		Enabled:         true,
		CooldownSeconds: e.cooldown,
		CreatedUnix:     now,
		UpdatedUnix:     now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[rule.ID] = &rule
	e.rebuildIndexLocked()

	if err := e.saveLocked(); err != nil {
		delete(e.rules, rule.ID)
		e.rebuildIndexLocked()
		return domain.AlertRule{}, err
	}
	return rule, nil
}

// Enable turns a rule on. Takes effect for the next evaluation.
func (e *Engine) Enable(id string) error {
	return e.setEnabled(id, true)
}

// Disable turns a rule off without deleting it.
func (e *Engine) Disable(id string) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return domain.ErrRuleNotFound
	}
	if rule.Enabled == enabled {
		return nil
	}

	prev := *rule
	rule.Enabled = enabled
	rule.UpdatedUnix = e.now().Unix()
	e.rebuildIndexLocked()
	// Re-arm the edge detector so re-enabling an already-satisfied rule
	// fires once.
	if enabled {
		e.satisfied[id] = false
	}

	if err := e.saveLocked(); err != nil {
		*rule = prev
		e.rebuildIndexLocked()
		return err
	}
	return nil
}

// Delete removes a rule permanently.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return domain.ErrRuleNotFound
	}

	delete(e.rules, id)
	delete(e.satisfied, id)
	e.rebuildIndexLocked()

	if err := e.saveLocked(); err != nil {
		e.rules[id] = rule
		e.rebuildIndexLocked()
		return err
	}
	return nil
}

// OnQuote evaluates every enabled rule for the instrument against the
// new quote. Called inline by the ingestion loop, one quote at a time.
func (e *Engine) OnQuote(inst domain.Instrument, q domain.Quote) {
	var fired []domain.AlertEvent
	mutated := false

	e.mu.Lock()
	now := e.now()
	for _, rule := range e.index[inst] {
		sat := rule.Satisfied(q)
		wasSat := e.satisfied[rule.ID]
		e.satisfied[rule.ID] = sat

		if !sat || wasSat {
			continue
		}
		if rule.InCooldown(now) {
			continue
		}

		rule.LastFiredUnix = now.Unix()
		rule.UpdatedUnix = now.Unix()
		mutated = true

		fired = append(fired, domain.AlertEvent{
			ID:         uuid.NewString(),
			RuleID:     rule.ID,
			Instrument: inst,
			Kind:       rule.Kind,
			Threshold:  rule.Threshold,
			Value:      rule.TriggerValue(q),
			FiredAt:    now,
		})
	}
	if mutated {
		if err := e.saveLocked(); err != nil {
			slog.Warn("Failed to persist rule state after firing", slog.Any("error", err))
		}
	}
	e.mu.Unlock()

	for _, ev := range fired {
		e.emit(ev)
	}
}

func (e *Engine) emit(ev domain.AlertEvent) {
	infra.GlobalMetrics.RecordAlertFired()
	slog.Warn("Alert triggered",
		slog.String("rule", ev.RuleID),
		slog.String("instrument", ev.Instrument.String()),
		slog.String("kind", string(ev.Kind)),
		slog.String("threshold", ev.Threshold.String()),
		slog.String("value", ev.Value.String()))

	if e.log != nil {
		if err := e.log.AppendAlertEvent(&ev); err != nil {
			slog.Warn("Failed to append alert event log", slog.Any("error", err))
		}
	}

	select {
	case e.events <- ev:
	default:
		slog.Warn("Alert event channel full, UI notification dropped",
			slog.String("rule", ev.RuleID))
	}
}

// rebuildIndexLocked recomputes the per-instrument enabled-rule index.
// Must be called with the mutex held.
func (e *Engine) rebuildIndexLocked() {
	index := make(map[domain.Instrument][]*domain.AlertRule)
	for _, r := range e.rules {
		if r.Enabled {
			index[r.Instrument] = append(index[r.Instrument], r)
		}
	}
	e.index = index
}

// saveLocked persists the current rule set. Must be called with the
// mutex held.
func (e *Engine) saveLocked() error {
	rules := make([]domain.AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, *r)
	}
	return e.file.Save(rules)
}
