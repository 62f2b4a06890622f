package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"
)

// State is the scheduler's position in the redraw cycle
type State uint8

const (
	StateIdle State = iota
	StateDirty
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateRendering:
		return "rendering"
	default:
		return "idle"
	}
}

// Renderer is the drawing layer. It is a pure consumer: it reads the
// market store during Render and performs no mutation. The concrete
// widget code lives outside this module.
type Renderer interface {
	Render(regions Region)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(regions Region)

func (f RendererFunc) Render(regions Region) { f(regions) }

// NoteSource is the change-notification feed. Overflowed reports (and
// clears) whether the source lost a notification since the last call;
// the scheduler recovers by treating every region as dirty.
// Implemented by the market store's Subscription.
type NoteSource interface {
	Chan() <-chan domain.ChangeNotification
	Overflowed() bool
}

// Scheduler coalesces change notifications and input events into dirty
// regions and triggers at most one redraw per tick interval. A burst of
// N updates inside one interval produces exactly one redraw covering
// the union of their regions; a clean tick draws nothing.
type Scheduler struct {
	notes    NoteSource
	input    chan Region
	renderer Renderer

	minInterval time.Duration

	mu         sync.Mutex
	state      State
	dirty      Region
	lastRender time.Time
}

// NewScheduler creates a scheduler consuming the given notification
// channel. minInterval bounds the redraw frequency (16ms default).
func NewScheduler(notes NoteSource, renderer Renderer, minInterval time.Duration) *Scheduler {
	if minInterval <= 0 {
		minInterval = 16 * time.Millisecond
	}
	return &Scheduler{
		notes:       notes,
		input:       make(chan Region, 64),
		renderer:    renderer,
		minInterval: minInterval,
		state:       StateIdle,
	}
}

// MarkInput records a user-input event. Input invalidates the full
// region set and is drained ahead of data updates.
func (s *Scheduler) MarkInput() {
	s.Mark(RegionAll)
}

// Mark queues explicit regions for the next redraw (e.g. the status
// bar on a connection state change).
func (s *Scheduler) Mark(regions Region) {
	select {
	case s.input <- regions:
	default:
		// Queue full: fold into the dirty set directly so nothing is
		// ever missed.
		s.markDirty(regions)
	}
}

// State returns the current cycle state (for the status bar and tests).
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DirtyRegions returns the regions currently pending redraw.
func (s *Scheduler) DirtyRegions() Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Run drives the tick loop until ctx is canceled. Sources are drained
// under a fixed priority: user input first, then data notifications,
// then the periodic tick.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Render scheduler started", slog.Duration("interval", s.minInterval))

	ticker := time.NewTicker(s.minInterval)
	defer ticker.Stop()

	for {
		// Priority drain: input ahead of data updates.
		select {
		case regions := <-s.input:
			s.markDirty(regions)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			slog.Info("Render scheduler stopping")
			return
		case regions := <-s.input:
			s.markDirty(regions)
		case note, ok := <-s.notes.Chan():
			if !ok {
				return
			}
			s.markDirty(RegionsFor(note.Category))
		case <-ticker.C:
			// Notifications lost while a draw was in progress have no
			// region of record; mark everything so nothing stays stale.
			if s.notes.Overflowed() {
				s.markDirty(RegionAll)
			}
			s.flush()
		}
	}
}

func (s *Scheduler) markDirty(regions Region) {
	if regions.Empty() {
		return
	}
	s.mu.Lock()
	s.dirty = s.dirty.Union(regions)
	if s.state == StateIdle {
		s.state = StateDirty
	}
	s.mu.Unlock()
}

// flush performs one redraw pass when something is dirty and the
// minimum interval has elapsed. The dirty set is cleared atomically
// with the transition to Rendering, so updates arriving mid-draw are
// kept for the next cycle.
func (s *Scheduler) flush() {
	s.mu.Lock()
	if s.dirty.Empty() {
		s.mu.Unlock()
		infra.GlobalMetrics.RecordRedrawSkipped()
		return
	}
	if elapsed := time.Since(s.lastRender); elapsed < s.minInterval {
		s.mu.Unlock()
		return
	}
	regions := s.dirty
	s.dirty = RegionNone
	s.state = StateRendering
	s.mu.Unlock()

	// Render outside the lock: the drawing layer reads the market
	// store as of this moment, never a cached copy.
	s.renderer.Render(regions)
	infra.GlobalMetrics.RecordRedraw()

	s.mu.Lock()
	s.lastRender = time.Now()
	if s.dirty.Empty() {
		s.state = StateIdle
	} else {
		s.state = StateDirty
	}
	s.mu.Unlock()
}
