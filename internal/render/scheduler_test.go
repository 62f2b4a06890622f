package render

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

// chanSource adapts a plain channel to NoteSource, with a settable
// overflow flag mirroring the market store's subscription.
type chanSource struct {
	ch       chan domain.ChangeNotification
	overflow atomic.Bool
}

func newChanSource(buffer int) *chanSource {
	return &chanSource{ch: make(chan domain.ChangeNotification, buffer)}
}

func (c *chanSource) Chan() <-chan domain.ChangeNotification { return c.ch }
func (c *chanSource) Overflowed() bool                       { return c.overflow.Swap(false) }

// recordingRenderer captures every render pass
type recordingRenderer struct {
	mu     sync.Mutex
	passes []Region
}

func (r *recordingRenderer) Render(regions Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, regions)
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

func (r *recordingRenderer) pass(i int) Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes[i]
}

func (r *recordingRenderer) union() Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := RegionNone
	for _, p := range r.passes {
		u = u.Union(p)
	}
	return u
}

func TestScheduler_CoalescesBurst(t *testing.T) {
	src := newChanSource(64)
	renderer := &recordingRenderer{}
	s := NewScheduler(src, renderer, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// A burst of notifications inside one tick interval
	for i := 0; i < 10; i++ {
		src.ch <- domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote}
	}
	src.ch <- domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryDepth}

	time.Sleep(100 * time.Millisecond)

	if got := renderer.count(); got != 1 {
		t.Fatalf("expected exactly 1 redraw for the burst, got %d", got)
	}
	// The single pass covers the union of the burst's regions
	union := RegionsFor(domain.CategoryQuote) | RegionsFor(domain.CategoryDepth)
	if got := renderer.pass(0); got != union {
		t.Errorf("expected regions %s, got %s", union, got)
	}
}

func TestScheduler_NoRedrawWhenClean(t *testing.T) {
	src := newChanSource(0)
	renderer := &recordingRenderer{}
	s := NewScheduler(src, renderer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	time.Sleep(80 * time.Millisecond)

	if got := renderer.count(); got != 0 {
		t.Errorf("expected no redraw without notifications, got %d", got)
	}
}

func TestScheduler_InputMarksEverything(t *testing.T) {
	src := newChanSource(0)
	renderer := &recordingRenderer{}
	s := NewScheduler(src, renderer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.MarkInput()
	time.Sleep(80 * time.Millisecond)

	if got := renderer.count(); got == 0 {
		t.Fatal("expected a redraw after input")
	}
	if got := renderer.pass(0); got != RegionAll {
		t.Errorf("input should dirty everything, got %s", got)
	}
}

func TestScheduler_UpdatesDuringRenderKeptForNextCycle(t *testing.T) {
	src := newChanSource(8)
	renderer := &recordingRenderer{}
	s := NewScheduler(src, renderer, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	src.ch <- domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote}
	time.Sleep(60 * time.Millisecond)
	src.ch <- domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryDepth}
	time.Sleep(60 * time.Millisecond)

	if got := renderer.count(); got != 2 {
		t.Fatalf("expected 2 redraws for separated updates, got %d", got)
	}
	if got := renderer.pass(1); got != RegionsFor(domain.CategoryDepth) {
		t.Errorf("second pass should cover only the depth regions, got %s", got)
	}
}

func TestScheduler_OverflowedSourceDirtiesEverything(t *testing.T) {
	// A notification lost upstream has no region of record. The source
	// reports the loss and the scheduler must redraw every region, so a
	// lost category that never recurs is still rendered.
	src := newChanSource(8)
	renderer := &recordingRenderer{}
	s := NewScheduler(src, renderer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	src.ch <- domain.ChangeNotification{Instrument: "700.HK", Category: domain.CategoryQuote}
	src.overflow.Store(true) // a depth note was dropped upstream

	time.Sleep(80 * time.Millisecond)

	if renderer.count() == 0 {
		t.Fatal("expected at least one redraw")
	}
	if got := renderer.union(); !got.Has(RegionDepth) {
		t.Errorf("lost notification's region never rendered, got %s", got)
	}
	if got := renderer.union(); got != RegionAll {
		t.Errorf("overflow should force a full redraw, got %s", got)
	}
}

func TestScheduler_StateTransitions(t *testing.T) {
	src := newChanSource(0)
	s := NewScheduler(src, RendererFunc(func(Region) {}), time.Hour)

	if s.State() != StateIdle {
		t.Errorf("fresh scheduler should be idle, got %s", s.State())
	}

	s.markDirty(RegionList)
	if s.State() != StateDirty {
		t.Errorf("expected dirty after mark, got %s", s.State())
	}
	if !s.DirtyRegions().Has(RegionList) {
		t.Error("marked region missing from dirty set")
	}

	s.flush()
	if s.State() != StateIdle {
		t.Errorf("expected idle after flush, got %s", s.State())
	}
	if !s.DirtyRegions().Empty() {
		t.Error("dirty set should be cleared by flush")
	}
}
