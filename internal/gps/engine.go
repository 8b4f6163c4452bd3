package gps

import (
	"sync"
	"time"
)

// Engine owns the assembler and the fix state. Every mutation and read goes
// through one mutex, so a driver goroutine and any number of readers are safe.
type Engine struct {
	mu    sync.Mutex
	asm   *Assembler
	state fixState
	stats Stats
	now   time.Time

	onSentence func(string)
}

type EngineOption func(*Engine)

// WithSentenceHook registers fn to receive every dispatched GGA/RMC/GSV line.
// fn runs on the caller's goroutine after the engine lock is released.
func WithSentenceHook(fn func(line string)) EngineOption {
	return func(e *Engine) { e.onSentence = fn }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{asm: NewAssembler()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Feed hands newly available bytes to the engine. now must come from a
// monotonic clock; it stamps any sentence completed by p. It returns the
// number of sentences that updated the fix state.
func (e *Engine) Feed(now time.Time, p []byte) int {
	if e == nil || len(p) == 0 {
		return 0
	}

	var accepted []string
	e.mu.Lock()
	e.advance(now)
	e.stats.Bytes += uint64(len(p))
	e.asm.Write(p, func(line string) {
		if e.dispatch(e.now, line) {
			accepted = append(accepted, line)
		}
	})
	e.stats.Overflows = e.asm.overflows
	e.stats.ShortLines = e.asm.short
	e.state.recompute(e.now)
	e.mu.Unlock()

	if e.onSentence != nil {
		for _, line := range accepted {
			e.onSentence(line)
		}
	}
	return len(accepted)
}

// FeedLine is a convenience for callers that already framed a sentence.
func (e *Engine) FeedLine(now time.Time, line string) int {
	return e.Feed(now, []byte(line+"\n"))
}

// Tick runs the freshness monitor. Call it once per driver tick whether or
// not bytes arrived.
func (e *Engine) Tick(now time.Time) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.advance(now)
	e.state.recompute(e.now)
	e.mu.Unlock()
}

// HasValidFix reports fix quality and freshness as of the last Feed or Tick.
func (e *Engine) HasValidFix() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.recompute(e.now)
	return e.state.valid
}

// Snapshot copies the state as of the last Feed or Tick.
func (e *Engine) Snapshot() Snapshot {
	if e == nil {
		return Snapshot{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.recompute(e.now)
	out := e.state.snapshot(e.now)
	out.Stats = e.stats
	return out
}

// advance keeps the engine clock monotonic even if a caller passes an older time.
func (e *Engine) advance(now time.Time) {
	if now.After(e.now) {
		e.now = now
	}
}

func (e *Engine) dispatch(now time.Time, line string) bool {
	kind := classify(line)
	if kind == kindUnknown {
		e.stats.Ignored++
		return false
	}
	if !e.state.apply(now, kind, line) {
		e.stats.Malformed++
		return false
	}
	e.stats.Sentences++
	switch kind {
	case kindGGA:
		e.stats.GGA++
	case kindRMC:
		e.stats.RMC++
	case kindGSV:
		e.stats.GSV++
	}
	return true
}
