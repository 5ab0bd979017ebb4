// Package typing implements the staged reveal of a bot reply: an optional
// fixed "composing" phase, a character-by-character disclosure paced by a
// delay policy, a blinking cursor, and a completion signal fired exactly
// once. All timers are owned by the engine and are torn down together, so
// no callback can fire against a consumer that has gone away.
package typing

import (
	"context"
	"sync"
	"time"
)

// Phase describes where a reveal currently is.
type Phase int

const (
	// PhaseThinking is the composing hold before any text is shown.
	PhaseThinking Phase = iota
	// PhaseRevealing means the prefix is growing.
	PhaseRevealing
	// PhaseDone means the full text is shown and the cursor is hidden.
	PhaseDone
)

// Frame is one observable state of the reveal.
type Frame struct {
	Phase  Phase
	Text   string
	Cursor bool
	Done   bool
}

// Options configure an Engine. Zero values fall back to defaults except
// Thinking, which is opt-in.
type Options struct {
	Policy         DelayPolicy
	Thinking       time.Duration
	Grace          time.Duration
	CursorInterval time.Duration
	Clock          Clock
}

const (
	DefaultBaseDelay      = 30 * time.Millisecond
	DefaultGrace          = 300 * time.Millisecond
	DefaultCursorInterval = 530 * time.Millisecond
	DefaultThinking       = 1200 * time.Millisecond
)

// Engine runs at most one reveal at a time. Starting a new text while a
// previous reveal is in flight discards the old run and its timers.
type Engine struct {
	opts Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine builds an engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.Policy == nil {
		opts.Policy = ConstantPolicy{Base: DefaultBaseDelay}
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.CursorInterval <= 0 {
		opts.CursorInterval = DefaultCursorInterval
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	return &Engine{opts: opts}
}

// Start begins revealing text and returns the frame stream for this run.
// Any in-flight run is cancelled first; its frame channel closes without a
// completion callback. onComplete fires exactly once, after the grace
// delay, and never after Stop has returned.
func (e *Engine) Start(ctx context.Context, text string, onComplete func()) <-chan Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		<-e.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	frames := make(chan Frame, 16)
	go e.run(runCtx, text, onComplete, frames, done)
	return frames
}

// Stop tears down the in-flight run, if any, and waits for its goroutine
// to exit. After Stop returns no frame is emitted and no completion
// callback fires.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *Engine) run(ctx context.Context, text string, onComplete func(), frames chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(frames)

	blink := e.opts.Clock.NewTicker(e.opts.CursorInterval)
	defer blink.Stop()

	cursor := true
	phase := PhaseThinking
	shown := ""

	emit := func(f Frame) bool {
		select {
		case frames <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// pause waits d while keeping the cursor blinking; false means the
	// run was torn down mid-wait.
	pause := func(d time.Duration) bool {
		hold := e.opts.Clock.NewTimer(d)
		defer hold.Stop()
		for {
			select {
			case <-ctx.Done():
				return false
			case <-blink.C():
				cursor = !cursor
				if !emit(Frame{Phase: phase, Text: shown, Cursor: cursor}) {
					return false
				}
			case <-hold.C():
				return true
			}
		}
	}

	if e.opts.Thinking > 0 {
		if !emit(Frame{Phase: PhaseThinking, Cursor: cursor}) {
			return
		}
		if !pause(e.opts.Thinking) {
			return
		}
	}

	phase = PhaseRevealing
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		shown = string(runes[:i+1])
		if !emit(Frame{Phase: PhaseRevealing, Text: shown, Cursor: cursor}) {
			return
		}
		if !pause(e.opts.Policy.Delay(runes[i])) {
			return
		}
	}

	// Completion grace: the full text is visible, the cursor keeps
	// blinking briefly, then hides for good.
	shown = text
	if !pause(e.opts.Grace) {
		return
	}
	if !emit(Frame{Phase: PhaseDone, Text: text, Cursor: false, Done: true}) {
		return
	}
	if onComplete != nil {
		onComplete()
	}
}
