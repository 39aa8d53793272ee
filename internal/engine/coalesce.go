package engine

import (
	"sync"
	"time"
)

// Coalescer collapses bursts of triggers into at most one in-flight
// execution plus one trailing re-run. Triggers arriving while an execution
// is in flight do not run; they set a dirty flag, and once the in-flight
// execution completes a single re-run is scheduled after the spacing
// interval to capture whatever state accumulated during the burst.
//
// The before hook fires synchronously on every trigger, including skipped
// ones, so observers see pending state immediately.
type Coalescer struct {
	spacing time.Duration
	before  func()
	run     func(done func())

	mu       sync.Mutex
	inFlight bool
	dirty    bool
}

// NewCoalescer builds a dispatcher around run. run receives a done callback
// it must invoke exactly once when the execution reaches a terminal
// outcome; the trailing re-run is scheduled from there. A nil before hook
// is allowed.
func NewCoalescer(spacing time.Duration, before func(), run func(done func())) *Coalescer {
	return &Coalescer{
		spacing: spacing,
		before:  before,
		run:     run,
	}
}

// Trigger requests an execution. The first trigger of a window starts run
// on a new goroutine; triggers during the window only mark it dirty.
func (c *Coalescer) Trigger() {
	if c.before != nil {
		c.before()
	}

	c.mu.Lock()
	if c.inFlight {
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	go c.run(c.finish)
}

// Dirty reports whether triggers were skipped since the current execution
// started, meaning a trailing re-run will follow.
func (c *Coalescer) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// finish closes one execution. If triggers were skipped during it, a single
// trailing execution is scheduled after the spacing interval and the window
// stays open; otherwise the window closes.
func (c *Coalescer) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		c.inFlight = false
		return
	}

	c.dirty = false
	time.AfterFunc(c.spacing, func() {
		c.run(c.finish)
	})
}
