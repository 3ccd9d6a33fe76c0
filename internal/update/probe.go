package update

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Probe reports whether an update exists without downloading it. Checks run
// synchronously on the caller's goroutine and QuitAndInstall does nothing.
type Probe struct {
	ctx     context.Context
	checker Checker

	mu        sync.Mutex
	listeners []Listener
}

// NewProbe creates a Probe whose checks are bound to ctx.
func NewProbe(ctx context.Context, checker Checker) *Probe {
	return &Probe{ctx: ctx, checker: checker}
}

// Subscribe registers a listener for lifecycle events.
func (p *Probe) Subscribe(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// CheckForUpdates runs one check and returns after its final event.
func (p *Probe) CheckForUpdates() {
	p.each(func(l Listener) { l.OnCheckingForUpdate() })

	info, err := p.checker.CheckForUpdate(p.ctx)
	switch {
	case err != nil:
		err = fmt.Errorf("check for update: %w", err)
		p.each(func(l Listener) { l.OnError(err) })
	case info.Available:
		p.each(func(l Listener) { l.OnUpdateAvailable(info) })
	default:
		p.each(func(l Listener) { l.OnUpdateNotAvailable(info) })
	}
}

// QuitAndInstall is a no-op; a probe never stages anything.
func (p *Probe) QuitAndInstall() {}

func (p *Probe) each(fn func(Listener)) {
	p.mu.Lock()
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}
