package library

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/pkg/logger"
)

// DefaultPollInterval is how often processing status is re-checked.
const DefaultPollInterval = 5 * time.Second

// Poller re-fetches the library on a fixed interval while at least one
// document is still processing. A tick is skipped when the previous
// fetch has not returned yet, so polls never overlap. Once nothing is
// processing, ticks become no-ops until Kick is called again.
type Poller struct {
	library  *Library
	interval time.Duration
	log      *logger.Logger
	onUpdate func()

	inFlight atomic.Bool
	active   atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller creates a poller for lib. onUpdate, if non-nil, runs after
// every completed fetch.
func NewPoller(lib *Library, interval time.Duration, log *logger.Logger, onUpdate func()) *Poller {
	return &Poller{
		library:  lib,
		interval: interval,
		log:      log,
		onUpdate: onUpdate,
	}
}

// Start launches the poll loop. It runs until Stop or ctx cancellation.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.active.Store(p.library.Processing())

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop halts the poll loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Kick marks processing as active again, e.g. after a new upload, so
// the next tick fetches.
func (p *Poller) Kick() {
	p.active.Store(true)
}

// Active reports whether ticks currently do work.
func (p *Poller) Active() bool {
	return p.active.Load()
}

func (p *Poller) tick(ctx context.Context) {
	if !p.active.Load() {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	if err := p.library.Refresh(ctx); err != nil {
		p.log.Warn("status poll failed", zap.Error(err))
		return
	}
	p.active.Store(p.library.Processing())
	if p.onUpdate != nil {
		p.onUpdate()
	}
}
