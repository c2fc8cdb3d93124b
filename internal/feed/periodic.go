package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxInFlight lets one extra run overlap a slow one.
const DefaultMaxInFlight = 2

// TickerFunc returns a tick channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is a TickerFunc backed by time.Ticker.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Periodic runs a task on every tick between Start and Stop. A tick is skipped
// while MaxInFlight runs are still going. Stop does not abort running tasks;
// their context is detached from the one given to Start.
type Periodic struct {
	interval    time.Duration
	ticker      TickerFunc
	task        func(context.Context)
	maxInFlight int32
	log         *zap.Logger

	inFlight atomic.Int32
	skipped  atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPeriodic constructs a stopped Periodic. ticker defaults to RealTicker.
func NewPeriodic(interval time.Duration, ticker TickerFunc, task func(context.Context), log *zap.Logger) *Periodic {
	if ticker == nil {
		ticker = RealTicker
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Periodic{
		interval:    interval,
		ticker:      ticker,
		task:        task,
		maxInFlight: DefaultMaxInFlight,
		log:         log,
	}
}

// Start begins ticking. Calling Start on a running Periodic is a no-op.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	ticks, stop := p.ticker(p.interval)
	go p.loop(ctx, ticks, stop, p.done)
}

func (p *Periodic) loop(ctx context.Context, ticks <-chan time.Time, stop func(), done chan struct{}) {
	defer close(done)
	defer stop()
	taskCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if p.inFlight.Load() >= p.maxInFlight {
				p.skipped.Add(1)
				p.log.Debug("tick skipped, previous runs still in flight")
				continue
			}
			p.inFlight.Add(1)
			go func() {
				defer p.inFlight.Add(-1)
				p.task(taskCtx)
			}()
		}
	}
}

// Stop cancels ticking and waits for the tick loop to exit.
func (p *Periodic) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether Start was called without a matching Stop.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// InFlight reports the number of task runs still executing.
func (p *Periodic) InFlight() int { return int(p.inFlight.Load()) }

// Skipped reports how many ticks were dropped because of in-flight runs.
func (p *Periodic) Skipped() int64 { return p.skipped.Load() }
