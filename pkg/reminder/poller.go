// Package reminder fires due reminders for notes and todos.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mklimuk/skyadmin/pkg/notify"
)

// DefaultInterval is the delay between two checks.
const DefaultInterval = time.Minute

// State is the lifecycle state of a Poller.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options tune a Poller.
type Options struct {
	// Interval is the delay between the end of one check and the start of
	// the next. Defaults to DefaultInterval.
	Interval time.Duration
	// MarkUndelivered marks a due reminder as fired even when the
	// notification could not be delivered. When false the reminder stays
	// pending and is retried on the next check.
	MarkUndelivered bool
	Logger          *slog.Logger
	Metrics         *Metrics
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Poller periodically fires the due reminders of one Source.
type Poller struct {
	source          Source
	notifier        notify.Notifier
	interval        time.Duration
	markUndelivered bool
	logger          *slog.Logger
	metrics         *Metrics
	now             func() time.Time

	runMu sync.Mutex
	state atomic.Int32

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewPoller creates a poller for source that notifies through notifier.
func NewPoller(source Source, notifier notify.Notifier, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		source:          source,
		notifier:        notifier,
		interval:        opts.Interval,
		markUndelivered: opts.MarkUndelivered,
		logger:          opts.Logger.With("kind", source.Kind()),
		metrics:         opts.Metrics,
		now:             opts.Now,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Kind returns the kind of the underlying source.
func (p *Poller) Kind() string { return p.source.Kind() }

// Interval returns the delay between checks.
func (p *Poller) Interval() time.Duration { return p.interval }

// State returns the current lifecycle state.
func (p *Poller) State() State { return State(p.state.Load()) }

// Start runs one check right away and then keeps checking every interval
// until Stop is called. It does not block. Calling Start more than once,
// or after Stop, has no effect.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("reminder poller started", "interval", p.interval)
		go p.loop()
	})
}

// Stop cancels future checks. A check already in progress is not
// interrupted and Stop does not wait for it; use Done for that.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.state.Store(int32(StateStopped))
		close(p.stop)
		// Never started: nothing will close done.
		p.startOnce.Do(func() { close(p.done) })
	})
}

// Done is closed once the polling loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) loop() {
	defer close(p.done)

	p.Tick(context.Background())

	// Fixed delay: the next check is scheduled after the previous one
	// completes, so checks never overlap.
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			p.logger.Info("reminder poller stopped")
			return
		case <-timer.C:
			// Both cases may be ready at once; Stop wins.
			select {
			case <-p.stop:
				p.logger.Info("reminder poller stopped")
				return
			default:
			}
			p.Tick(context.Background())
			timer.Reset(p.interval)
		}
	}
}

// Tick performs one check. Faults are logged and swallowed.
func (p *Poller) Tick(ctx context.Context) {
	_, _ = p.run(ctx)
}

// CheckNow performs one check and reports what happened. Unlike Tick, a
// failure to load pending reminders is returned to the caller.
func (p *Poller) CheckNow(ctx context.Context) (*Report, error) {
	return p.run(ctx)
}

// Pending lists the unfired reminders without firing anything.
func (p *Poller) Pending(ctx context.Context) ([]Item, error) {
	items, err := p.source.FetchUnfired(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending %s reminders: %w", p.source.Kind(), err)
	}
	return items, nil
}

func (p *Poller) run(ctx context.Context) (*Report, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning))
	defer p.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	start := time.Now()
	now := p.now()
	report := newReport(uuid.NewString(), p.source.Kind(), now)
	logger := p.logger.With("run_id", report.RunID)

	items, err := p.source.FetchUnfired(ctx)
	if err != nil {
		logger.Error("failed to load pending reminders", "error", err)
		p.metrics.observeTick(p.source.Kind(), "query_error", time.Since(start))
		return nil, err
	}
	report.Pending = items

	logger.Debug("checking reminders", "now", report.NowDate+" "+report.NowTime, "pending", len(items))

	for _, item := range items {
		due, err := Evaluate(item, now)
		if err != nil {
			logger.Warn("skipping malformed reminder", "id", item.ID, "error", err)
			report.Invalid = append(report.Invalid, InvalidItem{Item: item, Error: err.Error()})
			continue
		}
		if !due {
			continue
		}
		p.fire(ctx, logger, item, report)
	}

	p.metrics.observeTick(p.source.Kind(), "ok", time.Since(start))
	if len(report.Fired) > 0 {
		logger.Info("reminders fired", "count", len(report.Fired))
	}
	return report, nil
}

// fire notifies then marks one due item. Failures only affect this item.
func (p *Poller) fire(ctx context.Context, logger *slog.Logger, item Item, report *Report) {
	logger = logger.With("id", item.ID)

	if !p.deliver(ctx, logger, item) {
		report.Undelivered = append(report.Undelivered, item)
		if !p.markUndelivered {
			return
		}
	}

	if err := p.source.MarkFired(ctx, item.ID); err != nil {
		// The item stays pending and is notified again next time.
		logger.Error("failed to mark reminder fired", "error", err)
		p.metrics.incMarkFailure(p.source.Kind())
		report.MarkFailed = append(report.MarkFailed, item)
		return
	}
	p.metrics.incFired(p.source.Kind())
	report.Fired = append(report.Fired, item)
}

func (p *Poller) deliver(ctx context.Context, logger *slog.Logger, item Item) bool {
	if p.notifier == nil || !p.notifier.Supported() {
		logger.Warn("notifications not supported on this host")
		p.metrics.incNotifyFailure(p.source.Kind())
		return false
	}
	if err := p.notifier.Show(ctx, p.source.Describe(item)); err != nil {
		logger.Error("failed to send reminder notification", "error", err)
		p.metrics.incNotifyFailure(p.source.Kind())
		return false
	}
	logger.Info("sent reminder notification", "title", item.Title)
	return true
}
