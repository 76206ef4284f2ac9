// Package poller fetches log records on a timer or on demand, runs the engine over
// them and keeps the latest result.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"logwatch/pkg/engine"
	"logwatch/pkg/models"
)

var (
	ErrInvalidInterval = errors.New("refresh interval not allowed")
	ErrNotReady        = errors.New("no data fetched yet")
)

// AllowedIntervals are the refresh intervals a client may select.
var AllowedIntervals = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

const DefaultInterval = 10 * time.Second

// Fetcher supplies the current record set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.LogRecord, error)
}

// Notifier receives findings that were not present in the previous pass.
type Notifier interface {
	Notify(ctx context.Context, findings []engine.Finding) error
}

// Snapshot is the outcome of the latest poll. Its report is shared between
// readers and must not be modified.
type Snapshot struct {
	Seq       uint64
	Report    engine.Report
	Records   int
	FetchedAt time.Time

	// Err is set when the latest fetch failed; Report then still holds the last
	// good result.
	Err      error
	FailedAt time.Time
}

// Ready reports whether the snapshot holds a usable report.
func (s Snapshot) Ready() bool {
	return s.Err == nil && !s.FetchedAt.IsZero()
}

type Poller struct {
	src      Fetcher
	notifier Notifier
	metrics  *Metrics
	now      func() time.Time

	mu       sync.RWMutex
	snap     Snapshot
	interval time.Duration

	trigger chan struct{}
	reset   chan struct{}

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	// Finding IDs of the previous successful pass. Owned by the Run goroutine.
	lastIDs map[string]struct{}
}

type Option func(*Poller)

func WithNotifier(n Notifier) Option {
	return func(p *Poller) { p.notifier = n }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func New(src Fetcher, interval time.Duration, opts ...Option) (*Poller, error) {
	if interval == 0 {
		interval = DefaultInterval
	}
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}

	p := &Poller{
		src:      src,
		now:      time.Now,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		reset:    make(chan struct{}, 1),
		subs:     make(map[chan Snapshot]struct{}),
		lastIDs:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func ValidateInterval(d time.Duration) error {
	for _, allowed := range AllowedIntervals {
		if d == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInterval, d)
}

// Run polls immediately and then on every tick or manual trigger until ctx is
// done. Polls never overlap.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	log.Infof("[poller] started, interval %v", p.Interval())
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("[poller] stopped")
			return ctx.Err()

		case <-ticker.C:
			p.poll(ctx)

		case <-p.trigger:
			log.Debug("[poller] manual refresh")
			p.poll(ctx)

		case <-p.reset:
			d := p.Interval()
			ticker.Reset(d)
			log.Infof("[poller] interval changed to %v", d)
		}
	}
}

// Refresh requests an immediate poll. It returns false when a request is
// already pending.
func (p *Poller) Refresh() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *Poller) SetInterval(d time.Duration) error {
	if err := ValidateInterval(d); err != nil {
		return err
	}

	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()

	select {
	case p.reset <- struct{}{}:
	default:
	}
	return nil
}

func (p *Poller) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Subscribe returns a channel receiving every new snapshot and a function that
// cancels the subscription. Snapshots are dropped for subscribers that fall
// behind.
func (p *Poller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, ch)
			p.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (p *Poller) poll(ctx context.Context) {
	start := p.now()
	records, err := p.src.Fetch(ctx)
	p.metrics.observeFetch(p.now().Sub(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Errorf("[poller] failed to fetch logs: %v", err)
		p.update(func(s *Snapshot) {
			s.Err = err
			s.FailedAt = p.now()
		})
		return
	}

	report := engine.Analyze(records)
	if n := report.View.SkippedEndpoints; n > 0 {
		log.Warnf("[poller] %d of %d records have no usable URL path, left out of endpoint stats", n, len(records))
	}
	p.metrics.observeReport(report, len(records))

	p.update(func(s *Snapshot) {
		s.Report = report
		s.Records = len(records)
		s.FetchedAt = p.now()
		s.Err = nil
		s.FailedAt = time.Time{}
	})
	log.Debugf("[poller] analyzed %d records, %d anomalies", len(records), len(report.Anomalies))

	p.notify(ctx, report.Anomalies)
}

func (p *Poller) update(fn func(s *Snapshot)) {
	p.mu.Lock()
	snap := p.snap
	fn(&snap)
	snap.Seq++
	p.snap = snap
	p.mu.Unlock()

	p.publish(snap)
}

func (p *Poller) publish(snap Snapshot) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot with the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (p *Poller) notify(ctx context.Context, findings []engine.Finding) {
	current := make(map[string]struct{}, len(findings))
	var fresh []engine.Finding
	for _, f := range findings {
		current[f.ID] = struct{}{}
		if _, seen := p.lastIDs[f.ID]; !seen {
			fresh = append(fresh, f)
		}
	}
	p.lastIDs = current

	if p.notifier == nil || len(fresh) == 0 {
		return
	}
	if err := p.notifier.Notify(ctx, fresh); err != nil {
		log.Errorf("[poller] failed to send %d anomaly notifications: %v", len(fresh), err)
		return
	}
	log.Infof("[poller] sent %d anomaly notifications", len(fresh))
}
