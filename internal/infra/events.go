package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// DefaultEventPollInterval is how often the frontmost app and process table are sampled.
const DefaultEventPollInterval = 250 * time.Millisecond

// FrontmostFunc returns the pid of the frontmost application.
type FrontmostFunc func() (int, bool)

// AXFrontmost reads the frontmost application through the accessibility API.
func AXFrontmost() (int, bool) {
	return axFrontmostPID()
}

// PollingEventSource implements domain.EventSource by sampling.
//
// A change of frontmost pid emits an activated event. A new pid whose
// executable is the main binary of an app bundle emits a launched event.
// The first sample after a kind gains subscribers only primes state.
type PollingEventSource struct {
	interval  time.Duration
	pm        domain.ProcessManager
	frontmost FrontmostFunc
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	subs   map[uint64]*pollSubscription
	nextID uint64

	// Poll state, touched only by poll
	frontPID    int
	frontPrimed bool
	known       map[int]struct{}
	procPrimed  bool
}

type pollSubscription struct {
	src     *PollingEventSource
	id      uint64
	kind    domain.EventKind
	handler func(domain.AppEvent)
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *pollSubscription) Unsubscribe() {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	delete(s.src.subs, s.id)
}

// NewPollingEventSource creates an event source. Call Run to start sampling.
func NewPollingEventSource(interval time.Duration, pm domain.ProcessManager, frontmost FrontmostFunc, logger *zap.Logger) *PollingEventSource {
	if interval <= 0 {
		interval = DefaultEventPollInterval
	}
	return &PollingEventSource{
		interval:  interval,
		pm:        pm,
		frontmost: frontmost,
		logger:    logger,
		now:       time.Now,
		subs:      make(map[uint64]*pollSubscription),
	}
}

// Subscribe registers handler for kind.
func (e *PollingEventSource) Subscribe(kind domain.EventKind, handler func(domain.AppEvent)) (domain.Subscription, error) {
	switch kind {
	case domain.EventActivated, domain.EventLaunched:
	default:
		return nil, fmt.Errorf("unsupported event kind %q", kind)
	}
	if handler == nil {
		return nil, fmt.Errorf("nil handler for %s events", kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	sub := &pollSubscription{src: e, id: e.nextID, kind: kind, handler: handler}
	e.subs[sub.id] = sub
	return sub, nil
}

// Run samples until ctx is cancelled. Nothing is sampled while there are
// no subscribers.
func (e *PollingEventSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.safePoll()
		}
	}
}

func (e *PollingEventSource) safePoll() {
	defer func() {
		if err := recover(); err != nil {
			e.logger.Error("event poll panic recovered", zap.Any("error", err))
		}
	}()
	e.poll()
}

// handlers returns a snapshot of the handlers for kind.
func (e *PollingEventSource) handlers(kind domain.EventKind) []*pollSubscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*pollSubscription
	for _, s := range e.subs {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// active reports whether sub is still registered.
func (e *PollingEventSource) active(sub *pollSubscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.subs[sub.id]
	return ok
}

func (e *PollingEventSource) emit(subs []*pollSubscription, ev domain.AppEvent) {
	for _, s := range subs {
		// Handlers run outside the lock; skip any removed mid-delivery
		if e.active(s) {
			s.handler(ev)
		}
	}
}

// poll takes one sample of both event classes.
func (e *PollingEventSource) poll() {
	if subs := e.handlers(domain.EventActivated); len(subs) > 0 {
		e.pollFrontmost(subs)
	} else {
		e.frontPrimed = false
	}

	if subs := e.handlers(domain.EventLaunched); len(subs) > 0 {
		e.pollLaunches(subs)
	} else {
		e.procPrimed = false
		e.known = nil
	}
}

func (e *PollingEventSource) pollFrontmost(subs []*pollSubscription) {
	pid, ok := e.frontmost()
	if !ok {
		return
	}
	changed := e.frontPrimed && pid != e.frontPID
	e.frontPID = pid
	e.frontPrimed = true
	if !changed {
		return
	}

	name, err := e.pm.AppName(pid)
	if err != nil {
		e.logger.Debug("activated app has no name", zap.Int("pid", pid), zap.Error(err))
		return
	}
	e.emit(subs, domain.AppEvent{
		Kind: domain.EventActivated,
		App:  domain.App{PID: pid, Name: name},
		At:   e.now(),
	})
}

func (e *PollingEventSource) pollLaunches(subs []*pollSubscription) {
	pids, err := e.pm.ListPIDs()
	if err != nil {
		e.logger.Warn("failed to sample process table", zap.Error(err))
		return
	}

	current := make(map[int]struct{}, len(pids))
	var fresh []int
	for _, pid := range pids {
		current[pid] = struct{}{}
		if _, seen := e.known[pid]; !seen {
			fresh = append(fresh, pid)
		}
	}
	primed := e.procPrimed
	e.known = current
	e.procPrimed = true
	if !primed {
		return
	}

	for _, pid := range fresh {
		app, ok := e.pm.LookupApp(pid)
		if !ok {
			continue
		}
		e.emit(subs, domain.AppEvent{
			Kind: domain.EventLaunched,
			App:  app,
			At:   e.now(),
		})
	}
}

// Ensure PollingEventSource implements domain.EventSource.
var _ domain.EventSource = (*PollingEventSource)(nil)
