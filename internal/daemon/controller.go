// Package daemon implements the monitoring controller and the daemon loop that drives it.
package daemon

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// DefaultLaunchDelay gives a launching app time to create its first window.
const DefaultLaunchDelay = 1 * time.Second

const defaultQueueSize = 64

type jobKind int

const (
	jobEvent jobKind = iota
	jobDeferred
)

// Job is a unit of work for the daemon loop. Event handlers and deferred
// timers only enqueue jobs; Handle runs them on the loop goroutine.
type Job struct {
	kind  jobKind
	event domain.AppEvent
	id    uint64
}

// ControllerConfig holds controller configuration.
type ControllerConfig struct {
	LaunchDelay time.Duration // Delay before reconciling a launched app
	QueueSize   int           // Buffered jobs before events are dropped
}

// DefaultControllerConfig returns default controller configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		LaunchDelay: DefaultLaunchDelay,
		QueueSize:   defaultQueueSize,
	}
}

// Controller owns the monitoring state machine.
//
// State is Running iff both event subscriptions are held. Permission loss
// forces a stop without touching userStopped; only UserStop sets it, and
// while set, permission regain does not restart monitoring.
//
// Controller is not safe for concurrent use. All methods except the event
// handlers it registers must be called from the daemon loop goroutine.
type Controller struct {
	source      domain.EventSource
	reconciler  domain.Reconciler
	gate        domain.PermissionGate
	scheduler   Scheduler
	launchDelay time.Duration
	logger      *zap.Logger

	state       domain.MonitoringState
	permission  domain.PermissionState
	userStopped bool
	subs        []domain.Subscription
	pending     map[uint64]Timer
	nextID      uint64
	last        *domain.ReconcileResult

	queue chan Job
}

// NewController creates a stopped controller.
func NewController(
	config ControllerConfig,
	source domain.EventSource,
	reconciler domain.Reconciler,
	gate domain.PermissionGate,
	scheduler Scheduler,
	logger *zap.Logger,
) *Controller {
	if config.LaunchDelay < 0 {
		config.LaunchDelay = 0
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	return &Controller{
		source:      source,
		reconciler:  reconciler,
		gate:        gate,
		scheduler:   scheduler,
		launchDelay: config.LaunchDelay,
		logger:      logger,
		state:       domain.Stopped,
		permission:  domain.NotGranted,
		pending:     make(map[uint64]Timer),
		queue:       make(chan Job, config.QueueSize),
	}
}

// Queue is drained by the daemon loop; each job is passed to Handle.
func (c *Controller) Queue() <-chan Job {
	return c.queue
}

// IsMonitoring reports whether subscriptions are active.
func (c *Controller) IsMonitoring() bool {
	return c.state == domain.Running
}

// HasPermission reports the last sampled permission state.
func (c *Controller) HasPermission() bool {
	return c.permission == domain.Granted
}

// UserStopped reports whether the user explicitly stopped monitoring.
func (c *Controller) UserStopped() bool {
	return c.userStopped
}

// LastResult returns the most recent reconcile result, if any.
func (c *Controller) LastResult() *domain.ReconcileResult {
	return c.last
}

// Status returns a snapshot for publishing.
func (c *Controller) Status() domain.Status {
	s := domain.Status{
		Monitoring:  c.state,
		Permission:  c.permission,
		UserStopped: c.userStopped,
	}
	if c.last != nil {
		s.LastApp = c.last.App.Name
		s.LastOutcome = c.last.Outcome
	}
	return s
}

// UserStart is the user-issued start. It clears userStopped.
func (c *Controller) UserStart() error {
	c.userStopped = false
	c.logger.Info("monitoring start requested by user")
	return c.start()
}

// UserStop is the user-issued stop. It sets userStopped.
func (c *Controller) UserStop() {
	c.userStopped = true
	c.logger.Info("monitoring stop requested by user")
	c.stop()
}

// RequestPermission shows the system consent prompt. The answer is picked
// up by a later PollPermission.
func (c *Controller) RequestPermission() {
	c.logger.Info("requesting accessibility permission")
	c.gate.RequestTrust()
}

// PollPermission samples the permission gate and applies the transition
// rules: regain auto-starts unless the user stopped, loss forces a stop.
func (c *Controller) PollPermission() {
	trusted := c.gate.IsTrusted()

	sampled := domain.NotGranted
	if trusted {
		sampled = domain.Granted
	}
	if sampled != c.permission {
		c.logger.Info("accessibility permission changed",
			zap.String("from", c.permission.String()),
			zap.String("to", sampled.String()))
		c.permission = sampled
	}

	switch {
	case trusted && c.state == domain.Stopped && !c.userStopped:
		if err := c.start(); err != nil {
			c.logger.Warn("auto start failed", zap.Error(err))
		}
	case !trusted && c.state == domain.Running:
		c.logger.Warn("accessibility permission lost, stopping monitoring")
		c.stop()
	}
}

// Shutdown releases subscriptions and pending jobs without touching userStopped.
func (c *Controller) Shutdown() {
	c.stop()
}

// Handle runs a queued job on the loop goroutine.
func (c *Controller) Handle(job Job) {
	switch job.kind {
	case jobEvent:
		c.handleEvent(job.event)
	case jobDeferred:
		c.handleDeferred(job)
	}
}

// start subscribes to both event classes. Idempotent.
func (c *Controller) start() error {
	if c.state == domain.Running {
		return nil
	}

	kinds := []domain.EventKind{domain.EventActivated, domain.EventLaunched}
	subs := make([]domain.Subscription, 0, len(kinds))
	for _, kind := range kinds {
		sub, err := c.source.Subscribe(kind, c.enqueueEvent)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return fmt.Errorf("failed to subscribe to %s events: %w", kind, err)
		}
		subs = append(subs, sub)
	}

	c.subs = subs
	c.state = domain.Running
	c.logger.Info("monitoring started")
	return nil
}

// stop releases both subscriptions and cancels deferred reconciles. Idempotent.
func (c *Controller) stop() {
	if c.state == domain.Stopped {
		return
	}

	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil

	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}

	c.state = domain.Stopped
	c.logger.Info("monitoring stopped")
}

// enqueueEvent is the subscription handler. It runs on the event source
// goroutine, so it only hands the event to the loop.
func (c *Controller) enqueueEvent(ev domain.AppEvent) {
	c.enqueue(Job{kind: jobEvent, event: ev})
}

func (c *Controller) enqueue(job Job) {
	select {
	case c.queue <- job:
	default:
		c.logger.Warn("event queue full, dropping event",
			zap.String("kind", string(job.event.Kind)),
			zap.String("app", job.event.App.Name))
	}
}

func (c *Controller) handleEvent(ev domain.AppEvent) {
	// Delivered before the subscription was released
	if c.state != domain.Running {
		return
	}

	switch ev.Kind {
	case domain.EventActivated:
		c.reconcile(ev.App)
	case domain.EventLaunched:
		c.scheduleLaunch(ev)
	}
}

// scheduleLaunch defers the reconcile of a freshly launched app.
func (c *Controller) scheduleLaunch(ev domain.AppEvent) {
	c.nextID++
	id := c.nextID
	c.pending[id] = c.scheduler.AfterFunc(c.launchDelay, func() {
		c.enqueue(Job{kind: jobDeferred, event: ev, id: id})
	})
	c.logger.Debug("launch reconcile scheduled",
		zap.String("app", ev.App.Name),
		zap.Duration("delay", c.launchDelay))
}

func (c *Controller) handleDeferred(job Job) {
	if _, ok := c.pending[job.id]; !ok {
		// Cancelled by stop after the timer had already fired
		return
	}
	delete(c.pending, job.id)

	if c.state != domain.Running {
		return
	}
	c.reconcile(job.event.App)
}

func (c *Controller) reconcile(app domain.App) {
	result := c.reconciler.Reconcile(app)
	c.last = &result
}
