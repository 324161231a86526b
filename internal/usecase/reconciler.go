// Package usecase contains application business logic.
package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
)

// ReconcilerImpl implements domain.Reconciler.
type ReconcilerImpl struct {
	accessor     domain.WindowAccessor
	policy       *policy.GeometryPolicy
	verifyWrites bool
	logger       *zap.Logger
	now          func() time.Time
}

// NewReconciler creates a reconciler that trusts window writes.
func NewReconciler(
	wa domain.WindowAccessor,
	gp *policy.GeometryPolicy,
	logger *zap.Logger,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		accessor: wa,
		policy:   gp,
		logger:   logger,
		now:      time.Now,
	}
}

// NewReconcilerWithVerify creates a reconciler that re-reads the frame after
// writing and logs a warning when the window did not land on target.
func NewReconcilerWithVerify(
	wa domain.WindowAccessor,
	gp *policy.GeometryPolicy,
	logger *zap.Logger,
) *ReconcilerImpl {
	r := NewReconciler(wa, gp, logger)
	r.verifyWrites = true
	return r
}

// Reconcile moves and resizes the focused window of app onto its target.
// It is total: ignored apps, missing windows and unreadable attributes all
// end the cycle without error, and a panic from the platform is recovered.
func (r *ReconcilerImpl) Reconcile(app domain.App) (result domain.ReconcileResult) {
	result = domain.ReconcileResult{App: app, ExecutedAt: r.now()}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reconcile panic recovered",
				zap.String("app", app.Name),
				zap.Int("pid", app.PID),
				zap.Any("panic", rec))
			result.Outcome = domain.OutcomeFailed
		}
	}()

	if entry, ok := r.policy.Ignored(app.Name); ok {
		r.logger.Info("skipping ignored app",
			zap.String("app", app.Name),
			zap.String("entry", entry))
		result.Outcome = domain.OutcomeIgnored
		return result
	}

	win, ok := r.accessor.FocusedWindow(app.PID)
	if !ok {
		r.logger.Debug("no focused window",
			zap.String("app", app.Name),
			zap.Int("pid", app.PID))
		result.Outcome = domain.OutcomeNoWindow
		return result
	}
	defer win.Release()

	// A failed query counts as resizable
	if resizable, known := r.accessor.IsResizable(win); known && !resizable {
		r.logger.Debug("window not resizable", zap.String("app", app.Name))
		result.Outcome = domain.OutcomeNotResizable
		return result
	}

	pos, posOK := r.accessor.Position(win)
	size, sizeOK := r.accessor.Size(win)
	if !posOK || !sizeOK {
		r.logger.Debug("window geometry unreadable",
			zap.String("app", app.Name),
			zap.Bool("position", posOK),
			zap.Bool("size", sizeOK))
		result.Outcome = domain.OutcomeUnreadable
		return result
	}

	current := domain.Geometry{Point: pos, Size: size}
	result.Before = &current

	decision := r.policy.Decide(app.Name, current)
	result.Target = &decision.Target

	if !decision.Changed() {
		result.Outcome = domain.OutcomeAtTarget
		return result
	}

	if decision.MoveNeeded {
		r.accessor.SetPosition(win, decision.Target.Point)
	}
	if decision.SizeNeeded {
		r.accessor.SetSize(win, decision.Target.Size)
	}

	switch {
	case decision.MoveNeeded && decision.SizeNeeded:
		result.Outcome = domain.OutcomeMovedAndResized
	case decision.MoveNeeded:
		result.Outcome = domain.OutcomeMoved
	default:
		result.Outcome = domain.OutcomeResized
	}

	r.logger.Info("window adjusted",
		zap.String("app", app.Name),
		zap.Int("pid", app.PID),
		zap.String("rule", decision.Rule),
		zap.String("outcome", string(result.Outcome)),
		zap.Float64("x", decision.Target.X),
		zap.Float64("y", decision.Target.Y),
		zap.Float64("width", decision.Target.Width),
		zap.Float64("height", decision.Target.Height))

	if r.verifyWrites {
		r.verify(app, win, decision)
	}

	return result
}

// verify re-reads the frame after writing. Mismatches are only logged.
func (r *ReconcilerImpl) verify(app domain.App, win domain.WindowHandle, decision policy.Decision) {
	pos, posOK := r.accessor.Position(win)
	size, sizeOK := r.accessor.Size(win)
	if !posOK || !sizeOK {
		r.logger.Warn("could not verify window write", zap.String("app", app.Name))
		return
	}

	after := r.policy.Decide(app.Name, domain.Geometry{Point: pos, Size: size})
	if after.Changed() {
		r.logger.Warn("window did not reach target",
			zap.String("app", app.Name),
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
			zap.Float64("width", size.Width),
			zap.Float64("height", size.Height))
	}
}

// Ensure ReconcilerImpl implements domain.Reconciler.
var _ domain.Reconciler = (*ReconcilerImpl)(nil)
