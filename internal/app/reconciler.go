package app

import (
	"context"
	"log/slog"
	"time"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks that the managed window still exists and
// re-resolves it when it is gone, so a restarted application is picked up.
type Reconciler struct {
	interval time.Duration
	exists   func() bool
	resolve  func() error
	logger   *slog.Logger

	missing bool
}

func NewReconciler(cfg ReconcilerConfig, exists func() bool, resolve func() error) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		exists:   exists,
		resolve:  resolve,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

func (r *Reconciler) reconcile() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	if r.exists() {
		if r.missing {
			r.logger.Info("reconciler: window is back")
			r.missing = false
		}
		return
	}

	if !r.missing {
		r.logger.Info("reconciler: window disappeared, re-resolving")
	}
	if err := r.resolve(); err != nil {
		r.missing = true
		r.logger.Debug("reconciler: window not found yet", "error", err)
		return
	}
	r.missing = false
	r.logger.Info("reconciler: window re-resolved")
}
