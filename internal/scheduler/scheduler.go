// Package scheduler runs the periodic background passes: reminding
// recipients who haven't read an alert, and retrying failed
// deliveries. One cycle runs at a time; a slow cycle delays the next
// tick rather than overlapping it.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/internal/metrics"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

const defaultInterval = 30 * time.Minute

// Options encapsulates the dependencies required to run the scheduler.
type Options struct {
	Config   config.SchedulerConfig
	DB       *sqlite.DB
	Logger   *slog.Logger
	Registry *notify.Registry

	// Now overrides the clock, primarily for tests. Defaults to time.Now.
	Now func() time.Time
}

// Manager coordinates the reminder and retry cycles.
type Manager struct {
	cfg      config.SchedulerConfig
	db       *sqlite.DB
	log      *slog.Logger
	registry *notify.Registry
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager constructs a new scheduler instance.
func NewManager(opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:      opts.Config,
		db:       opts.DB,
		log:      opts.Logger.With("component", "scheduler"),
		registry: opts.Registry,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Start launches the cycle loop. It is a no-op when the scheduler is
// disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		m.log.Info("scheduler disabled; manager will not start")
		return
	}
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	m.log.Info("starting scheduler", "interval", interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run an initial cycle so overdue reminders go out soon after
		// startup.
		m.RunCycle(ctx)

		for {
			select {
			case <-ticker.C:
				m.RunCycle(ctx)
			case <-m.stop:
				m.log.Info("scheduler stopping")
				return
			case <-ctx.Done():
				m.log.Info("scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop signals the manager to stop and waits for the current cycle to
// finish.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// RunCycle executes one reminder pass and, when enabled, one retry
// pass. It is exported so the CLI can trigger a single cycle on demand.
func (m *Manager) RunCycle(ctx context.Context) {
	start := m.now()
	log := m.log.With("cycle", uuid.NewString()[:8])

	sent, failed := m.runReminderPass(ctx, log, start)

	retried := 0
	if m.cfg.RetryEnabled {
		retried = m.runRetryPass(ctx, log, start)
	}

	metrics.RecordSchedulerTick(time.Since(start))
	log.Info("scheduler cycle complete",
		"duration", time.Since(start),
		"reminders_sent", sent,
		"reminder_failures", failed,
		"deliveries_retried", retried,
	)
}

// runReminderPass walks every active alert with reminders enabled and
// re-notifies recipients who are unread, not snoozed and past the
// alert's reminder interval. A failure for one recipient never aborts
// the pass.
func (m *Manager) runReminderPass(ctx context.Context, log *slog.Logger, now time.Time) (sent, failed int) {
	alerts, err := m.db.ListRemindableAlerts(ctx)
	if err != nil {
		log.Error("failed to list remindable alerts", "error", err)
		return 0, 0
	}

	for _, alert := range alerts {
		if !alert.IsActiveAt(now) {
			continue
		}
		interval := time.Duration(alert.ReminderIntervalHours) * time.Hour

		states, err := m.db.ListUnreadRecipientStates(ctx, alert.ID)
		if err != nil {
			log.Error("failed to list unread recipients", "alert_id", alert.ID, "error", err)
			continue
		}
		for _, state := range states {
			if state.IsSnoozedAt(now) {
				continue
			}
			if state.LastRemindedAt != nil && now.Sub(*state.LastRemindedAt) < interval {
				continue
			}

			if m.remind(ctx, log, alert, state, now) {
				sent++
			} else {
				failed++
			}
		}
	}

	if sent > 0 {
		metrics.RecordRemindersSent(sent)
	}
	if failed > 0 {
		metrics.RecordReminderFailures(failed)
		log.Warn("reminder pass finished with failures", "sent", sent, "failed", failed)
	}
	return sent, failed
}

// remind records and dispatches one reminder delivery. The recipient's
// reminder bookkeeping advances as soon as the delivery row exists, so
// a dispatch failure flows into the retry pass instead of producing a
// duplicate reminder next cycle.
func (m *Manager) remind(ctx context.Context, log *slog.Logger, alert *models.Alert, state *models.RecipientState, now time.Time) bool {
	delivery := &models.Delivery{
		AlertID:          alert.ID,
		UserID:           state.UserID,
		Channel:          alert.DeliveryChannel,
		Status:           models.DeliveryStatusPending,
		IsReminder:       true,
		ReminderSequence: state.ReminderCount + 1,
		MaxRetries:       models.DefaultMaxRetries,
	}
	if err := m.db.CreateDelivery(ctx, delivery); err != nil {
		log.Error("failed to create reminder delivery", "alert_id", alert.ID, "user_id", state.UserID, "error", err)
		return false
	}

	dispatchErr := core.DispatchDelivery(ctx, m.db, log, m.registry, alert, delivery, now)
	if dispatchErr != nil {
		log.Warn("reminder dispatch failed", "alert_id", alert.ID, "user_id", state.UserID, "error", dispatchErr)
	}

	if err := m.db.MarkRecipientReminded(ctx, state.ID, now); err != nil {
		log.Error("failed to record reminder", "alert_id", alert.ID, "user_id", state.UserID, "error", err)
		return false
	}
	return dispatchErr == nil
}

// runRetryPass re-dispatches failed deliveries that are due for
// another attempt. Retries run even for alerts archived since the
// original attempt; the delivery was owed to the recipient when it was
// recorded.
func (m *Manager) runRetryPass(ctx context.Context, log *slog.Logger, now time.Time) int {
	deliveries, err := m.db.ListRetryableDeliveries(ctx, now)
	if err != nil {
		log.Error("failed to list retryable deliveries", "error", err)
		return 0
	}
	if len(deliveries) == 0 {
		return 0
	}

	retried := 0
	for _, delivery := range deliveries {
		alert, err := m.db.GetAlert(ctx, delivery.AlertID)
		if err != nil {
			log.Error("failed to load alert for retry", "delivery_id", delivery.ID, "alert_id", delivery.AlertID, "error", err)
			continue
		}
		if err := core.DispatchDelivery(ctx, m.db, log, m.registry, alert, delivery, now); err != nil {
			log.Warn("delivery retry failed", "delivery_id", delivery.ID, "retry_count", delivery.RetryCount+1, "error", err)
			continue
		}
		retried++
	}

	metrics.RecordDeliveryRetries(len(deliveries))
	return retried
}
