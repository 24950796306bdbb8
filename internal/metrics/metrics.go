// Package metrics exposes Prometheus-format counters and histograms for
// the HTTP layer and the reminder scheduler.
package metrics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
)

var (
	schedulerTicks        = metrics.NewCounter(`noticeboard_scheduler_ticks_total`)
	schedulerTickDuration = metrics.NewHistogram(`noticeboard_scheduler_tick_duration_seconds`)
	remindersSent         = metrics.NewCounter(`noticeboard_reminders_sent_total`)
	reminderFailures      = metrics.NewCounter(`noticeboard_reminder_failures_total`)
	deliveryRetries       = metrics.NewCounter(`noticeboard_delivery_retries_total`)
)

// RecordHTTPRequest counts one handled request and observes its duration.
// Path should be the matched route pattern, not the raw URL, to keep
// label cardinality bounded.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	metrics.GetOrCreateCounter(fmt.Sprintf(
		`noticeboard_http_requests_total{method=%q,path=%q,status="%d"}`,
		method, path, status,
	)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(
		`noticeboard_http_request_duration_seconds{method=%q,path=%q}`,
		method, path,
	)).Update(duration.Seconds())
}

// RecordDelivery counts one delivery attempt outcome for a channel.
// Status is the terminal state of the attempt: sent, delivered or
// failed.
func RecordDelivery(channel, status string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(
		`noticeboard_deliveries_total{channel=%q,status=%q}`,
		channel, status,
	)).Inc()
}

// RecordSchedulerTick counts one completed reminder cycle.
func RecordSchedulerTick(duration time.Duration) {
	schedulerTicks.Inc()
	schedulerTickDuration.Update(duration.Seconds())
}

// RecordRemindersSent counts reminder deliveries emitted by a cycle.
func RecordRemindersSent(n int) {
	remindersSent.Add(n)
}

// RecordReminderFailures counts per-recipient reminder failures.
func RecordReminderFailures(n int) {
	reminderFailures.Add(n)
}

// RecordDeliveryRetries counts failed deliveries re-attempted by the
// retry pass.
func RecordDeliveryRetries(n int) {
	deliveryRetries.Add(n)
}

// Handler returns a fiber handler serving all registered metrics in
// Prometheus text format.
func Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		metrics.WritePrometheus(&buf, true)
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		return c.Send(buf.Bytes())
	}
}
