// Package notify implements the delivery channel strategies used to
// push alerts to recipients. Each channel registers a Notifier in a
// Registry; callers look up the notifier for a delivery's channel and
// record the outcome against the delivery row.
package notify

import (
	"context"
	"log/slog"

	"github.com/mr-karan/noticeboard/pkg/models"
)

// Notifier pushes an alert to a single user over one channel.
type Notifier interface {
	// Channel identifies which delivery channel this notifier serves.
	Channel() models.DeliveryChannel

	// Send performs the delivery attempt. It returns confirmed=true when
	// the channel can confirm receipt synchronously, in which case the
	// caller records the delivery as delivered rather than just sent.
	Send(ctx context.Context, alert *models.Alert, userID models.UserID) (confirmed bool, err error)
}

// Registry holds the notifiers available to the process, keyed by
// channel. Lookups for unregistered channels fail the delivery.
type Registry struct {
	notifiers map[models.DeliveryChannel]Notifier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[models.DeliveryChannel]Notifier)}
}

// Register adds a notifier, replacing any previous notifier for the
// same channel.
func (r *Registry) Register(n Notifier) {
	r.notifiers[n.Channel()] = n
}

// Get returns the notifier for a channel.
func (r *Registry) Get(channel models.DeliveryChannel) (Notifier, bool) {
	n, ok := r.notifiers[channel]
	return n, ok
}

// Supports reports whether a channel has a registered notifier.
func (r *Registry) Supports(channel models.DeliveryChannel) bool {
	_, ok := r.notifiers[channel]
	return ok
}

// Channels returns the registered channels.
func (r *Registry) Channels() []models.DeliveryChannel {
	out := make([]models.DeliveryChannel, 0, len(r.notifiers))
	for ch := range r.notifiers {
		out = append(out, ch)
	}
	return out
}

// InApp delivers alerts to the in-app notification feed. The feed is
// backed by the recipient state rows themselves, so there is no
// external system to call and delivery is confirmed synchronously.
type InApp struct {
	log *slog.Logger
}

// NewInApp returns the in-app feed notifier.
func NewInApp(log *slog.Logger) *InApp {
	return &InApp{log: log}
}

// Channel implements Notifier.
func (n *InApp) Channel() models.DeliveryChannel {
	return models.DeliveryChannelInApp
}

// Send implements Notifier. The recipient state row written at alert
// creation already surfaces the alert in the user's feed, so this only
// logs the hand-off.
func (n *InApp) Send(ctx context.Context, alert *models.Alert, userID models.UserID) (bool, error) {
	n.log.Debug("in-app notification delivered", "alert_id", alert.ID, "user_id", userID)
	return true, nil
}
