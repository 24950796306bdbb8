// Package core implements the business logic for alerts, recipients,
// users, teams and analytics. Functions are stateless and operate on
// the storage layer passed in; time-dependent operations take an
// explicit now so callers control the clock.
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

var (
	// ErrAlertNotFound is returned when an alert cannot be located.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidAlertRequest indicates the request payload failed validation.
	ErrInvalidAlertRequest = errors.New("invalid alert request")
	// ErrAlertArchived indicates the alert has already been archived.
	// Archived is terminal, so updates and repeat archives are rejected.
	ErrAlertArchived = errors.New("alert already archived")
)

const (
	maxAlertTitleLength      = 200
	minReminderIntervalHours = 1
	maxReminderIntervalHours = 168
)

// ParseAlertID converts a string identifier, such as a URL parameter,
// to an AlertID.
func ParseAlertID(s string) (models.AlertID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alert id %q", s)
	}
	return models.AlertID(id), nil
}

var validSeverities = map[models.AlertSeverity]struct{}{
	models.AlertSeverityInfo:     {},
	models.AlertSeverityWarning:  {},
	models.AlertSeverityCritical: {},
}

var validVisibilities = map[models.AlertVisibility]struct{}{
	models.AlertVisibilityOrganization: {},
	models.AlertVisibilityTeam:         {},
	models.AlertVisibilityUser:         {},
}

func validateAlertRequest(req *models.CreateAlertRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > maxAlertTitleLength {
		return fmt.Errorf("title must be at most %d characters", maxAlertTitleLength)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if req.Severity != "" {
		if _, ok := validSeverities[req.Severity]; !ok {
			return fmt.Errorf("invalid severity %q", req.Severity)
		}
	}
	if _, ok := validVisibilities[req.Visibility]; !ok {
		return fmt.Errorf("invalid visibility %q", req.Visibility)
	}
	switch req.Visibility {
	case models.AlertVisibilityTeam:
		if len(req.TargetTeamIDs) == 0 {
			return fmt.Errorf("target_team_ids is required for team visibility")
		}
	case models.AlertVisibilityUser:
		if len(req.TargetUserIDs) == 0 {
			return fmt.Errorf("target_user_ids is required for user visibility")
		}
	}
	if req.DeliveryChannel != "" && !req.DeliveryChannel.IsValid() {
		return fmt.Errorf("invalid delivery_channel %q", req.DeliveryChannel)
	}
	if req.ReminderIntervalHours != 0 {
		if req.ReminderIntervalHours < minReminderIntervalHours || req.ReminderIntervalHours > maxReminderIntervalHours {
			return fmt.Errorf("reminder_interval_hours must be between %d and %d", minReminderIntervalHours, maxReminderIntervalHours)
		}
	}
	return nil
}

// CreateAlert validates and persists a new alert, materializes a
// recipient state per resolved recipient and dispatches the initial
// round of deliveries. Alerts are created active; the start time
// defaults to now and the reminder interval to the configured default.
func CreateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, registry *notify.Registry, req *models.CreateAlertRequest, createdBy models.UserID, defaultReminderHours int, now time.Time) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertRequest
	}
	if err := validateAlertRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlertRequest, err)
	}

	alert := &models.Alert{
		Title:                 strings.TrimSpace(req.Title),
		Message:               req.Message,
		Severity:              req.Severity,
		Status:                models.AlertStatusActive,
		Visibility:            req.Visibility,
		TargetTeamIDs:         req.TargetTeamIDs,
		TargetUserIDs:         req.TargetUserIDs,
		DeliveryChannel:       req.DeliveryChannel,
		RemindersEnabled:      true,
		ReminderIntervalHours: req.ReminderIntervalHours,
		StartTime:             now,
		ExpiryTime:            req.ExpiryTime,
		CreatedBy:             createdBy,
	}
	if alert.Severity == "" {
		alert.Severity = models.AlertSeverityInfo
	}
	if alert.DeliveryChannel == "" {
		alert.DeliveryChannel = models.DeliveryChannelInApp
	}
	if req.RemindersEnabled != nil {
		alert.RemindersEnabled = *req.RemindersEnabled
	}
	if alert.ReminderIntervalHours == 0 {
		alert.ReminderIntervalHours = defaultReminderHours
	}
	if req.StartTime != nil {
		alert.StartTime = *req.StartTime
	}
	if alert.Visibility == models.AlertVisibilityOrganization {
		// Targets are meaningless for organization-wide alerts.
		alert.TargetTeamIDs = nil
		alert.TargetUserIDs = nil
	}

	if !registry.Supports(alert.DeliveryChannel) {
		return nil, fmt.Errorf("%w: delivery channel %q is not available", ErrInvalidAlertRequest, alert.DeliveryChannel)
	}
	if alert.ExpiryTime != nil && !alert.ExpiryTime.After(alert.StartTime) {
		return nil, fmt.Errorf("%w: expiry_time must be after start_time", ErrInvalidAlertRequest)
	}

	// Resolve recipients before writing anything so an invalid target
	// leaves no partial alert behind.
	recipients, err := ResolveRecipients(ctx, db, alert)
	if err != nil {
		return nil, err
	}

	if err := db.CreateAlert(ctx, alert); err != nil {
		log.Error("failed to create alert", "created_by", createdBy, "error", err)
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	if err := db.CreateRecipientStates(ctx, alert.ID, recipients); err != nil {
		log.Error("failed to create recipient states", "alert_id", alert.ID, "error", err)
		return nil, fmt.Errorf("failed to create recipient states: %w", err)
	}

	for _, userID := range recipients {
		if _, err := CreateAndDispatchDelivery(ctx, db, log, registry, alert, userID, false, 0, now); err != nil {
			log.Error("failed to record initial delivery", "alert_id", alert.ID, "user_id", userID, "error", err)
		}
	}

	log.Info("alert created", "alert_id", alert.ID, "severity", alert.Severity, "visibility", alert.Visibility, "recipients", len(recipients))
	return alert, nil
}

// GetAlert retrieves a single alert by ID.
func GetAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID) (*models.Alert, error) {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// GetAlertWithStats returns an alert along with its recipient and
// engagement counts for the admin detail view.
func GetAlertWithStats(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, now time.Time) (*models.AlertWithStats, error) {
	alert, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}

	eng, err := db.GetAlertEngagement(ctx, alertID, now)
	if err != nil {
		log.Error("failed to get alert engagement", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to get alert engagement: %w", err)
	}

	return &models.AlertWithStats{
		Alert:           *alert,
		TotalRecipients: eng.Recipients,
		ReadCount:       eng.Read,
		SnoozedCount:    eng.Snoozed,
	}, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func ListAlerts(ctx context.Context, db *sqlite.DB, filter models.AlertFilter) ([]*models.Alert, error) {
	alerts, err := db.ListAlerts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// UpdateAlert applies the provided fields to an active alert. Widening
// the audience materializes states and deliveries for the newly added
// recipients; existing recipients keep their read and snooze state.
func UpdateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, registry *notify.Registry, alertID models.AlertID, req *models.UpdateAlertRequest, now time.Time) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertRequest
	}

	existing, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to load alert for update", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	if existing.Status == models.AlertStatusArchived {
		return nil, ErrAlertArchived
	}

	retarget := false
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidAlertRequest)
		}
		if len(title) > maxAlertTitleLength {
			return nil, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidAlertRequest, maxAlertTitleLength)
		}
		existing.Title = title
	}
	if req.Message != nil {
		if strings.TrimSpace(*req.Message) == "" {
			return nil, fmt.Errorf("%w: message is required", ErrInvalidAlertRequest)
		}
		existing.Message = *req.Message
	}
	if req.Severity != nil {
		if _, ok := validSeverities[*req.Severity]; !ok {
			return nil, fmt.Errorf("%w: invalid severity %q", ErrInvalidAlertRequest, *req.Severity)
		}
		existing.Severity = *req.Severity
	}
	if req.Visibility != nil {
		if _, ok := validVisibilities[*req.Visibility]; !ok {
			return nil, fmt.Errorf("%w: invalid visibility %q", ErrInvalidAlertRequest, *req.Visibility)
		}
		existing.Visibility = *req.Visibility
		retarget = true
	}
	if req.TargetTeamIDs != nil {
		existing.TargetTeamIDs = *req.TargetTeamIDs
		retarget = true
	}
	if req.TargetUserIDs != nil {
		existing.TargetUserIDs = *req.TargetUserIDs
		retarget = true
	}
	if req.DeliveryChannel != nil {
		if !req.DeliveryChannel.IsValid() {
			return nil, fmt.Errorf("%w: invalid delivery_channel %q", ErrInvalidAlertRequest, *req.DeliveryChannel)
		}
		if !registry.Supports(*req.DeliveryChannel) {
			return nil, fmt.Errorf("%w: delivery channel %q is not available", ErrInvalidAlertRequest, *req.DeliveryChannel)
		}
		existing.DeliveryChannel = *req.DeliveryChannel
	}
	if req.RemindersEnabled != nil {
		existing.RemindersEnabled = *req.RemindersEnabled
	}
	if req.ReminderIntervalHours != nil {
		if *req.ReminderIntervalHours < minReminderIntervalHours || *req.ReminderIntervalHours > maxReminderIntervalHours {
			return nil, fmt.Errorf("%w: reminder_interval_hours must be between %d and %d", ErrInvalidAlertRequest, minReminderIntervalHours, maxReminderIntervalHours)
		}
		existing.ReminderIntervalHours = *req.ReminderIntervalHours
	}
	if req.StartTime != nil {
		existing.StartTime = *req.StartTime
	}
	if req.ExpiryTime != nil {
		existing.ExpiryTime = req.ExpiryTime
	}

	switch existing.Visibility {
	case models.AlertVisibilityTeam:
		if len(existing.TargetTeamIDs) == 0 {
			return nil, fmt.Errorf("%w: target_team_ids is required for team visibility", ErrInvalidAlertRequest)
		}
	case models.AlertVisibilityUser:
		if len(existing.TargetUserIDs) == 0 {
			return nil, fmt.Errorf("%w: target_user_ids is required for user visibility", ErrInvalidAlertRequest)
		}
	case models.AlertVisibilityOrganization:
		existing.TargetTeamIDs = nil
		existing.TargetUserIDs = nil
	}
	if existing.ExpiryTime != nil && !existing.ExpiryTime.After(existing.StartTime) {
		return nil, fmt.Errorf("%w: expiry_time must be after start_time", ErrInvalidAlertRequest)
	}

	// Work out which recipients the retarget adds before persisting so
	// an invalid target rejects the whole update.
	var added []models.UserID
	if retarget {
		resolved, err := ResolveRecipients(ctx, db, existing)
		if err != nil {
			return nil, err
		}
		current, err := db.ListRecipientUserIDs(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing recipients: %w", err)
		}
		known := make(map[models.UserID]struct{}, len(current))
		for _, id := range current {
			known[id] = struct{}{}
		}
		for _, id := range resolved {
			if _, ok := known[id]; !ok {
				added = append(added, id)
			}
		}
	}

	if err := db.UpdateAlert(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to update alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	if len(added) > 0 {
		if err := db.CreateRecipientStates(ctx, existing.ID, added); err != nil {
			log.Error("failed to create recipient states", "alert_id", existing.ID, "error", err)
			return nil, fmt.Errorf("failed to create recipient states: %w", err)
		}
		for _, userID := range added {
			if _, err := CreateAndDispatchDelivery(ctx, db, log, registry, existing, userID, false, 0, now); err != nil {
				log.Error("failed to record initial delivery", "alert_id", existing.ID, "user_id", userID, "error", err)
			}
		}
	}

	updated, err := db.GetAlert(ctx, alertID)
	if err != nil {
		log.Warn("alert updated but fetching updated record failed", "alert_id", alertID, "error", err)
		return existing, nil
	}

	log.Info("alert updated", "alert_id", alertID, "added_recipients", len(added))
	return updated, nil
}

// ArchiveAlert transitions an active alert to archived, stamping the
// archival time. Archiving an already archived alert fails with
// ErrAlertArchived.
func ArchiveAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, now time.Time) (*models.Alert, error) {
	existing, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to load alert for archive", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	if existing.Status == models.AlertStatusArchived {
		return nil, ErrAlertArchived
	}

	if err := db.ArchiveAlert(ctx, alertID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent archive.
			return nil, ErrAlertArchived
		}
		log.Error("failed to archive alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to archive alert: %w", err)
	}

	archived, err := db.GetAlert(ctx, alertID)
	if err != nil {
		log.Warn("alert archived but fetching updated record failed", "alert_id", alertID, "error", err)
		existing.Status = models.AlertStatusArchived
		existing.ArchivedAt = &now
		return existing, nil
	}

	log.Info("alert archived", "alert_id", alertID)
	return archived, nil
}
