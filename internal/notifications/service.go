/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/models"
)

// Config holds notification service configuration.
type Config struct {
	// SMTP settings
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// How often the upcoming-work reminder scan runs.
	ReminderCheckInterval time.Duration
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnv("HEARTH_SMTP_PORT", "587"))
	interval, err := time.ParseDuration(getEnv("HEARTH_REMINDER_CHECK_INTERVAL", "1h"))
	if err != nil || interval <= 0 {
		interval = time.Hour
	}

	return Config{
		SMTPHost:              getEnv("HEARTH_SMTP_HOST", ""),
		SMTPPort:              port,
		SMTPUsername:          getEnv("HEARTH_SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("HEARTH_SMTP_PASSWORD", ""),
		SMTPFrom:              getEnv("HEARTH_SMTP_FROM", "noreply@example.com"),
		SMTPFromName:          getEnv("HEARTH_SMTP_FROM_NAME", "Hearthwarden"),
		ReminderCheckInterval: interval,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Service handles notification delivery and upcoming-work reminders.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
}

// NewService creates a new notification service.
func NewService(db *gorm.DB, bus *events.Bus, config Config, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		config: config,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Start subscribes to events and runs the reminder scan. Blocks until
// ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Msg("notification service starting")

	scheduleUpdated := s.bus.Subscribe(events.EventScheduleUpdated)

	defer func() {
		s.bus.Unsubscribe(events.EventScheduleUpdated, scheduleUpdated)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	reminderTicker := time.NewTicker(s.config.ReminderCheckInterval)
	defer reminderTicker.Stop()

	s.logger.Info().Msg("notification service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification service stopping")
			return

		case payload := <-scheduleUpdated:
			s.handleScheduleChange(ctx, payload)

		case <-reminderTicker.C:
			s.processUpcomingReminders(ctx)
		}
	}
}

// handleScheduleChange notifies the schedule's watch list about edits.
func (s *Service) handleScheduleChange(ctx context.Context, payload events.Payload) {
	scheduleID, _ := payload["schedule_id"].(string)
	if scheduleID == "" {
		return
	}

	var schedule models.MaintenanceSchedule
	if err := s.db.WithContext(ctx).First(&schedule, "id = ?", scheduleID).Error; err != nil {
		return
	}

	for _, userID := range schedule.NotifyUserIDs {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
			continue
		}

		for _, pref := range s.enabledPreferences(ctx, userID, models.NotificationTypeScheduleChange) {
			notification := &models.Notification{
				UserID:           userID,
				NotificationType: models.NotificationTypeScheduleChange,
				Channel:          pref.Channel,
				Subject:          fmt.Sprintf("Maintenance schedule updated: %s", schedule.Title),
				Body:             fmt.Sprintf("The maintenance schedule %q has been updated.", schedule.Title),
				ScheduleID:       &schedule.ID,
			}
			_ = s.Send(ctx, notification, &user)
		}
	}
}

// processUpcomingReminders sends notify-days-before reminders for active
// schedules approaching their next trigger date. At most one reminder is
// sent per user, schedule and trigger date.
func (s *Service) processUpcomingReminders(ctx context.Context) {
	today := time.Now().Truncate(24 * time.Hour)

	var schedules []models.MaintenanceSchedule
	err := s.db.WithContext(ctx).
		Where("state = ? AND notify_days_before > 0 AND next_trigger_at IS NOT NULL", models.ScheduleStateActive).
		Find(&schedules).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load schedules for reminder scan")
		return
	}

	for i := range schedules {
		schedule := &schedules[i]
		triggerDate := schedule.NextTriggerAt.Truncate(24 * time.Hour)
		remindFrom := triggerDate.AddDate(0, 0, -schedule.NotifyDaysBefore)
		if today.Before(remindFrom) || today.After(triggerDate) {
			continue
		}

		recipients := append([]string(nil), schedule.NotifyUserIDs...)
		if schedule.AssigneeID != nil {
			recipients = append(recipients, *schedule.AssigneeID)
		}

		sent := make(map[string]struct{}, len(recipients))
		for _, userID := range recipients {
			if userID == "" {
				continue
			}
			if _, dup := sent[userID]; dup {
				continue
			}
			sent[userID] = struct{}{}

			var existing int64
			s.db.WithContext(ctx).Model(&models.Notification{}).
				Where("user_id = ? AND schedule_id = ? AND notification_type = ?",
					userID, schedule.ID, models.NotificationTypeUpcomingWork).
				Where("created_at >= ?", remindFrom).
				Count(&existing)
			if existing > 0 {
				continue
			}

			var user models.User
			if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
				continue
			}

			for _, pref := range s.enabledPreferences(ctx, userID, models.NotificationTypeUpcomingWork) {
				notification := &models.Notification{
					UserID:           userID,
					NotificationType: models.NotificationTypeUpcomingWork,
					Channel:          pref.Channel,
					Subject:          fmt.Sprintf("Upcoming maintenance: %s", schedule.Title),
					Body: fmt.Sprintf("Maintenance %q is scheduled for %s.",
						schedule.Title, triggerDate.Format("Monday, January 2")),
					ScheduleID: &schedule.ID,
					Metadata: map[string]any{
						"trigger_date": triggerDate.Format("2006-01-02"),
					},
				}
				_ = s.Send(ctx, notification, &user)
			}
		}
	}
}

// enabledPreferences returns the user's enabled preferences for a
// notification type. A user with no stored preferences gets an implicit
// in-app preference so schedule fan-out never goes silent.
func (s *Service) enabledPreferences(ctx context.Context, userID string, t models.NotificationType) []models.NotificationPreference {
	var prefs []models.NotificationPreference
	s.db.WithContext(ctx).
		Where("user_id = ? AND notification_type = ? AND enabled = ?", userID, t, true).
		Find(&prefs)

	if len(prefs) == 0 {
		var any int64
		s.db.WithContext(ctx).Model(&models.NotificationPreference{}).
			Where("user_id = ? AND notification_type = ?", userID, t).
			Count(&any)
		if any == 0 {
			return []models.NotificationPreference{{
				UserID:           userID,
				NotificationType: t,
				Channel:          models.NotificationChannelInApp,
				Enabled:          true,
			}}
		}
	}
	return prefs
}

// Send persists the notification, then delivers it via the configured
// channel and records the outcome on the row.
func (s *Service) Send(ctx context.Context, notification *models.Notification, user *models.User) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	if notification.Status == "" {
		notification.Status = models.NotificationStatusPending
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Error().Err(err).Str("id", notification.ID).Msg("failed to save notification")
		return err
	}

	var err error
	switch notification.Channel {
	case models.NotificationChannelEmail:
		err = s.sendEmail(notification, user)
	case models.NotificationChannelInApp:
		// Already stored, nothing to deliver.
		notification.Status = models.NotificationStatusSent
		now := time.Now()
		notification.SentAt = &now
	default:
		err = fmt.Errorf("unknown notification channel: %s", notification.Channel)
	}

	if err != nil {
		notification.Status = models.NotificationStatusFailed
		notification.Error = err.Error()
		s.logger.Error().Err(err).
			Str("id", notification.ID).
			Str("channel", string(notification.Channel)).
			Msg("failed to send notification")
	}

	s.db.WithContext(ctx).Model(notification).Updates(map[string]any{
		"status":  notification.Status,
		"sent_at": notification.SentAt,
		"error":   notification.Error,
	})

	return err
}

// sendEmail sends an email notification over SMTP.
func (s *Service) sendEmail(notification *models.Notification, user *models.User) error {
	if s.config.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if user == nil || user.Email == "" {
		return fmt.Errorf("user has no email address")
	}

	from := s.config.SMTPFrom
	if s.config.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.SMTPFromName, s.config.SMTPFrom)
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", user.Email))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", notification.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(notification.Body)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.config.SMTPFrom, []string{user.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}

	notification.Status = models.NotificationStatusSent
	now := time.Now()
	notification.SentAt = &now

	s.logger.Info().
		Str("id", notification.ID).
		Str("to", user.Email).
		Str("subject", notification.Subject).
		Msg("email notification sent")

	return nil
}

// NotifyScheduledWork tells a tenant that a visit was scheduled for
// their unit and needs confirmation. The body carries everything the
// tenant needs to decide: what, where, when, how urgent, and the cost.
func (s *Service) NotifyScheduledWork(ctx context.Context, request *models.MaintenanceRequest, tenant *models.User, unit *models.Unit) error {
	if tenant == nil || unit == nil {
		return nil
	}

	body := fmt.Sprintf(
		"Maintenance %q (%s, %s priority) has been scheduled for unit %s on floor %d. Proposed time: %s.",
		request.Title, request.Category, request.Priority,
		unit.RoomNumber, unit.Floor, formatSlotForHumans(request.PreferredTime))
	if request.Description != "" {
		body += " " + request.Description
	}
	if request.EstimatedCost > 0 {
		body += fmt.Sprintf(" Estimated cost: $%.2f.", request.EstimatedCost)
	}
	body += " Please confirm the visit or request a different slot."

	for _, pref := range s.enabledPreferences(ctx, tenant.ID, models.NotificationTypeWorkScheduled) {
		notification := &models.Notification{
			UserID:           tenant.ID,
			NotificationType: models.NotificationTypeWorkScheduled,
			Channel:          pref.Channel,
			Subject:          fmt.Sprintf("Maintenance scheduled: %s", request.Title),
			Body:             body,
			ScheduleID:       request.ScheduleID,
			RequestID:        &request.ID,
			Metadata: map[string]any{
				"preferred_time": request.PreferredTime,
				"room_number":    unit.RoomNumber,
				"floor":          unit.Floor,
				"category":       string(request.Category),
				"priority":       string(request.Priority),
				"estimated_cost": request.EstimatedCost,
			},
		}
		if err := s.Send(ctx, notification, tenant); err != nil {
			return err
		}
	}
	return nil
}

// NotifyAssignment tells a staff member they picked up a work item.
func (s *Service) NotifyAssignment(ctx context.Context, request *models.MaintenanceRequest, assignee *models.User) error {
	if assignee == nil {
		return nil
	}

	for _, pref := range s.enabledPreferences(ctx, assignee.ID, models.NotificationTypeWorkAssigned) {
		notification := &models.Notification{
			UserID:           assignee.ID,
			NotificationType: models.NotificationTypeWorkAssigned,
			Channel:          pref.Channel,
			Subject:          fmt.Sprintf("New work item: %s", request.Title),
			Body: fmt.Sprintf("You have been assigned maintenance %q. Scheduled time: %s.",
				request.Title, formatSlotForHumans(request.PreferredTime)),
			ScheduleID: request.ScheduleID,
			RequestID:  &request.ID,
		}
		if err := s.Send(ctx, notification, assignee); err != nil {
			return err
		}
	}
	return nil
}

// NotifyWorkItemStatus tells the tenant about a status change on their
// request. Terminal states get their own notification type.
func (s *Service) NotifyWorkItemStatus(ctx context.Context, request *models.MaintenanceRequest, newStatus models.RequestStatus) error {
	if request.TenantID == "" {
		return nil
	}

	var tenant models.User
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", request.TenantID).Error; err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}

	notifType := models.NotificationTypeStatusChange
	subject := fmt.Sprintf("Maintenance request updated: %s", request.Title)
	body := fmt.Sprintf("Your maintenance request %q is now %s.", request.Title, newStatus)

	switch newStatus {
	case models.RequestStatusCompleted:
		notifType = models.NotificationTypeWorkCompleted
		subject = fmt.Sprintf("Maintenance completed: %s", request.Title)
		body = fmt.Sprintf("Maintenance %q has been completed.", request.Title)
		if request.CompletionNote != "" {
			body += fmt.Sprintf("\n\nNotes: %s", request.CompletionNote)
		}
	case models.RequestStatusCancelled:
		notifType = models.NotificationTypeWorkCancelled
		subject = fmt.Sprintf("Maintenance cancelled: %s", request.Title)
		body = fmt.Sprintf("Maintenance %q has been cancelled.", request.Title)
		if request.RejectionNote != "" {
			body += fmt.Sprintf("\n\nReason: %s", request.RejectionNote)
		}
	}

	for _, pref := range s.enabledPreferences(ctx, tenant.ID, notifType) {
		notification := &models.Notification{
			UserID:           tenant.ID,
			NotificationType: notifType,
			Channel:          pref.Channel,
			Subject:          subject,
			Body:             body,
			ScheduleID:       request.ScheduleID,
			RequestID:        &request.ID,
			Metadata:         map[string]any{"status": string(newStatus)},
		}
		if err := s.Send(ctx, notification, &tenant); err != nil {
			return err
		}
	}
	return nil
}

// GetUserNotifications retrieves notifications for a user, newest first.
func (s *Service) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)

	if unreadOnly {
		query = query.Where("status != ?", models.NotificationStatusRead)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read.
func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{
			"status":  models.NotificationStatusRead,
			"read_at": now,
		})

	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}

	return result.Error
}

// Delete removes a notification. Scoped to the owner so one user cannot
// delete another's notifications.
func (s *Service) Delete(ctx context.Context, notificationID, userID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})

	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}

	return result.Error
}

// MarkAllAsRead marks all notifications as read for a user.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status != ?", userID, models.NotificationStatusRead).
		Updates(map[string]any{
			"status":  models.NotificationStatusRead,
			"read_at": now,
		}).Error
}

// GetUnreadCount returns the count of unread in-app notifications.
func (s *Service) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status != ?", userID, models.NotificationStatusRead).
		Where("channel = ?", models.NotificationChannelInApp).
		Count(&count).Error
	return count, err
}

// CreateDefaultPreferences creates default notification preferences for a new user.
func (s *Service) CreateDefaultPreferences(ctx context.Context, userID string) error {
	prefs := models.DefaultNotificationPreferences(userID)
	for i := range prefs {
		prefs[i].ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(&prefs).Error
}

// GetUserPreferences retrieves notification preferences for a user.
func (s *Service) GetUserPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	var prefs []models.NotificationPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&prefs).Error
	return prefs, err
}

// UpdatePreference toggles a notification preference.
func (s *Service) UpdatePreference(ctx context.Context, prefID, userID string, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&models.NotificationPreference{}).
		Where("id = ? AND user_id = ?", prefID, userID).
		Update("enabled", enabled)

	if result.RowsAffected == 0 {
		return fmt.Errorf("preference not found")
	}

	return result.Error
}

// formatSlotForHumans renders a preferred-time string in a friendlier
// format, falling back to the raw value when it does not parse.
func formatSlotForHumans(preferredTime string) string {
	t, err := time.Parse("2006-01-02T15:04:05", preferredTime)
	if err != nil {
		return preferredTime
	}
	return t.Format("Monday, January 2 at 3:04 PM")
}
