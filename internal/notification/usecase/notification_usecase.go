package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	appdomain "onlyjobs-backend/internal/application/domain"
	"onlyjobs-backend/internal/notification/domain"
	"onlyjobs-backend/internal/notification/repository"
	"onlyjobs-backend/pkg/fcm"

	"go.uber.org/zap"
)

const maxSubjectLength = 100

// Sender delivers one notification to many device tokens and returns the
// tokens it could not reach.
type Sender interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error)
}

type NotificationUsecase interface {
	Register(ctx context.Context, userID, token, deviceInfo string) error
	Unregister(ctx context.Context, userID, token string) error
	NotifyApplication(ctx context.Context, app *appdomain.JobApplication) error
}

type notificationUsecase struct {
	tokens repository.DeviceTokenRepository
	sender Sender
	log    *zap.Logger
}

func NewNotificationUsecase(tokens repository.DeviceTokenRepository, sender Sender, log *zap.Logger) NotificationUsecase {
	return &notificationUsecase{
		tokens: tokens,
		sender: sender,
		log:    log.Named("notification"),
	}
}

func (u *notificationUsecase) Register(ctx context.Context, userID, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrEmptyToken
	}
	if err := u.tokens.Save(ctx, userID, token, deviceInfo); err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (u *notificationUsecase) Unregister(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrEmptyToken
	}
	if err := u.tokens.Delete(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}

// buildNotification renders the push message for a stored application.
func buildNotification(app *appdomain.JobApplication) fcm.NotificationData {
	title := "New job application"
	if app.Company != "" {
		title = fmt.Sprintf("%s: %s", app.Status, app.Company)
	}
	body := app.JobTitle
	if utf8.RuneCountInString(body) > maxSubjectLength {
		body = string([]rune(body)[:maxSubjectLength-3]) + "..."
	}
	if body == "" {
		body = "(No job title)"
	}
	return fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":       "application_update",
			"message_id": app.MessageID,
			"company":    app.Company,
			"status":     string(app.Status),
		},
		ClickAction: "/applications/" + app.MessageID,
	}
}

// NotifyApplication pushes to every device of the user and forgets the
// tokens FCM rejected.
func (u *notificationUsecase) NotifyApplication(ctx context.Context, app *appdomain.JobApplication) error {
	rows, err := u.tokens.ListByUser(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("failed to list device tokens: %w", err)
	}
	if len(rows) == 0 {
		u.log.Debug("no devices registered", zap.String("user_id", app.UserID))
		return nil
	}

	tokens := make([]string, 0, len(rows))
	for _, t := range rows {
		tokens = append(tokens, t.Token)
	}

	failed, err := u.sender.SendToDevices(ctx, tokens, buildNotification(app))
	if err != nil {
		return err
	}
	u.log.Info("push sent",
		zap.String("user_id", app.UserID),
		zap.String("message_id", app.MessageID),
		zap.Int("devices", len(tokens)-len(failed)))

	if len(failed) > 0 {
		if err := u.tokens.DeleteTokens(ctx, failed); err != nil {
			u.log.Warn("failed to clean up device tokens", zap.Int("count", len(failed)), zap.Error(err))
		}
	}
	return nil
}
