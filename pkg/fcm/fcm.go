package fcm

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Client wraps Firebase Cloud Messaging multicast delivery.
type Client struct {
	messagingClient *messaging.Client
	log             *zap.Logger
}

func NewClient(messagingClient *messaging.Client, log *zap.Logger) *Client {
	return &Client{
		messagingClient: messagingClient,
		log:             log.Named("fcm"),
	}
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string
	// URL opened when the notification is clicked
	ClickAction string
}

func buildMulticast(tokens []string, n NotificationData) *messaging.MulticastMessage {
	webpush := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: n.Title,
			Body:  n.Body,
			Icon:  "/icon-192.svg",
		},
	}
	if n.ClickAction != "" {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: n.ClickAction}
	}
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data:    n.Data,
		Webpush: webpush,
	}
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens that failed to receive it.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, buildMulticast(tokens, notification))
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	c.log.Debug("multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))

	var failedTokens []string
	for i, resp := range response.Responses {
		if !resp.Success {
			failedTokens = append(failedTokens, tokens[i])
			c.log.Warn("send to device failed", zap.String("token", abbreviate(tokens[i])), zap.Error(resp.Error))
		}
	}
	return failedTokens, nil
}

func abbreviate(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
