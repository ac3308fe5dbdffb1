package service

import (
	"context"
	"fmt"
	"log"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// FCMClient wraps the Firebase Cloud Messaging client.
//
// The mobile app registers with FCM, gets a device token and sends it to us
// (stored under deviceTokens/{uid}). FCM delivers to the device even when the
// app is closed.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient gets the messaging client from an initialized Firebase app.
func NewFCMClient(ctx context.Context, app *fb.App) (*FCMClient, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	log.Printf("[FCM] Messaging client ready")
	return &FCMClient{client: client}, nil
}

// SendToTokens sends one notification to multiple device tokens and returns
// the tokens FCM reported as unregistered, so the caller can forget them.
//
// FCM has a limit of 500 tokens per request; a user never has that many.
func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
		Data: data,
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}

	log.Printf("[FCM] Sent to %d tokens: %d success, %d failure",
		len(tokens), response.SuccessCount, response.FailureCount)

	var stale []string
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		log.Printf("[FCM] Token %d failed: %v", i, resp.Error)
		if messaging.IsUnregistered(resp.Error) {
			stale = append(stale, tokens[i])
		}
	}
	return stale, nil
}
