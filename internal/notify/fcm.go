// README: Notification sink backed by Firebase Cloud Messaging topics.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSink publishes events as high-priority FCM data messages. Each channel
// maps to a topic the driver or customer app subscribes to.
type FCMSink struct {
	client *messaging.Client
}

// NewFCMSink initialises the Firebase Admin SDK. An empty credentialsFile
// falls back to application-default credentials.
func NewFCMSink(ctx context.Context, projectID, credentialsFile string) (*FCMSink, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Messaging: %w", err)
	}
	return &FCMSink{client: client}, nil
}

func (s *FCMSink) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", event, err)
	}
	msg := &messaging.Message{
		Topic: topicName(channel),
		Data: map[string]string{
			"event":   event,
			"payload": string(data),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM to %s: %w", channel, err)
	}
	return nil
}

// topicName flattens a channel name into the character set FCM topics allow.
func topicName(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}
