package alert

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// messageSender is the subset of *messaging.Client the publisher uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPublisher pushes events to a Firebase Cloud Messaging topic that
// on-duty staff devices subscribe to.
type FCMPublisher struct {
	sender messageSender
	topic  string
}

// NewFCMPublisher initializes the Firebase messaging client.
func NewFCMPublisher(ctx context.Context, projectID, credentialsFile, topic string) (*FCMPublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase messaging: %w", err)
	}
	return &FCMPublisher{sender: client, topic: topic}, nil
}

// Name implements Publisher.
func (p *FCMPublisher) Name() string { return "fcm" }

// Publish implements Publisher.
func (p *FCMPublisher) Publish(ctx context.Context, ev Event) error {
	msg := &messaging.Message{
		Topic: p.topic,
		Data: map[string]string{
			"type":         string(ev.Type),
			"alert_id":     ev.AlertID,
			"principal_id": ev.PrincipalID,
			"state":        string(ev.State),
		},
	}
	if ev.Type == EventCreated {
		msg.Notification = &messaging.Notification{
			Title: "Emergency alert",
			Body:  ev.Message,
		}
	}

	if _, err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
