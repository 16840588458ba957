package messaging

import (
	"context"

	fbmessaging "firebase.google.com/go/v4/messaging"

	"dialist/internal/domain/repository"
	"dialist/pkg/errors"
	"dialist/pkg/logger"
)

// PushNotifier implements usecase.Notifier over Firebase Cloud
// Messaging. Users without a registered device token are skipped.
type PushNotifier struct {
	client   *fbmessaging.Client
	userRepo repository.UserRepository
}

func NewPushNotifier(client *fbmessaging.Client, userRepo repository.UserRepository) *PushNotifier {
	return &PushNotifier{
		client:   client,
		userRepo: userRepo,
	}
}

func (n *PushNotifier) Notify(ctx context.Context, userID, kind, title, body string, data map[string]string) error {
	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.FCMToken == "" {
		logger.Debug("User %s has no device token, skipping %s notification", userID, kind)
		return nil
	}

	if data == nil {
		data = map[string]string{}
	}
	data["kind"] = kind

	message := &fbmessaging.Message{
		Token: user.FCMToken,
		Notification: &fbmessaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := n.client.Send(ctx, message); err != nil {
		return errors.Internal("Failed to send push notification", err)
	}

	return nil
}
