package notifier

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// PubNubNotifier pushes events to the recipient's personal channel so the
// client can react to offers without polling.
type PubNubNotifier struct {
	publish func(channel string, message any) error
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{
		publish: func(channel string, message any) error {
			_, status, err := pn.Publish().
				Channel(channel).
				Message(message).
				Execute()
			if err != nil {
				return err
			}
			if status.StatusCode >= 400 {
				return fmt.Errorf("pubnub publish: status %d", status.StatusCode)
			}
			return nil
		},
	}
}

// NewPubNubClient builds a publish-only client.
func NewPubNubClient(publishKey, subscribeKey, secretKey, userID string) *pubnub.PubNub {
	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	cfg.SecretKey = secretKey

	return pubnub.NewPubNub(cfg)
}

func UserChannel(userID string) string {
	return "user-" + userID
}

func (n *PubNubNotifier) Notify(_ context.Context, event domain.DomainEvent) error {
	if event.Recipient() == "" {
		return nil
	}

	return n.publish(UserChannel(event.Recipient()), map[string]any{
		"type":    event.Type(),
		"at":      event.OccurredAt(),
		"payload": event,
	})
}
