package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	domain "github.com/bloomgoods/api/internal/domain"
)

// PubSubNotificationDispatcher publishes order status notifications to a
// Pub/Sub topic consumed by the transactional email worker. Dispatch is
// best-effort: failures are reported in the DeliveryResult, never raised.
type PubSubNotificationDispatcher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotificationDispatcher constructs a Pub/Sub backed dispatcher.
func NewPubSubNotificationDispatcher(topic *pubsub.Topic) (*PubSubNotificationDispatcher, error) {
	if topic == nil {
		return nil, errors.New("notification dispatcher: topic is required")
	}
	return &PubSubNotificationDispatcher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

type statusNotificationMessage struct {
	OrderID         string    `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	Email           string    `json:"email"`
	PreviousStatus  string    `json:"previousStatus"`
	NewStatus       string    `json:"newStatus"`
	TrackingNumber  string    `json:"trackingNumber,omitempty"`
	FeedbackRequest bool      `json:"feedbackRequest"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Dispatch enqueues the notification message on the configured topic.
func (d *PubSubNotificationDispatcher) Dispatch(ctx context.Context, notification domain.StatusNotification) domain.DeliveryResult {
	if d == nil || d.topic == nil {
		return domain.DeliveryResult{Sent: false, Error: "notification dispatcher: not initialised"}
	}

	data, err := d.marshal(statusNotificationMessage{
		OrderID:         notification.OrderID,
		OrderNumber:     notification.OrderNumber,
		Email:           notification.Email,
		PreviousStatus:  string(notification.PreviousStatus),
		NewStatus:       string(notification.NewStatus),
		TrackingNumber:  notification.TrackingNumber,
		FeedbackRequest: notification.FeedbackRequest,
		OccurredAt:      notification.OccurredAt,
	})
	if err != nil {
		return domain.DeliveryResult{Sent: false, Error: fmt.Sprintf("marshal notification: %v", err)}
	}

	attrs := make(map[string]string)
	setAttr(attrs, "orderId", notification.OrderID)
	setAttr(attrs, "orderNumber", notification.OrderNumber)
	setAttr(attrs, "newStatus", string(notification.NewStatus))
	if notification.FeedbackRequest {
		attrs["template"] = "feedback_request"
	} else {
		attrs["template"] = "status_update"
	}

	result := d.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return domain.DeliveryResult{Sent: false, Error: fmt.Sprintf("publish notification: %v", err)}
	}
	return domain.DeliveryResult{Sent: true}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
