package service

import (
	"context"
	"fmt"
	"strings"

	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/internal/websocket"
	"ai-plantcare-be/pkg/events"
	pkgNats "ai-plantcare-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification websocket.Notification)
	Broadcast(notification websocket.Notification)
}

// NotificationService bridges the event bus to connected websocket clients
// so users see diagnosis outcomes without polling.
type NotificationService struct {
	subscriber *pkgNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pkgNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// NATS subjects carry the "events." stream prefix.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	uidStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("NotificationService", fmt.Sprintf("Event %s has no valid user_id, skipping", typeCode), nil)
		return nil
	}

	var notif websocket.Notification
	switch typeCode {
	case events.TypeDiagnosisCompleted:
		plantName, _ := payload["plant_name"].(string)
		condition, _ := payload["condition"].(string)
		notif = websocket.Notification{
			Type:     "diagnosis.completed",
			Title:    "Diagnosis ready",
			Message:  fmt.Sprintf("Your %s has been diagnosed: %s", plantName, condition),
			Metadata: payload,
		}
	case events.TypeDiagnosisFailed:
		message, _ := payload["message"].(string)
		notif = websocket.Notification{
			Type:     "diagnosis.failed",
			Title:    "Diagnosis failed",
			Message:  message,
			Metadata: payload,
		}
	default:
		return nil
	}

	if s.delivery != nil {
		s.delivery.Send(userID, notif)
	}
	return nil
}
