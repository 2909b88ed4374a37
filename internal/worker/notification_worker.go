package worker

import (
	"github.com/spec-kit/wiki-moderation/internal/events"
	"github.com/spec-kit/wiki-moderation/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartModerationWorker subscribes the entity updater to approvals.
func StartModerationWorker(moderation *service.ModerationService) {
	if moderation == nil {
		return
	}
	moderation.RegisterHandlers()
}

// StartEventRelay forwards every event to an external publisher, e.g. Redis pub/sub.
func StartEventRelay(dispatcher events.Dispatcher, relay events.EventHandler) {
	if dispatcher == nil || relay == nil {
		return
	}
	dispatcher.SubscribeAll(relay)
}
