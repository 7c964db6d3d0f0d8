package worker

import (
	"github.com/spec-kit/ticket-priority/internal/service"
)

// StartNotificationWorker registers the dataset event handlers. Handlers run
// synchronously on the publishing goroutine, which for the cache coordinator
// is the detached fetch, never a request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
