package event

const NotificationDispatchRequestedDestination string = "notification_dispatch_requested"
const NotificationDispatchRequestedConsumerNotification string = "notification_dispatch_requested_notification"

// NotificationDispatchRequestedMessage asks the notification module to run a cycle now.
type NotificationDispatchRequestedMessage struct {
	RequestedBy int64  `json:"requested_by"`
	Reason      string `json:"reason"`
}
