// internal/models/notification.go
package models

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// Notification is the record of one delivery attempt to an employee.
type Notification struct {
	ID          string              `json:"id"`
	RecipientID string              `json:"recipient_id"`
	Type        string              `json:"type"` // "application_status_changed"
	Channel     NotificationChannel `json:"channel"`
	Status      string              `json:"status"` // "sent", "failed", "skipped"
	MessageID   string              `json:"message_id,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type NotificationTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMS     string `json:"sms"`
}
