package notify

import "context"

// Reminder is one visible medicine reminder: the notification slot it lives
// under in the external service, the chat it belongs to, and the display
// context carried over from the armed timer.
type Reminder struct {
	NotificationID int32
	ChatID         int64
	ScheduleID     int64
	MedicineID     int64
	MedicineName   string
	CatName        string
	Dosage         string
	Snoozed        bool
	SnoozeMinutes  int
}

// Notifier is the external notification boundary. Show replaces any
// notification already visible under the same id; Cancel of an unknown id
// is a no-op.
type Notifier interface {
	Show(ctx context.Context, r Reminder) error
	Cancel(ctx context.Context, notificationID int32) error
}
