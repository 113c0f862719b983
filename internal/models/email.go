package models

type EmailStatus string

const (
	StatusPending EmailStatus = "pending"
	StatusSent    EmailStatus = "sent"
	StatusFailed  EmailStatus = "failed"
)

// ScheduledEmail is one fully-rendered, recipient-specific send job.
// Recipient data is snapshotted at creation so later contact edits or
// deletes cannot change an already-scheduled email.
type ScheduledEmail struct {
	ID             int64             `json:"id"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	Snapshot       map[string]string `json:"recipient_snapshot,omitempty"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	Attachments    []string          `json:"attachments,omitempty"`

	// ScheduleTime is a UTC RFC3339 string. A time in the past means
	// "due immediately".
	ScheduleTime string `json:"schedule_time"`

	Status   EmailStatus `json:"status"`
	ErrorMsg string      `json:"error_msg,omitempty"`

	// ReminderID links a follow-up reminder that the dispatcher
	// dismisses once the email is sent. Zero means no reminder.
	ReminderID int64 `json:"reminder_id,omitempty"`

	CreatedAt string `json:"created_at"`
	SentAt    string `json:"sent_at,omitempty"`
	FailedAt  string `json:"failed_at,omitempty"`
}
