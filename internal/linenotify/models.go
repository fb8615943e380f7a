package linenotify

import (
	"time"
)

// Status is the delivery state of one queued notification.
// pending -> processing -> sent | failed; failed records re-enter
// processing once their retry time comes due.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Notification is one queued LINE push for one group member
type Notification struct {
	ID          int64     `json:"id" db:"id"`
	GroupID     int64     `json:"group_id" db:"group_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	LineUserID  string    `json:"line_user_id" db:"line_user_id"`
	MessageText string    `json:"message_text" db:"message_text"`
	Status      Status    `json:"status" db:"status"`
	Attempts    int        `json:"attempts" db:"attempts"`
	NextRetryAt time.Time  `json:"next_retry_at" db:"next_retry_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	LastError   *string    `json:"last_error,omitempty" db:"last_error"`
	SentAt      *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// DispatchStats summarizes one dispatcher pass
type DispatchStats struct {
	Released int `json:"released"` // stale claims returned to the pool
	Claimed  int `json:"claimed"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}
