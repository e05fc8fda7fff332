package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationEvent is the envelope published to the notification
// dispatcher. Delivery and transport are entirely the dispatcher's concern.
type NotificationEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	MemberID  string          `json:"member_id,omitempty"`
	ChargeID  string          `json:"charge_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Notification event names
const (
	NotificationEventRunSummary          = "run.summary"
	NotificationEventWriteOff            = "charge.write_off"
	NotificationEventNeedsMandateReview  = "charge.needs_mandate_review"
	NotificationEventAmbiguousSubmission = "charge.ambiguous_submission"
)

// NotificationEventReminderLevel returns the event name for a dunning
// reminder at the given level, e.g. dunning.reminder.level_2
func NotificationEventReminderLevel(level int) string {
	return fmt.Sprintf("dunning.reminder.level_%d", level)
}
