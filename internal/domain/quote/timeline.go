package quote

import (
	"time"

	"github.com/google/uuid"
)

// TimelineAction identifies the kind of lifecycle event recorded on a quote
type TimelineAction string

const (
	TimelineActionCreated  TimelineAction = "CREATED"
	TimelineActionUpdated  TimelineAction = "UPDATED"
	TimelineActionApproved TimelineAction = "APPROVED"
	TimelineActionRejected TimelineAction = "REJECTED"
	TimelineActionSigned   TimelineAction = "SIGNED"
)

// IsValid checks if the action is a known TimelineAction
func (a TimelineAction) IsValid() bool {
	switch a {
	case TimelineActionCreated, TimelineActionUpdated, TimelineActionApproved,
		TimelineActionRejected, TimelineActionSigned:
		return true
	}
	return false
}

// String returns the string representation of TimelineAction
func (a TimelineAction) String() string {
	return string(a)
}

// TimelineEvent is one entry of a quote's append-only audit trail.
// Entries are immutable once appended. Total order is guaranteed by the
// explicit Sequence number, not by the timestamp alone, since timestamps
// may collide at sub-millisecond resolution.
type TimelineEvent struct {
	ID          uuid.UUID
	QuoteID     uuid.UUID
	Sequence    int
	Action      TimelineAction
	Description string
	Timestamp   time.Time
}

// NewTimelineEvent creates a timeline entry with the given sequence number
func NewTimelineEvent(quoteID uuid.UUID, sequence int, action TimelineAction, description string) TimelineEvent {
	return TimelineEvent{
		ID:          uuid.New(),
		QuoteID:     quoteID,
		Sequence:    sequence,
		Action:      action,
		Description: description,
		Timestamp:   time.Now(),
	}
}
