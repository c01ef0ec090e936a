package quote

// Status represents the lifecycle status of a quote
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusInternalReview Status = "INTERNAL_REVIEW"
	StatusApproved       Status = "APPROVED"
	StatusSigned         Status = "SIGNED"
	StatusRejected       Status = "REJECTED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInternalReview, StatusApproved, StatusSigned, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusSigned || s == StatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusSigned || target == StatusRejected
	case StatusInternalReview:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved:
		return target == StatusSigned || target == StatusRejected
	case StatusSigned, StatusRejected:
		return false // Terminal states
	}
	return false
}
