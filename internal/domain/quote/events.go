package quote

import (
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for the quote aggregate
const (
	EventQuoteCreated  = "quote.created"
	EventQuoteApproved = "quote.approved"
	EventQuoteRejected = "quote.rejected"
	EventQuoteSigned   = "quote.signed"
)

const aggregateType = "Quote"

// QuoteCreatedEvent is emitted when a quote is created
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	ClientName       string          `json:"client_name"`
	Total            decimal.Decimal `json:"total"`
	RequiresApproval bool            `json:"requires_approval"`
}

// NewQuoteCreatedEvent creates a quote created event
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventQuoteCreated, aggregateType, q.ID, q.TenantID),
		ClientName:       q.Client.Name,
		Total:            q.Financials.Total,
		RequiresApproval: q.RequiresApproval,
	}
}

// QuoteApprovedEvent is emitted when a quote passes internal review
type QuoteApprovedEvent struct {
	shared.BaseDomainEvent
	PublicID string `json:"public_id"`
}

// NewQuoteApprovedEvent creates a quote approved event
func NewQuoteApprovedEvent(q *Quote) *QuoteApprovedEvent {
	return &QuoteApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventQuoteApproved, aggregateType, q.ID, q.TenantID),
		PublicID:        q.PublicID,
	}
}

// QuoteRejectedEvent is emitted when a quote is rejected
type QuoteRejectedEvent struct {
	shared.BaseDomainEvent
	PublicID string `json:"public_id"`
	Reason   string `json:"reason"`
}

// NewQuoteRejectedEvent creates a quote rejected event
func NewQuoteRejectedEvent(q *Quote, reason string) *QuoteRejectedEvent {
	return &QuoteRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventQuoteRejected, aggregateType, q.ID, q.TenantID),
		PublicID:        q.PublicID,
		Reason:          reason,
	}
}

// QuoteSignedEvent is emitted when a client signs a quote
type QuoteSignedEvent struct {
	shared.BaseDomainEvent
	PublicID   string          `json:"public_id"`
	SignerName string          `json:"signer_name"`
	Total      decimal.Decimal `json:"total"`
}

// NewQuoteSignedEvent creates a quote signed event
func NewQuoteSignedEvent(q *Quote) *QuoteSignedEvent {
	return &QuoteSignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventQuoteSigned, aggregateType, q.ID, q.TenantID),
		PublicID:        q.PublicID,
		SignerName:      q.Signature.Name,
		Total:           q.Financials.Total,
	}
}
