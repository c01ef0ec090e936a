package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ClientDetails holds the client identity and contact fields of a quote
type ClientDetails struct {
	Name            string
	Email           string
	Phone           string
	Address         string
	TaxID           string
	ResponsibleName string
}

// validate checks the client fields that must be present on every quote
func (c ClientDetails) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewValidationError("Client name cannot be empty")
	}
	if len(c.Name) > 200 {
		return shared.NewValidationError("Client name cannot exceed 200 characters")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return shared.NewValidationError("Client email is not a valid address")
	}
	return nil
}

// ItemInput describes a quote line item as provided by a caller.
// Derived fields are computed by the aggregate, never accepted as input.
type ItemInput struct {
	Name        string
	Description string
	ImageRef    string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	BasePrice   decimal.Decimal
}

// QuoteItem represents a priced line item in a quote.
// Total and HasExcessiveDiscount are derived and recomputed together on
// every item change; they are never stale relative to the item fields.
type QuoteItem struct {
	ID                   uuid.UUID
	QuoteID              uuid.UUID
	Name                 string
	Description          string
	ImageRef             string
	Quantity             decimal.Decimal
	UnitPrice            decimal.Decimal
	BasePrice            decimal.Decimal
	Total                decimal.Decimal
	HasExcessiveDiscount bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewQuoteItem creates a quote item with its derived fields computed
func NewQuoteItem(quoteID uuid.UUID, input ItemInput) (*QuoteItem, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.NewValidationError("Item name cannot be empty")
	}
	if len(input.Name) > 200 {
		return nil, shared.NewValidationError("Item name cannot exceed 200 characters")
	}

	derived, err := ComputeItemDerived(input.Quantity, input.UnitPrice, input.BasePrice)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &QuoteItem{
		ID:                   uuid.New(),
		QuoteID:              quoteID,
		Name:                 input.Name,
		Description:          input.Description,
		ImageRef:             input.ImageRef,
		Quantity:             input.Quantity,
		UnitPrice:            input.UnitPrice,
		BasePrice:            input.BasePrice,
		Total:                derived.Total,
		HasExcessiveDiscount: derived.HasExcessiveDiscount,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// Signature records the client-side signing of a quote.
// The image payload lives in object storage; only its key is kept here.
type Signature struct {
	Name          string
	ImageKey      string
	SignedAt      time.Time
	OriginAddress string
}

// Quote is the aggregate root for a commercial proposal.
// All status changes go through the transition table in Status; derived
// fields (Financials, RequiresApproval, item totals) are recomputed by the
// aggregate and never written from outside.
type Quote struct {
	shared.TenantAggregateRoot
	PublicID         string
	Client           ClientDetails
	ValidUntil       time.Time
	Items            []QuoteItem
	Financials       Financials
	Status           Status
	RequiresApproval bool
	Timeline         []TimelineEvent
	Observations     string
	Signature        *Signature
}

// NewQuote creates a quote from creation input. Items, financials, and
// the approval requirement are derived up front; the initial status is
// INTERNAL_REVIEW when any item carries an excessive discount, DRAFT
// otherwise. The public id is assigned by the repository at insert time,
// inside the same transaction that generates it.
func NewQuote(tenantID uuid.UUID, client ClientDetails, items []ItemInput, validityDays int, taxRate, fees decimal.Decimal, observations string) (*Quote, error) {
	if err := client.validate(); err != nil {
		return nil, err
	}
	if validityDays <= 0 {
		return nil, shared.NewValidationError("Validity days must be positive")
	}

	q := &Quote{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Client:              client,
		Observations:        observations,
	}
	q.ValidUntil = q.CreatedAt.Add(time.Duration(validityDays) * 24 * time.Hour)

	quoteItems, requiresApproval, err := buildItems(q.ID, items)
	if err != nil {
		return nil, err
	}
	financials, err := ComputeFinancials(quoteItems, taxRate, fees)
	if err != nil {
		return nil, err
	}

	q.Items = quoteItems
	q.Financials = financials
	q.RequiresApproval = requiresApproval
	if requiresApproval {
		q.Status = StatusInternalReview
	} else {
		q.Status = StatusDraft
	}

	q.appendTimeline(TimelineActionCreated, createdDescription(requiresApproval))
	q.AddDomainEvent(NewQuoteCreatedEvent(q))

	return q, nil
}

// UpdateParams describes a partial update of a quote.
// Nil fields are left unchanged. Status is deliberately absent: all
// post-creation status transitions are explicit operator calls.
type UpdateParams struct {
	Client       *ClientDetails
	Items        []ItemInput
	TaxRate      *decimal.Decimal
	Fees         *decimal.Decimal
	ValidityDays *int
	Observations *string
}

// Update applies a partial update. Every guard and derivation runs before
// any field is mutated, so a failed update leaves the quote untouched.
// Exactly one UPDATED timeline entry is appended on success.
func (q *Quote) Update(params UpdateParams) error {
	if q.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update quote in %s status", q.Status))
	}

	if params.Client != nil {
		if err := params.Client.validate(); err != nil {
			return err
		}
	}
	if params.ValidityDays != nil && *params.ValidityDays <= 0 {
		return shared.NewValidationError("Validity days must be positive")
	}

	newItems := q.Items
	requiresApproval := q.RequiresApproval
	if params.Items != nil {
		var err error
		newItems, requiresApproval, err = buildItems(q.ID, params.Items)
		if err != nil {
			return err
		}
	}

	taxRate := q.Financials.TaxRate
	if params.TaxRate != nil {
		taxRate = *params.TaxRate
	}
	fees := q.Financials.Fees
	if params.Fees != nil {
		fees = *params.Fees
	}
	financials, err := ComputeFinancials(newItems, taxRate, fees)
	if err != nil {
		return err
	}

	// All inputs validated; apply the staged state.
	if params.Client != nil {
		q.Client = *params.Client
	}
	if params.ValidityDays != nil {
		q.ValidUntil = q.CreatedAt.Add(time.Duration(*params.ValidityDays) * 24 * time.Hour)
	}
	if params.Observations != nil {
		q.Observations = *params.Observations
	}
	q.Items = newItems
	q.Financials = financials
	q.RequiresApproval = requiresApproval
	q.UpdatedAt = time.Now()

	q.appendTimeline(TimelineActionUpdated, "Quote updated")

	return nil
}

// ApproveInternal passes the internal review gate, transitioning from
// INTERNAL_REVIEW to APPROVED. Invalid from any other state.
func (q *Quote) ApproveInternal() error {
	if !q.Status.CanTransitionTo(StatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve quote in %s status", q.Status))
	}

	q.Status = StatusApproved
	q.UpdatedAt = time.Now()
	q.appendTimeline(TimelineActionApproved, "Quote approved after internal review")
	q.AddDomainEvent(NewQuoteApprovedEvent(q))

	return nil
}

// Reject moves the quote to REJECTED from any non-terminal state
func (q *Quote) Reject(reason string) error {
	if !q.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject quote in %s status", q.Status))
	}

	description := "Quote rejected"
	if reason != "" {
		description = "Quote rejected: " + reason
	}

	q.Status = StatusRejected
	q.UpdatedAt = time.Now()
	q.appendTimeline(TimelineActionRejected, description)
	q.AddDomainEvent(NewQuoteRejectedEvent(q, reason))

	return nil
}

// CanSign checks whether the quote may be signed in its current state.
// Signing again after signature is a distinct error so callers can tell
// a duplicate attempt apart from other invalid transitions.
func (q *Quote) CanSign() error {
	if q.Status == StatusSigned {
		return shared.ErrAlreadySigned
	}
	if !q.Status.CanTransitionTo(StatusSigned) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot sign quote in %s status", q.Status))
	}
	return nil
}

// Sign records the client signature, transitioning DRAFT or APPROVED to
// SIGNED. All guards run before any field changes; a failed sign leaves
// the quote, including its timeline, byte-for-byte unchanged.
func (q *Quote) Sign(name, imageKey, originAddress string) error {
	if err := q.CanSign(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("Signer name cannot be empty")
	}
	if imageKey == "" {
		return shared.NewValidationError("Signature image cannot be empty")
	}

	now := time.Now()
	q.Signature = &Signature{
		Name:          name,
		ImageKey:      imageKey,
		SignedAt:      now,
		OriginAddress: originAddress,
	}
	q.Status = StatusSigned
	q.UpdatedAt = now
	q.appendTimeline(TimelineActionSigned, "Quote signed by "+name)
	q.AddDomainEvent(NewQuoteSignedEvent(q))

	return nil
}

// CanDelete returns true if the quote may be removed. Signed quotes are
// legally-meaningful records and are never hard-deleted.
func (q *Quote) CanDelete() bool {
	return q.Status != StatusSigned
}

// IsDraft returns true if the quote is in draft status
func (q *Quote) IsDraft() bool {
	return q.Status == StatusDraft
}

// IsSigned returns true if the quote has been signed
func (q *Quote) IsSigned() bool {
	return q.Status == StatusSigned
}

// IsExpired returns true if the validity window has passed at the given time
func (q *Quote) IsExpired(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// ItemCount returns the number of line items
func (q *Quote) ItemCount() int {
	return len(q.Items)
}

// GetItem returns an item by its ID, or nil if not present
func (q *Quote) GetItem(itemID uuid.UUID) *QuoteItem {
	for idx := range q.Items {
		if q.Items[idx].ID == itemID {
			return &q.Items[idx]
		}
	}
	return nil
}

// appendTimeline appends one audit entry with the next sequence number.
// The timeline never shrinks and existing entries are never modified.
func (q *Quote) appendTimeline(action TimelineAction, description string) {
	next := 1
	if n := len(q.Timeline); n > 0 {
		next = q.Timeline[n-1].Sequence + 1
	}
	q.Timeline = append(q.Timeline, NewTimelineEvent(q.ID, next, action, description))
}

// buildItems constructs the item set and reports whether any item
// triggers the excessive-discount approval requirement
func buildItems(quoteID uuid.UUID, inputs []ItemInput) ([]QuoteItem, bool, error) {
	items := make([]QuoteItem, 0, len(inputs))
	requiresApproval := false
	for _, input := range inputs {
		item, err := NewQuoteItem(quoteID, input)
		if err != nil {
			return nil, false, err
		}
		if item.HasExcessiveDiscount {
			requiresApproval = true
		}
		items = append(items, *item)
	}
	return items, requiresApproval, nil
}

func createdDescription(requiresApproval bool) string {
	if requiresApproval {
		return "Quote created, pending internal review for excessive discount"
	}
	return "Quote created"
}
