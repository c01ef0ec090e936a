package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// ClientPayload carries the client details of a quote
type ClientPayload struct {
	Name            string `json:"name" binding:"required,min=1,max=200"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone" binding:"omitempty,max=50"`
	Address         string `json:"address" binding:"omitempty,max=500"`
	TaxID           string `json:"tax_id" binding:"omitempty,max=50"`
	ResponsibleName string `json:"responsible_name" binding:"omitempty,max=200"`
}

func (p ClientPayload) toDomain() quote.ClientDetails {
	return quote.ClientDetails{
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		Address:         p.Address,
		TaxID:           p.TaxID,
		ResponsibleName: p.ResponsibleName,
	}
}

// QuoteItemInput represents a line item in create and update requests.
// Totals and discount flags are always derived server-side.
type QuoteItemInput struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"omitempty,max=2000"`
	ImageRef    string          `json:"image_ref" binding:"omitempty,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

func toItemInputs(items []QuoteItemInput) []quote.ItemInput {
	inputs := make([]quote.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, quote.ItemInput{
			Name:        item.Name,
			Description: item.Description,
			ImageRef:    item.ImageRef,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			BasePrice:   item.BasePrice,
		})
	}
	return inputs
}

// CreateQuoteRequest represents a request to create a quote
type CreateQuoteRequest struct {
	Client       ClientPayload    `json:"client" binding:"required"`
	Items        []QuoteItemInput `json:"items" binding:"omitempty,dive"`
	TaxRate      decimal.Decimal  `json:"tax_rate"`
	Fees         decimal.Decimal  `json:"fees"`
	ValidityDays *int             `json:"validity_days" binding:"omitempty,min=1,max=365"`
	Observations string           `json:"observations" binding:"omitempty,max=5000"`
}

// UpdateQuoteRequest represents a partial quote update. Nil fields are
// left unchanged; a non-nil Items replaces the whole item set.
type UpdateQuoteRequest struct {
	Client       *ClientPayload   `json:"client"`
	Items        []QuoteItemInput `json:"items" binding:"omitempty,dive"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	Fees         *decimal.Decimal `json:"fees"`
	ValidityDays *int             `json:"validity_days" binding:"omitempty,min=1,max=365"`
	Observations *string          `json:"observations"`
}

// RejectQuoteRequest represents a request to reject a quote
type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SignQuoteRequest represents a public signing submission.
// ImageData is the signature drawing, base64 encoded, optionally as a
// data URL.
type SignQuoteRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=200"`
	ImageData string `json:"image_data" binding:"required"`
}

// QuoteListFilter represents filter options for quote lists
type QuoteListFilter struct {
	Search   string        `form:"search"`
	Status   *quote.Status `form:"status"`
	Page     int           `form:"page" binding:"omitempty,min=1"`
	PageSize int           `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string        `form:"order_by"`
	OrderDir string        `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ==================== Response DTOs ====================

// QuoteItemResponse represents a line item in API responses
type QuoteItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	ImageRef             string          `json:"image_ref,omitempty"`
	Quantity             decimal.Decimal `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	BasePrice            decimal.Decimal `json:"base_price"`
	Total                decimal.Decimal `json:"total"`
	HasExcessiveDiscount bool            `json:"has_excessive_discount"`
}

// FinancialsResponse represents the derived financial totals of a quote
type FinancialsResponse struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Fees      decimal.Decimal `json:"fees"`
	Total     decimal.Decimal `json:"total"`
}

// TimelineEventResponse represents one audit trail entry
type TimelineEventResponse struct {
	Sequence    int       `json:"sequence"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// SignatureResponse represents the recorded signature of a quote
type SignatureResponse struct {
	Name     string    `json:"name"`
	ImageKey string    `json:"image_key"`
	SignedAt time.Time `json:"signed_at"`
}

// QuoteResponse represents a quote in privileged API responses
type QuoteResponse struct {
	ID               uuid.UUID               `json:"id"`
	PublicID         string                  `json:"public_id"`
	Client           ClientPayload           `json:"client"`
	Items            []QuoteItemResponse     `json:"items"`
	Financials       FinancialsResponse      `json:"financials"`
	Status           string                  `json:"status"`
	RequiresApproval bool                    `json:"requires_approval"`
	Timeline         []TimelineEventResponse `json:"timeline"`
	Observations     string                  `json:"observations,omitempty"`
	Signature        *SignatureResponse      `json:"signature,omitempty"`
	ValidUntil       time.Time               `json:"valid_until"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	Version          int                     `json:"version"`
}

// QuoteListItemResponse represents a quote in list responses (less detail)
type QuoteListItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	PublicID         string          `json:"public_id"`
	ClientName       string          `json:"client_name"`
	Status           string          `json:"status"`
	RequiresApproval bool            `json:"requires_approval"`
	ItemCount        int             `json:"item_count"`
	Total            decimal.Decimal `json:"total"`
	ValidUntil       time.Time       `json:"valid_until"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// QuoteStatsResponse summarizes a tenant's quotes per status
type QuoteStatsResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ==================== Public (redacted) DTOs ====================

// PublicQuoteItemResponse is the client-facing view of a line item.
// Base prices and discount flags never leave the privileged surface.
type PublicQuoteItemResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageRef    string          `json:"image_ref,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// PublicQuoteResponse is the redacted projection served on the public
// signing link. It carries no internal id, no timeline, no tax id, and
// no approval or discount information.
type PublicQuoteResponse struct {
	PublicID     string                    `json:"public_id"`
	ClientName   string                    `json:"client_name"`
	Items        []PublicQuoteItemResponse `json:"items"`
	Financials   FinancialsResponse        `json:"financials"`
	Status       string                    `json:"status"`
	Signable     bool                      `json:"signable"`
	Observations string                    `json:"observations,omitempty"`
	ValidUntil   time.Time                 `json:"valid_until"`
	SignerName   string                    `json:"signer_name,omitempty"`
	SignedAt     *time.Time                `json:"signed_at,omitempty"`
}

// ==================== Mapping functions ====================

func toFinancialsResponse(f quote.Financials) FinancialsResponse {
	return FinancialsResponse{
		Subtotal:  f.Subtotal,
		TaxRate:   f.TaxRate,
		TaxAmount: f.TaxAmount,
		Fees:      f.Fees,
		Total:     f.Total,
	}
}

// ToQuoteResponse converts a quote aggregate to the privileged response DTO
func ToQuoteResponse(q *quote.Quote) QuoteResponse {
	items := make([]QuoteItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, QuoteItemResponse{
			ID:                   item.ID,
			Name:                 item.Name,
			Description:          item.Description,
			ImageRef:             item.ImageRef,
			Quantity:             item.Quantity,
			UnitPrice:            item.UnitPrice,
			BasePrice:            item.BasePrice,
			Total:                item.Total,
			HasExcessiveDiscount: item.HasExcessiveDiscount,
		})
	}

	timeline := make([]TimelineEventResponse, 0, len(q.Timeline))
	for _, entry := range q.Timeline {
		timeline = append(timeline, TimelineEventResponse{
			Sequence:    entry.Sequence,
			Action:      entry.Action.String(),
			Description: entry.Description,
			Timestamp:   entry.Timestamp,
		})
	}

	var signature *SignatureResponse
	if q.Signature != nil {
		signature = &SignatureResponse{
			Name:     q.Signature.Name,
			ImageKey: q.Signature.ImageKey,
			SignedAt: q.Signature.SignedAt,
		}
	}

	return QuoteResponse{
		ID:       q.ID,
		PublicID: q.PublicID,
		Client: ClientPayload{
			Name:            q.Client.Name,
			Email:           q.Client.Email,
			Phone:           q.Client.Phone,
			Address:         q.Client.Address,
			TaxID:           q.Client.TaxID,
			ResponsibleName: q.Client.ResponsibleName,
		},
		Items:            items,
		Financials:       toFinancialsResponse(q.Financials),
		Status:           q.Status.String(),
		RequiresApproval: q.RequiresApproval,
		Timeline:         timeline,
		Observations:     q.Observations,
		Signature:        signature,
		ValidUntil:       q.ValidUntil,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
		Version:          q.GetVersion(),
	}
}

// ToQuoteListItemResponse converts a quote to the list item DTO
func ToQuoteListItemResponse(q *quote.Quote) QuoteListItemResponse {
	return QuoteListItemResponse{
		ID:               q.ID,
		PublicID:         q.PublicID,
		ClientName:       q.Client.Name,
		Status:           q.Status.String(),
		RequiresApproval: q.RequiresApproval,
		ItemCount:        q.ItemCount(),
		Total:            q.Financials.Total,
		ValidUntil:       q.ValidUntil,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

// ToQuoteListItemResponses converts a slice of quotes to list item DTOs
func ToQuoteListItemResponses(quotes []*quote.Quote) []QuoteListItemResponse {
	responses := make([]QuoteListItemResponse, 0, len(quotes))
	for _, q := range quotes {
		responses = append(responses, ToQuoteListItemResponse(q))
	}
	return responses
}

// ToPublicQuoteResponse converts a quote to the redacted public projection
func ToPublicQuoteResponse(q *quote.Quote) PublicQuoteResponse {
	items := make([]PublicQuoteItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, PublicQuoteItemResponse{
			Name:        item.Name,
			Description: item.Description,
			ImageRef:    item.ImageRef,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	response := PublicQuoteResponse{
		PublicID:     q.PublicID,
		ClientName:   q.Client.Name,
		Items:        items,
		Financials:   toFinancialsResponse(q.Financials),
		Status:       publicStatus(q.Status),
		Signable:     q.CanSign() == nil,
		Observations: q.Observations,
		ValidUntil:   q.ValidUntil,
	}
	if q.Signature != nil {
		response.SignerName = q.Signature.Name
		signedAt := q.Signature.SignedAt
		response.SignedAt = &signedAt
	}
	return response
}

// publicStatus collapses every pre-signature state into one bucket. The
// raw status would tell the client whether a quote sits in the internal
// review gate, which is privileged information.
func publicStatus(s quote.Status) string {
	switch s {
	case quote.StatusSigned, quote.StatusRejected:
		return s.String()
	default:
		return "PENDING"
	}
}
