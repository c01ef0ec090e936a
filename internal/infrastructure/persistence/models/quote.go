package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model for the Quote aggregate root.
// The public id carries a global unique index: public links address a
// quote by public id alone, so uniqueness cannot be per tenant.
type QuoteModel struct {
	TenantAggregateModel
	PublicID              string               `gorm:"type:varchar(20);not null;uniqueIndex:idx_quotes_public_id"`
	ClientName            string               `gorm:"type:varchar(200);not null"`
	ClientEmail           string               `gorm:"type:varchar(200)"`
	ClientPhone           string               `gorm:"type:varchar(50)"`
	ClientAddress         string               `gorm:"type:varchar(500)"`
	ClientTaxID           string               `gorm:"type:varchar(50)"`
	ClientResponsibleName string               `gorm:"type:varchar(200)"`
	Items                 []QuoteItemModel     `gorm:"foreignKey:QuoteID;references:ID"`
	Timeline              []QuoteTimelineModel `gorm:"foreignKey:QuoteID;references:ID"`
	Subtotal              decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate               decimal.Decimal      `gorm:"type:decimal(8,4);not null;default:0"`
	TaxAmount             decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Fees                  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Total                 decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status                quote.Status         `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	RequiresApproval      bool                 `gorm:"not null;default:false"`
	Observations          string               `gorm:"type:text"`
	ValidUntil            time.Time            `gorm:"not null"`
	SignerName            string               `gorm:"type:varchar(200)"`
	SignatureImageKey     string               `gorm:"type:varchar(500)"`
	SignedAt              *time.Time
	SignatureOrigin       string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote aggregate
func (m *QuoteModel) ToDomain() *quote.Quote {
	q := &quote.Quote{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID: m.TenantID,
		},
		PublicID: m.PublicID,
		Client: quote.ClientDetails{
			Name:            m.ClientName,
			Email:           m.ClientEmail,
			Phone:           m.ClientPhone,
			Address:         m.ClientAddress,
			TaxID:           m.ClientTaxID,
			ResponsibleName: m.ClientResponsibleName,
		},
		Financials: quote.Financials{
			Subtotal:  m.Subtotal,
			TaxRate:   m.TaxRate,
			TaxAmount: m.TaxAmount,
			Fees:      m.Fees,
			Total:     m.Total,
		},
		Status:           m.Status,
		RequiresApproval: m.RequiresApproval,
		Observations:     m.Observations,
		ValidUntil:       m.ValidUntil,
		Items:            make([]quote.QuoteItem, len(m.Items)),
		Timeline:         make([]quote.TimelineEvent, len(m.Timeline)),
	}
	for i, item := range m.Items {
		q.Items[i] = item.ToDomain()
	}
	for i, entry := range m.Timeline {
		q.Timeline[i] = entry.ToDomain()
	}
	if m.SignedAt != nil {
		q.Signature = &quote.Signature{
			Name:          m.SignerName,
			ImageKey:      m.SignatureImageKey,
			SignedAt:      *m.SignedAt,
			OriginAddress: m.SignatureOrigin,
		}
	}
	return q
}

// FromDomain populates the persistence model from a domain Quote aggregate
func (m *QuoteModel) FromDomain(q *quote.Quote) {
	m.FromDomainTenantAggregateRoot(q.TenantAggregateRoot)
	m.PublicID = q.PublicID
	m.ClientName = q.Client.Name
	m.ClientEmail = q.Client.Email
	m.ClientPhone = q.Client.Phone
	m.ClientAddress = q.Client.Address
	m.ClientTaxID = q.Client.TaxID
	m.ClientResponsibleName = q.Client.ResponsibleName
	m.Subtotal = q.Financials.Subtotal
	m.TaxRate = q.Financials.TaxRate
	m.TaxAmount = q.Financials.TaxAmount
	m.Fees = q.Financials.Fees
	m.Total = q.Financials.Total
	m.Status = q.Status
	m.RequiresApproval = q.RequiresApproval
	m.Observations = q.Observations
	m.ValidUntil = q.ValidUntil
	if q.Signature != nil {
		m.SignerName = q.Signature.Name
		m.SignatureImageKey = q.Signature.ImageKey
		signedAt := q.Signature.SignedAt
		m.SignedAt = &signedAt
		m.SignatureOrigin = q.Signature.OriginAddress
	} else {
		m.SignerName = ""
		m.SignatureImageKey = ""
		m.SignedAt = nil
		m.SignatureOrigin = ""
	}
	m.Items = make([]QuoteItemModel, len(q.Items))
	for i := range q.Items {
		m.Items[i] = QuoteItemModelFromDomain(q.ID, &q.Items[i])
	}
	m.Timeline = make([]QuoteTimelineModel, len(q.Timeline))
	for i := range q.Timeline {
		m.Timeline[i] = QuoteTimelineModelFromDomain(&q.Timeline[i])
	}
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote
func QuoteModelFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// QuoteItemModel is the persistence model for a quote line item
type QuoteItemModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primary_key"`
	QuoteID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name                 string          `gorm:"type:varchar(200);not null"`
	Description          string          `gorm:"type:text"`
	ImageRef             string          `gorm:"type:varchar(500)"`
	Quantity             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BasePrice            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	HasExcessiveDiscount bool            `gorm:"not null;default:false"`
	CreatedAt            time.Time       `gorm:"not null"`
	UpdatedAt            time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// ToDomain converts the persistence model to a domain QuoteItem
func (m *QuoteItemModel) ToDomain() quote.QuoteItem {
	return quote.QuoteItem{
		ID:                   m.ID,
		QuoteID:              m.QuoteID,
		Name:                 m.Name,
		Description:          m.Description,
		ImageRef:             m.ImageRef,
		Quantity:             m.Quantity,
		UnitPrice:            m.UnitPrice,
		BasePrice:            m.BasePrice,
		Total:                m.Total,
		HasExcessiveDiscount: m.HasExcessiveDiscount,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// QuoteItemModelFromDomain creates a persistence model from a domain QuoteItem
func QuoteItemModelFromDomain(quoteID uuid.UUID, i *quote.QuoteItem) QuoteItemModel {
	return QuoteItemModel{
		ID:                   i.ID,
		QuoteID:              quoteID,
		Name:                 i.Name,
		Description:          i.Description,
		ImageRef:             i.ImageRef,
		Quantity:             i.Quantity,
		UnitPrice:            i.UnitPrice,
		BasePrice:            i.BasePrice,
		Total:                i.Total,
		HasExcessiveDiscount: i.HasExcessiveDiscount,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

// QuoteTimelineModel is the persistence model for one audit trail entry.
// Rows are insert-only; the repository never updates or deletes them.
type QuoteTimelineModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	QuoteID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quote_timeline_seq,priority:1"`
	Sequence    int       `gorm:"not null;uniqueIndex:idx_quote_timeline_seq,priority:2"`
	Action      string    `gorm:"type:varchar(20);not null"`
	Description string    `gorm:"type:varchar(500)"`
	Timestamp   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteTimelineModel) TableName() string {
	return "quote_timeline_events"
}

// ToDomain converts the persistence model to a domain TimelineEvent
func (m *QuoteTimelineModel) ToDomain() quote.TimelineEvent {
	return quote.TimelineEvent{
		ID:          m.ID,
		QuoteID:     m.QuoteID,
		Sequence:    m.Sequence,
		Action:      quote.TimelineAction(m.Action),
		Description: m.Description,
		Timestamp:   m.Timestamp,
	}
}

// QuoteTimelineModelFromDomain creates a persistence model from a domain TimelineEvent
func QuoteTimelineModelFromDomain(e *quote.TimelineEvent) QuoteTimelineModel {
	return QuoteTimelineModel{
		ID:          e.ID,
		QuoteID:     e.QuoteID,
		Sequence:    e.Sequence,
		Action:      e.Action.String(),
		Description: e.Description,
		Timestamp:   e.Timestamp,
	}
}
