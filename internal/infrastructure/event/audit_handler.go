package event

import (
	"context"

	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes quote lifecycle events to the structured log.
// It gives operators a trace of every state change without touching the
// per-quote timeline stored with the aggregate.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{logger: logger}
}

// EventTypes returns the quote lifecycle events this handler consumes
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		quote.EventQuoteCreated,
		quote.EventQuoteApproved,
		quote.EventQuoteRejected,
		quote.EventQuoteSigned,
	}
}

// Handle logs one lifecycle event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *quote.QuoteCreatedEvent:
		fields = append(fields,
			zap.String("client_name", e.ClientName),
			zap.String("total", e.Total.String()),
			zap.Bool("requires_approval", e.RequiresApproval),
		)
	case *quote.QuoteApprovedEvent:
		fields = append(fields, zap.String("public_id", e.PublicID))
	case *quote.QuoteRejectedEvent:
		fields = append(fields,
			zap.String("public_id", e.PublicID),
			zap.String("reason", e.Reason),
		)
	case *quote.QuoteSignedEvent:
		fields = append(fields,
			zap.String("public_id", e.PublicID),
			zap.String("signer_name", e.SignerName),
			zap.String("total", e.Total.String()),
		)
	}

	h.logger.Info(event.EventType(), fields...)
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
