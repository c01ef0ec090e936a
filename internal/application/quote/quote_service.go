package quote

import (
	"context"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
)

// DefaultValidityDays is applied when a creation request does not set a
// validity window.
const DefaultValidityDays = 30

// QuoteService handles the privileged quote lifecycle operations
type QuoteService struct {
	quoteRepo      quote.Repository
	eventPublisher shared.EventPublisher
	validityDays   int
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(quoteRepo quote.Repository) *QuoteService {
	return &QuoteService{
		quoteRepo:    quoteRepo,
		validityDays: DefaultValidityDays,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDefaultValidityDays overrides the default validity window
func (s *QuoteService) SetDefaultValidityDays(days int) {
	if days > 0 {
		s.validityDays = days
	}
}

// Create creates a new quote. The public id is generated and assigned by
// the repository inside the insert transaction, so it is populated on the
// returned response.
func (s *QuoteService) Create(ctx context.Context, tenantID uuid.UUID, req CreateQuoteRequest) (*QuoteResponse, error) {
	validityDays := s.validityDays
	if req.ValidityDays != nil {
		validityDays = *req.ValidityDays
	}

	q, err := quote.NewQuote(tenantID, req.Client.toDomain(), toItemInputs(req.Items), validityDays, req.TaxRate, req.Fees, req.Observations)
	if err != nil {
		return nil, err
	}

	if err := s.quoteRepo.Create(ctx, q); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, q)

	response := ToQuoteResponse(q)
	return &response, nil
}

// GetByID retrieves a quote by internal id
func (s *QuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(q)
	return &response, nil
}

// List retrieves quotes for a tenant with filtering and pagination
func (s *QuoteService) List(ctx context.Context, tenantID uuid.UUID, filter QuoteListFilter) ([]QuoteListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = filter.Status.String()
	}

	page, err := s.quoteRepo.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToQuoteListItemResponses(page.Items), page.Total, nil
}

// Update applies a partial update to a quote
func (s *QuoteService) Update(ctx context.Context, tenantID, quoteID uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	params := quote.UpdateParams{
		TaxRate:      req.TaxRate,
		Fees:         req.Fees,
		ValidityDays: req.ValidityDays,
		Observations: req.Observations,
	}
	if req.Client != nil {
		client := req.Client.toDomain()
		params.Client = &client
	}
	if req.Items != nil {
		params.Items = toItemInputs(req.Items)
	}

	if err := q.Update(params); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}

	response := ToQuoteResponse(q)
	return &response, nil
}

// Approve passes a quote through the internal review gate
func (s *QuoteService) Approve(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.ApproveInternal(); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, q)

	response := ToQuoteResponse(q)
	return &response, nil
}

// Reject rejects a quote from any non-terminal status
func (s *QuoteService) Reject(ctx context.Context, tenantID, quoteID uuid.UUID, req RejectQuoteRequest) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := q.Reject(req.Reason); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, q)

	response := ToQuoteResponse(q)
	return &response, nil
}

// Delete removes a quote. Signed quotes are refused; they are the legal
// record of an accepted proposal.
func (s *QuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	q, err := s.quoteRepo.FindByID(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}

	if !q.CanDelete() {
		return shared.NewDomainError("INVALID_STATE", "Signed quotes cannot be deleted")
	}

	return s.quoteRepo.Delete(ctx, tenantID, quoteID)
}

// Stats returns per-status quote counts for a tenant
func (s *QuoteService) Stats(ctx context.Context, tenantID uuid.UUID) (*QuoteStatsResponse, error) {
	counts, err := s.quoteRepo.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := QuoteStatsResponse{ByStatus: make(map[string]int64, len(counts))}
	for status, count := range counts {
		stats.ByStatus[status.String()] = count
		stats.Total += count
	}
	return &stats, nil
}

func (s *QuoteService) publishEvents(ctx context.Context, q *quote.Quote) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range q.GetDomainEvents() {
		// Event delivery is best effort; the state change is already
		// committed.
		_ = s.eventPublisher.Publish(ctx, event)
	}
	q.ClearDomainEvents()
}
