package quote

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuoteRepository is a mock implementation of quote.Repository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) Create(ctx context.Context, q *quote.Quote) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuoteRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*quote.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quote.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindByPublicID(ctx context.Context, publicID string) (*quote.Quote, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quote.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*quote.Quote], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*quote.Quote]), args.Error(1)
}

func (m *MockQuoteRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[quote.Status]int64, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[quote.Status]int64), args.Error(1)
}

func (m *MockQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuoteRepository) SaveWithLock(ctx context.Context, q *quote.Quote) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQuoteRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func validCreateRequest() CreateQuoteRequest {
	return CreateQuoteRequest{
		Client: ClientPayload{
			Name:  "Acme Corp",
			Email: "billing@acme.example",
		},
		Items: []QuoteItemInput{
			{
				Name:      "Consulting",
				Quantity:  decimal.NewFromInt(10),
				UnitPrice: decimal.NewFromInt(100),
				BasePrice: decimal.NewFromInt(100),
			},
		},
		TaxRate: decimal.NewFromInt(21),
	}
}

func domainQuote(t *testing.T, tenantID uuid.UUID, items []quote.ItemInput) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(tenantID, quote.ClientDetails{Name: "Acme Corp", Email: "billing@acme.example"}, items, 30, decimal.NewFromInt(21), decimal.Zero, "")
	require.NoError(t, err)
	q.PublicID = "QT-2026-0001"
	q.ClearDomainEvents()
	return q
}

func standardItems() []quote.ItemInput {
	return []quote.ItemInput{{
		Name:      "Consulting",
		Quantity:  decimal.NewFromInt(10),
		UnitPrice: decimal.NewFromInt(100),
		BasePrice: decimal.NewFromInt(100),
	}}
}

func discountedDomainItems() []quote.ItemInput {
	return []quote.ItemInput{{
		Name:      "Consulting",
		Quantity:  decimal.NewFromInt(10),
		UnitPrice: decimal.NewFromInt(80),
		BasePrice: decimal.NewFromInt(100),
	}}
}

func TestQuoteServiceCreate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates quote and returns repository-assigned public id", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)

		repo.On("Create", ctx, mock.AnythingOfType("*quote.Quote")).Run(func(args mock.Arguments) {
			q := args.Get(1).(*quote.Quote)
			q.PublicID = "QT-2026-0042"
		}).Return(nil)

		response, err := service.Create(ctx, tenantID, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "QT-2026-0042", response.PublicID)
		assert.Equal(t, "DRAFT", response.Status)
		assert.False(t, response.RequiresApproval)
		assert.True(t, response.Financials.Total.Equal(decimal.NewFromInt(1210)))
		repo.AssertExpectations(t)
	})

	t.Run("applies default validity window", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		repo.On("Create", ctx, mock.AnythingOfType("*quote.Quote")).Return(nil)

		response, err := service.Create(ctx, tenantID, validCreateRequest())
		require.NoError(t, err)

		expected := response.CreatedAt.Add(time.Duration(DefaultValidityDays) * 24 * time.Hour)
		assert.Equal(t, expected, response.ValidUntil)
	})

	t.Run("quote with excessive discount starts in internal review", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		repo.On("Create", ctx, mock.AnythingOfType("*quote.Quote")).Return(nil)

		req := validCreateRequest()
		req.Items[0].UnitPrice = decimal.NewFromInt(50)

		response, err := service.Create(ctx, tenantID, req)
		require.NoError(t, err)

		assert.Equal(t, "INTERNAL_REVIEW", response.Status)
		assert.True(t, response.RequiresApproval)
	})

	t.Run("does not touch the repository on invalid input", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)

		req := validCreateRequest()
		req.Client.Name = ""

		_, err := service.Create(ctx, tenantID, req)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		repo.On("Create", ctx, mock.AnythingOfType("*quote.Quote")).Return(shared.ErrStorageQuota)

		_, err := service.Create(ctx, tenantID, validCreateRequest())
		require.ErrorIs(t, err, shared.ErrStorageQuota)
	})
}

func TestQuoteServiceUpdate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("updates and saves with optimistic lock", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", ctx, q).Return(nil)

		obs := "revised terms"
		response, err := service.Update(ctx, tenantID, q.ID, UpdateQuoteRequest{Observations: &obs})
		require.NoError(t, err)

		assert.Equal(t, "revised terms", response.Observations)
		assert.Len(t, response.Timeline, 2)
		repo.AssertExpectations(t)
	})

	t.Run("does not save when the domain rejects the update", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())
		require.NoError(t, q.Reject("lost"))

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)

		obs := "too late"
		_, err := service.Update(ctx, tenantID, q.ID, UpdateQuoteRequest{Observations: &obs})
		require.Error(t, err)
		repo.AssertNotCalled(t, "SaveWithLock")
	})

	t.Run("propagates concurrency conflicts", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", ctx, q).Return(shared.ErrConcurrencyConflict)

		obs := "racing"
		_, err := service.Update(ctx, tenantID, q.ID, UpdateQuoteRequest{Observations: &obs})
		require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestQuoteServiceApprove(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("approves quote pending review", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, discountedDomainItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", ctx, q).Return(nil)

		response, err := service.Approve(ctx, tenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", response.Status)
	})

	t.Run("fails for draft quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)

		_, err := service.Approve(ctx, tenantID, q.ID)
		require.Error(t, err)
		repo.AssertNotCalled(t, "SaveWithLock")
	})

	t.Run("fails when quote not found", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		id := uuid.New()

		repo.On("FindByID", ctx, tenantID, id).Return(nil, shared.ErrNotFound)

		_, err := service.Approve(ctx, tenantID, id)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestQuoteServiceReject(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("rejects with reason", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", ctx, q).Return(nil)

		response, err := service.Reject(ctx, tenantID, q.ID, RejectQuoteRequest{Reason: "budget cut"})
		require.NoError(t, err)

		assert.Equal(t, "REJECTED", response.Status)
		last := response.Timeline[len(response.Timeline)-1]
		assert.Contains(t, last.Description, "budget cut")
	})

	t.Run("fails on signed quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())
		require.NoError(t, q.Sign("Jane Roe", "signatures/abc.png", ""))

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)

		_, err := service.Reject(ctx, tenantID, q.ID, RejectQuoteRequest{})
		require.Error(t, err)
	})
}

func TestQuoteServiceDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("deletes unsigned quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)
		repo.On("Delete", ctx, tenantID, q.ID).Return(nil)

		err := service.Delete(ctx, tenantID, q.ID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("refuses to delete signed quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())
		require.NoError(t, q.Sign("Jane Roe", "signatures/abc.png", ""))

		repo.On("FindByID", ctx, tenantID, q.ID).Return(q, nil)

		err := service.Delete(ctx, tenantID, q.ID)
		require.Error(t, err)

		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE", derr.Code)
		repo.AssertNotCalled(t, "Delete")
	})
}

func TestQuoteServiceList(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("lists with defaulted pagination", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)
		q := domainQuote(t, tenantID, standardItems())

		page := shared.NewPaginated([]*quote.Quote{q}, 1, 1, 20)
		repo.On("FindAll", ctx, tenantID, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "created_at" && f.OrderDir == "desc"
		})).Return(&page, nil)

		items, total, err := service.List(ctx, tenantID, QuoteListFilter{})
		require.NoError(t, err)

		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "QT-2026-0001", items[0].PublicID)
		assert.Equal(t, "Acme Corp", items[0].ClientName)
	})

	t.Run("passes status filter through", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		service := NewQuoteService(repo)

		page := shared.NewPaginated([]*quote.Quote{}, 0, 1, 20)
		repo.On("FindAll", ctx, tenantID, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Filters["status"] == "SIGNED"
		})).Return(&page, nil)

		status := quote.StatusSigned
		_, _, err := service.List(ctx, tenantID, QuoteListFilter{Status: &status})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestQuoteServiceStats(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	repo := new(MockQuoteRepository)
	service := NewQuoteService(repo)

	repo.On("CountByStatus", ctx, tenantID).Return(map[quote.Status]int64{
		quote.StatusDraft:  3,
		quote.StatusSigned: 2,
	}, nil)

	stats, err := service.Stats(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.ByStatus["DRAFT"])
	assert.Equal(t, int64(2), stats.ByStatus["SIGNED"])
}
