package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	quoteapp "github.com/quotedesk/backend/internal/application/quote"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/backend/tests/testutil"
)

// MockQuoteRepository implements quote.Repository for testing
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

var testTenantID = testutil.TestTenantID()

func newQuoteRouter(repo quote.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewQuoteHandler(quoteapp.NewQuoteService(repo))

	api := engine.Group("/api/v1")
	api.POST("/quotes", h.Create)
	api.GET("/quotes", h.List)
	api.GET("/quotes/stats", h.Stats)
	api.GET("/quotes/:id", h.GetByID)
	api.PUT("/quotes/:id", h.Update)
	api.DELETE("/quotes/:id", h.Delete)
	api.POST("/quotes/:id/approve", h.Approve)
	api.POST("/quotes/:id/reject", h.Reject)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", testTenantID.String())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func createBody() map[string]any {
	return map[string]any{
		"client": map[string]any{
			"name":  "Acme Corp",
			"email": "billing@acme.example",
		},
		"items": []map[string]any{
			{
				"name":       "Consulting",
				"quantity":   "10",
				"unit_price": "100",
				"base_price": "100",
			},
		},
		"tax_rate": "21",
	}
}

func testQuote(t *testing.T) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(testTenantID, quote.ClientDetails{Name: "Acme Corp"}, []quote.ItemInput{
		{
			Name:      "Consulting",
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(100),
			BasePrice: decimal.NewFromInt(100),
		},
	}, 30, decimal.NewFromInt(21), decimal.Zero, "")
	require.NoError(t, err)
	q.PublicID = "QT-2026-0042"
	q.ClearDomainEvents()
	return q
}

func TestQuoteHandler_Create(t *testing.T) {
	t.Run("creates quote and returns 201", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*quote.Quote")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*quote.Quote).PublicID = "QT-2026-0001"
			}).
			Return(nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPost, "/api/v1/quotes", createBody())

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])

		data := body["data"].(map[string]any)
		assert.Equal(t, "QT-2026-0001", data["public_id"])
		assert.Equal(t, "DRAFT", data["status"])

		financials := data["financials"].(map[string]any)
		assert.Equal(t, "1000", financials["subtotal"])
		assert.Equal(t, "1210", financials["total"])
		repo.AssertExpectations(t)
	})

	t.Run("rejects payload without client name", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		body := createBody()
		body["client"] = map[string]any{"email": "billing@acme.example"}

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPost, "/api/v1/quotes", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		engine := newQuoteRouter(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQuoteHandler_GetByID(t *testing.T) {
	t.Run("returns quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes/"+q.ID.String(), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "QT-2026-0042", data["public_id"])
		assert.Len(t, data["items"], 1)
		assert.Len(t, data["timeline"], 1)
	})

	t.Run("returns 404 for unknown quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		repo.On("FindByID", mock.Anything, testTenantID, mock.Anything).Return(nil, shared.ErrNotFound)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes/"+uuid.NewString(), nil)

		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "ERR_NOT_FOUND", errInfo["code"])
	})

	t.Run("returns 400 for malformed id", func(t *testing.T) {
		repo := new(MockQuoteRepository)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes/not-a-uuid", nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		repo.AssertNotCalled(t, "FindByID")
	})
}

func TestQuoteHandler_List(t *testing.T) {
	t.Run("returns paginated list with meta", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		page := shared.NewPaginated([]*quote.Quote{q}, 41, 2, 20)
		repo.On("FindAll", mock.Anything, testTenantID, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Page == 2 && f.PageSize == 20 && f.Search == "acme"
		})).Return(&page, nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes?page=2&search=acme", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		meta := body["meta"].(map[string]any)
		assert.Equal(t, float64(41), meta["total"])
		assert.Equal(t, float64(2), meta["page"])
		assert.Equal(t, float64(3), meta["total_pages"])

		items := body["data"].([]any)
		require.Len(t, items, 1)
		first := items[0].(map[string]any)
		assert.Equal(t, "QT-2026-0042", first["public_id"])
		assert.Equal(t, "Acme Corp", first["client_name"])
	})

	t.Run("passes status filter through", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		page := shared.NewPaginated([]*quote.Quote{}, 0, 1, 20)
		repo.On("FindAll", mock.Anything, testTenantID, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Filters["status"] == string(quote.StatusApproved)
		})).Return(&page, nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes?status=APPROVED", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		repo := new(MockQuoteRepository)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes?status=SHIPPED", nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		repo.AssertNotCalled(t, "FindAll")
	})
}

func TestQuoteHandler_Stats(t *testing.T) {
	repo := new(MockQuoteRepository)
	repo.On("CountByStatus", mock.Anything, testTenantID).Return(map[quote.Status]int64{
		quote.StatusDraft:  3,
		quote.StatusSigned: 2,
	}, nil)

	rec := doRequest(t, newQuoteRouter(repo), http.MethodGet, "/api/v1/quotes/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(5), data["total"])
	byStatus := data["by_status"].(map[string]any)
	assert.Equal(t, float64(3), byStatus["DRAFT"])
	assert.Equal(t, float64(2), byStatus["SIGNED"])
}

func TestQuoteHandler_Approve(t *testing.T) {
	t.Run("approves quote under review", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q, err := quote.NewQuote(testTenantID, quote.ClientDetails{Name: "Acme Corp"}, []quote.ItemInput{
			{
				Name:      "Consulting",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(70),
				BasePrice: decimal.NewFromInt(100),
			},
		}, 30, decimal.Zero, decimal.Zero, "")
		require.NoError(t, err)
		require.Equal(t, quote.StatusInternalReview, q.Status)

		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", mock.Anything, q).Return(nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPost, fmt.Sprintf("/api/v1/quotes/%s/approve", q.ID), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "APPROVED", data["status"])
	})

	t.Run("returns 422 for draft quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPost, fmt.Sprintf("/api/v1/quotes/%s/approve", q.ID), nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errInfo := decodeBody(t, rec)["error"].(map[string]any)
		assert.Equal(t, "ERR_INVALID_STATE", errInfo["code"])
		repo.AssertNotCalled(t, "SaveWithLock")
	})
}

func TestQuoteHandler_Reject(t *testing.T) {
	repo := new(MockQuoteRepository)
	q := testQuote(t)
	repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)
	repo.On("SaveWithLock", mock.Anything, q).Return(nil)

	rec := doRequest(t, newQuoteRouter(repo), http.MethodPost,
		fmt.Sprintf("/api/v1/quotes/%s/reject", q.ID),
		map[string]any{"reason": "budget cut"})

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "REJECTED", data["status"])
}

func TestQuoteHandler_Update(t *testing.T) {
	t.Run("updates observations", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", mock.Anything, q).Return(nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPut, "/api/v1/quotes/"+q.ID.String(),
			map[string]any{"observations": "net 30 payment terms"})

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "net 30 payment terms", data["observations"])
	})

	t.Run("returns conflict on concurrent modification", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)
		repo.On("SaveWithLock", mock.Anything, q).Return(shared.ErrConcurrencyConflict)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodPut, "/api/v1/quotes/"+q.ID.String(),
			map[string]any{"observations": "updated"})

		require.Equal(t, http.StatusConflict, rec.Code)
		errInfo := decodeBody(t, rec)["error"].(map[string]any)
		assert.Equal(t, "ERR_CONCURRENCY_CONFLICT", errInfo["code"])
	})
}

func TestQuoteHandler_Delete(t *testing.T) {
	t.Run("deletes unsigned quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)
		repo.On("Delete", mock.Anything, testTenantID, q.ID).Return(nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodDelete, "/api/v1/quotes/"+q.ID.String(), nil)

		require.Equal(t, http.StatusNoContent, rec.Code)
		repo.AssertExpectations(t)
	})

	t.Run("refuses to delete signed quote", func(t *testing.T) {
		repo := new(MockQuoteRepository)
		q := testQuote(t)
		require.NoError(t, q.Sign("Jane Smith", "signatures/abc/sig.png", "203.0.113.7"))
		repo.On("FindByID", mock.Anything, testTenantID, q.ID).Return(q, nil)

		rec := doRequest(t, newQuoteRouter(repo), http.MethodDelete, "/api/v1/quotes/"+q.ID.String(), nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		repo.AssertNotCalled(t, "Delete")
	})
}
