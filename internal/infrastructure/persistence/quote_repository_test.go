package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/quotedesk/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupQuoteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.QuoteModel{},
		&models.QuoteItemModel{},
		&models.QuoteTimelineModel{},
	)
	require.NoError(t, err)

	return db
}

func repoTestClient(name string) quote.ClientDetails {
	return quote.ClientDetails{
		Name:  name,
		Email: "billing@acme.test",
		Phone: "+34 600 000 000",
	}
}

func repoTestItems() []quote.ItemInput {
	return []quote.ItemInput{
		{
			Name:      "Consulting",
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(100),
			BasePrice: decimal.NewFromInt(100),
		},
		{
			Name:      "Support retainer",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(500),
			BasePrice: decimal.NewFromInt(500),
		},
	}
}

func newRepoTestQuote(t *testing.T, tenantID uuid.UUID, clientName string) *quote.Quote {
	q, err := quote.NewQuote(
		tenantID,
		repoTestClient(clientName),
		repoTestItems(),
		30,
		decimal.NewFromInt(21),
		decimal.Zero,
		"",
	)
	require.NoError(t, err)
	return q
}

func TestGormQuoteRepository_Create(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("assigns sequential public ids", func(t *testing.T) {
		first := newRepoTestQuote(t, tenantID, "Acme Corp")
		require.NoError(t, repo.Create(ctx, first))

		second := newRepoTestQuote(t, tenantID, "Globex")
		require.NoError(t, repo.Create(ctx, second))

		year := time.Now().Year()
		assert.Equal(t, fmt.Sprintf("QT-%d-0001", year), first.PublicID)
		assert.Equal(t, fmt.Sprintf("QT-%d-0002", year), second.PublicID)
	})

	t.Run("public id sequence spans tenants", func(t *testing.T) {
		other := newRepoTestQuote(t, uuid.New(), "Initech")
		require.NoError(t, repo.Create(ctx, other))

		year := time.Now().Year()
		assert.Equal(t, fmt.Sprintf("QT-%d-0003", year), other.PublicID)
	})

	t.Run("persists items and timeline", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Umbrella")
		require.NoError(t, repo.Create(ctx, q))

		var itemCount, timelineCount int64
		require.NoError(t, db.Model(&models.QuoteItemModel{}).
			Where("quote_id = ?", q.ID).Count(&itemCount).Error)
		require.NoError(t, db.Model(&models.QuoteTimelineModel{}).
			Where("quote_id = ?", q.ID).Count(&timelineCount).Error)

		assert.Equal(t, int64(2), itemCount)
		assert.Equal(t, int64(1), timelineCount)
	})
}

func TestGormQuoteRepository_FindByID(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	q := newRepoTestQuote(t, tenantID, "Acme Corp")
	require.NoError(t, repo.Create(ctx, q))

	t.Run("round-trips the aggregate", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tenantID, q.ID)
		require.NoError(t, err)

		assert.Equal(t, q.PublicID, found.PublicID)
		assert.Equal(t, "Acme Corp", found.Client.Name)
		assert.Equal(t, "billing@acme.test", found.Client.Email)
		assert.Equal(t, quote.StatusDraft, found.Status)
		assert.Len(t, found.Items, 2)
		assert.True(t, found.Financials.Subtotal.Equal(decimal.NewFromInt(1500)),
			"subtotal was %s", found.Financials.Subtotal)
		assert.True(t, found.Financials.Total.Equal(decimal.NewFromInt(1815)),
			"total was %s", found.Financials.Total)
		require.Len(t, found.Timeline, 1)
		assert.Equal(t, quote.TimelineActionCreated, found.Timeline[0].Action)
		assert.Equal(t, 1, found.Timeline[0].Sequence)
		assert.Nil(t, found.Signature)
	})

	t.Run("not found for other tenant", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), q.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("not found for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQuoteRepository_FindByPublicID(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()

	q := newRepoTestQuote(t, uuid.New(), "Acme Corp")
	require.NoError(t, repo.Create(ctx, q))

	t.Run("resolves without tenant scope", func(t *testing.T) {
		found, err := repo.FindByPublicID(ctx, q.PublicID)
		require.NoError(t, err)
		assert.Equal(t, q.ID, found.ID)
		assert.Len(t, found.Items, 2)
	})

	t.Run("not found for unknown public id", func(t *testing.T) {
		_, err := repo.FindByPublicID(ctx, "QT-1999-0001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQuoteRepository_FindAll(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	names := []string{"Acme Corp", "Globex", "Initech"}
	for _, name := range names {
		q := newRepoTestQuote(t, tenantID, name)
		require.NoError(t, repo.Create(ctx, q))
	}

	rejected := newRepoTestQuote(t, tenantID, "Hooli")
	require.NoError(t, rejected.Reject("budget cut"))
	require.NoError(t, repo.Create(ctx, rejected))

	otherTenant := newRepoTestQuote(t, uuid.New(), "Acme Corp")
	require.NoError(t, repo.Create(ctx, otherTenant))

	t.Run("scopes to tenant", func(t *testing.T) {
		page, err := repo.FindAll(ctx, tenantID, shared.Filter{Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Len(t, page.Items, 4)
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := repo.FindAll(ctx, tenantID, shared.Filter{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("searches public id and client name", func(t *testing.T) {
		page, err := repo.FindAll(ctx, tenantID, shared.Filter{
			Page: 1, PageSize: 20, Search: "glob",
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Globex", page.Items[0].Client.Name)
	})

	t.Run("filters by status", func(t *testing.T) {
		page, err := repo.FindAll(ctx, tenantID, shared.Filter{
			Page: 1, PageSize: 20,
			Filters: map[string]interface{}{"status": string(quote.StatusRejected)},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Hooli", page.Items[0].Client.Name)
	})

	t.Run("orders by whitelisted column", func(t *testing.T) {
		page, err := repo.FindAll(ctx, tenantID, shared.Filter{
			Page: 1, PageSize: 20, OrderBy: "client_name", OrderDir: "asc",
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 4)
		assert.Equal(t, "Acme Corp", page.Items[0].Client.Name)
		assert.Equal(t, "Initech", page.Items[3].Client.Name)
	})
}

func TestGormQuoteRepository_CountByStatus(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 2; i++ {
		q := newRepoTestQuote(t, tenantID, "Acme Corp")
		require.NoError(t, repo.Create(ctx, q))
	}
	rejected := newRepoTestQuote(t, tenantID, "Globex")
	require.NoError(t, rejected.Reject("no budget"))
	require.NoError(t, repo.Create(ctx, rejected))

	counts, err := repo.CountByStatus(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[quote.StatusDraft])
	assert.Equal(t, int64(1), counts[quote.StatusRejected])
	assert.NotContains(t, counts, quote.StatusSigned)
}

func TestGormQuoteRepository_SaveWithLock(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("persists changes and bumps version", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Acme Corp")
		require.NoError(t, repo.Create(ctx, q))

		newObservations := "Net 30 payment terms"
		require.NoError(t, q.Update(quote.UpdateParams{Observations: &newObservations}))
		require.NoError(t, repo.SaveWithLock(ctx, q))

		assert.Equal(t, 2, q.Version)

		found, err := repo.FindByID(ctx, tenantID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "Net 30 payment terms", found.Observations)
		assert.Equal(t, 2, found.Version)
		require.Len(t, found.Timeline, 2)
		assert.Equal(t, quote.TimelineActionUpdated, found.Timeline[1].Action)
	})

	t.Run("replaces the item set", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Globex")
		require.NoError(t, repo.Create(ctx, q))

		require.NoError(t, q.Update(quote.UpdateParams{
			Items: []quote.ItemInput{{
				Name:      "Single license",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(250),
				BasePrice: decimal.NewFromInt(250),
			}},
		}))
		require.NoError(t, repo.SaveWithLock(ctx, q))

		found, err := repo.FindByID(ctx, tenantID, q.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "Single license", found.Items[0].Name)

		var orphans int64
		require.NoError(t, db.Model(&models.QuoteItemModel{}).
			Where("quote_id = ?", q.ID).Count(&orphans).Error)
		assert.Equal(t, int64(1), orphans)
	})

	t.Run("rejects stale versions", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Initech")
		require.NoError(t, repo.Create(ctx, q))

		stale, err := repo.FindByID(ctx, tenantID, q.ID)
		require.NoError(t, err)

		obs := "first writer wins"
		require.NoError(t, q.Update(quote.UpdateParams{Observations: &obs}))
		require.NoError(t, repo.SaveWithLock(ctx, q))

		obs = "second writer loses"
		require.NoError(t, stale.Update(quote.UpdateParams{Observations: &obs}))
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("not found for deleted quote", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Hooli")
		require.NoError(t, repo.Create(ctx, q))
		require.NoError(t, repo.Delete(ctx, tenantID, q.ID))

		obs := "gone"
		require.NoError(t, q.Update(quote.UpdateParams{Observations: &obs}))
		err := repo.SaveWithLock(ctx, q)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("stored timeline rows are append only", func(t *testing.T) {
		q, err := quote.NewQuote(
			tenantID,
			repoTestClient("Umbrella"),
			[]quote.ItemInput{{
				Name:      "Discounted bundle",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(70),
				BasePrice: decimal.NewFromInt(100),
			}},
			30,
			decimal.NewFromInt(21),
			decimal.Zero,
			"",
		)
		require.NoError(t, err)
		require.Equal(t, quote.StatusInternalReview, q.Status)
		require.NoError(t, repo.Create(ctx, q))

		require.NoError(t, q.ApproveInternal())
		require.NoError(t, repo.SaveWithLock(ctx, q))
		require.NoError(t, repo.SaveWithLock(ctx, q))

		var rows []models.QuoteTimelineModel
		require.NoError(t, db.Where("quote_id = ?", q.ID).
			Order("sequence ASC").Find(&rows).Error)
		require.Len(t, rows, len(q.Timeline))
		for i, row := range rows {
			assert.Equal(t, i+1, row.Sequence)
		}
	})
}

func TestGormQuoteRepository_SignatureRoundTrip(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	q := newRepoTestQuote(t, tenantID, "Acme Corp")
	require.NoError(t, repo.Create(ctx, q))

	require.NoError(t, q.Sign("Jane Smith", "signatures/abc/sig.png", "203.0.113.7"))
	require.NoError(t, repo.SaveWithLock(ctx, q))

	found, err := repo.FindByID(ctx, tenantID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusSigned, found.Status)
	require.NotNil(t, found.Signature)
	assert.Equal(t, "Jane Smith", found.Signature.Name)
	assert.Equal(t, "signatures/abc/sig.png", found.Signature.ImageKey)
	assert.Equal(t, "203.0.113.7", found.Signature.OriginAddress)
	assert.False(t, found.Signature.SignedAt.IsZero())
}

func TestGormQuoteRepository_Delete(t *testing.T) {
	db := setupQuoteTestDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("removes quote with dependent rows", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Acme Corp")
		require.NoError(t, repo.Create(ctx, q))

		require.NoError(t, repo.Delete(ctx, tenantID, q.ID))

		_, err := repo.FindByID(ctx, tenantID, q.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var itemCount, timelineCount int64
		require.NoError(t, db.Model(&models.QuoteItemModel{}).
			Where("quote_id = ?", q.ID).Count(&itemCount).Error)
		require.NoError(t, db.Model(&models.QuoteTimelineModel{}).
			Where("quote_id = ?", q.ID).Count(&timelineCount).Error)
		assert.Zero(t, itemCount)
		assert.Zero(t, timelineCount)
	})

	t.Run("not found for other tenant", func(t *testing.T) {
		q := newRepoTestQuote(t, tenantID, "Globex")
		require.NoError(t, repo.Create(ctx, q))

		err := repo.Delete(ctx, uuid.New(), q.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestWriteErrorTranslation(t *testing.T) {
	t.Run("pgx class 53 maps to storage quota", func(t *testing.T) {
		err := translateWriteError(&pgconn.PgError{Code: "53100", Message: "disk full"})
		assert.ErrorIs(t, err, shared.ErrStorageQuota)
	})

	t.Run("pq class 53 maps to storage quota", func(t *testing.T) {
		err := translateWriteError(&pq.Error{Code: "53200", Message: "out of memory"})
		assert.ErrorIs(t, err, shared.ErrStorageQuota)
	})

	t.Run("wrapped driver errors still match", func(t *testing.T) {
		wrapped := fmt.Errorf("insert quotes: %w", &pgconn.PgError{Code: "53100"})
		assert.ErrorIs(t, translateWriteError(wrapped), shared.ErrStorageQuota)
	})

	t.Run("other sql states pass through", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "42703", Message: "undefined column"}
		assert.Equal(t, error(cause), translateWriteError(cause))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateWriteError(nil))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "53100"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}
