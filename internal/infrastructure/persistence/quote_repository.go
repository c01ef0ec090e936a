package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/quotedesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// publicIDRetries bounds the retry loop for public id collisions under
// concurrent creation. The unique index makes collisions loud; retrying
// re-reads the partition and picks the next free sequence.
const publicIDRetries = 3

// GormQuoteRepository implements quote.Repository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// Create persists a new quote, generating the next sequential public id
// inside the same transaction as the insert. The global unique index on
// public_id backs the generation: a concurrent writer that lands on the
// same sequence fails the insert and retries with a fresh scan.
func (r *GormQuoteRepository) Create(ctx context.Context, q *quote.Quote) error {
	var lastErr error
	for attempt := 0; attempt < publicIDRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := time.Now()
			prefix := quote.PublicIDPrefix(now)

			var existing []string
			if err := tx.Model(&models.QuoteModel{}).
				Where("public_id LIKE ?", prefix+"%").
				Pluck("public_id", &existing).Error; err != nil {
				return err
			}

			q.PublicID = quote.NextPublicID(existing, now)

			model := models.QuoteModelFromDomain(q)
			return tx.Create(model).Error
		})
		if err == nil {
			return nil
		}
		lastErr = translateWriteError(err)
		if !isUniqueViolation(err) {
			return lastErr
		}
	}
	return lastErr
}

// FindByID finds a quote by id within a tenant
func (r *GormQuoteRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.preloaded(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPublicID finds a quote by its public identifier. The lookup is
// global: public links carry nothing but the public id.
func (r *GormQuoteRepository) FindByPublicID(ctx context.Context, publicID string) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.preloaded(ctx).
		Where("public_id = ?", publicID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds quotes for a tenant with filtering and pagination
func (r *GormQuoteRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*quote.Quote], error) {
	base := r.db.WithContext(ctx).Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := r.applyFilterWithoutPagination(base.Session(&gorm.Session{}), filter).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.QuoteModel
	query := r.applyFilter(base.Session(&gorm.Session{}), filter).
		Preload("Items").
		Preload("Timeline", timelineOrder)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	quotes := make([]*quote.Quote, 0, len(rows))
	for i := range rows {
		quotes = append(quotes, rows[i].ToDomain())
	}

	page := shared.NewPaginated(quotes, total, filter.Page, filter.PageSize)
	return &page, nil
}

// CountByStatus returns the number of quotes per status for a tenant
func (r *GormQuoteRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[quote.Status]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&models.QuoteModel{}).
		Select("status, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[quote.Status]int64, len(rows))
	for _, row := range rows {
		counts[quote.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// Save creates or updates a quote without a version check
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.QuoteModelFromDomain(q)
		items := model.Items
		timeline := model.Timeline
		model.Items = nil
		model.Timeline = nil

		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := r.syncItems(tx, q.ID, items); err != nil {
			return err
		}
		return r.appendTimeline(tx, timeline)
	})
	return translateWriteError(err)
}

// SaveWithLock saves using optimistic locking on the version column
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, q *quote.Quote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.QuoteModel{}).
			Where("id = ?", q.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if currentVersion != q.Version {
			return shared.ErrConcurrencyConflict
		}

		q.Version++
		q.UpdatedAt = time.Now()

		model := models.QuoteModelFromDomain(q)
		update := tx.Model(&models.QuoteModel{}).
			Where("id = ? AND version = ?", q.ID, currentVersion).
			Updates(map[string]interface{}{
				"client_name":             model.ClientName,
				"client_email":            model.ClientEmail,
				"client_phone":            model.ClientPhone,
				"client_address":          model.ClientAddress,
				"client_tax_id":           model.ClientTaxID,
				"client_responsible_name": model.ClientResponsibleName,
				"subtotal":                model.Subtotal,
				"tax_rate":                model.TaxRate,
				"tax_amount":              model.TaxAmount,
				"fees":                    model.Fees,
				"total":                   model.Total,
				"status":                  model.Status,
				"requires_approval":       model.RequiresApproval,
				"observations":            model.Observations,
				"valid_until":             model.ValidUntil,
				"signer_name":             model.SignerName,
				"signature_image_key":     model.SignatureImageKey,
				"signed_at":               model.SignedAt,
				"signature_origin":        model.SignatureOrigin,
				"version":                 q.Version,
				"updated_at":              q.UpdatedAt,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := r.syncItems(tx, q.ID, model.Items); err != nil {
			return err
		}
		return r.appendTimeline(tx, model.Timeline)
	})
	return translateWriteError(err)
}

// Delete removes a quote and its dependent rows within a tenant
func (r *GormQuoteRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			Delete(&models.QuoteModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("quote_id = ?", id).Delete(&models.QuoteTimelineModel{}).Error
	})
}

func (r *GormQuoteRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("Timeline", timelineOrder)
}

func timelineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// syncItems replaces the stored item set with the given one
func (r *GormQuoteRepository) syncItems(tx *gorm.DB, quoteID uuid.UUID, items []models.QuoteItemModel) error {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	if len(ids) > 0 {
		if err := tx.Where("quote_id = ? AND id NOT IN ?", quoteID, ids).
			Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("quote_id = ?", quoteID).
			Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
	}

	for i := range items {
		if err := tx.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// appendTimeline inserts timeline entries that are not yet stored.
// Existing rows are never touched: the unique (quote_id, sequence) index
// plus ON CONFLICT DO NOTHING makes the append idempotent.
func (r *GormQuoteRepository) appendTimeline(tx *gorm.DB, entries []models.QuoteTimelineModel) error {
	if len(entries) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

// applyFilter applies filtering, ordering and pagination
func (r *GormQuoteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderColumn(filter.OrderBy) + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormQuoteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(public_id) LIKE ? OR LOWER(client_name) LIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "requires_approval":
			if b, ok := value.(bool); ok {
				query = query.Where("requires_approval = ?", b)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// orderColumn whitelists sortable columns; anything else falls back to
// created_at so caller-supplied order keys never reach raw SQL.
func orderColumn(requested string) string {
	switch requested {
	case "created_at", "updated_at", "public_id", "client_name", "total", "status", "valid_until":
		return requested
	default:
		return "created_at"
	}
}

// translateWriteError maps driver-level failures to domain errors.
// Postgres class 53 covers insufficient resources, disk full included;
// those reject the offending write without poisoning the connection.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.HasPrefix(sqlState(err), "53") {
		return shared.ErrStorageQuota
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return sqlState(err) == "23505"
}

// sqlState extracts the SQLSTATE code from either postgres driver: the
// gorm connection is pgx-backed, the migrate CLI uses lib/pq.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// Ensure GormQuoteRepository implements quote.Repository
var _ quote.Repository = (*GormQuoteRepository)(nil)
