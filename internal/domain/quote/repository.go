package quote

import (
	"context"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/shared"
)

// Repository defines quote persistence.
//
// Create assigns the quote's public id inside the same transaction that
// inserts the row, so concurrent creations can never produce duplicate or
// out-of-order ids. Public-id lookups are global because the public
// signing link carries only the public id; every other read is scoped to
// the caller's tenant.
type Repository interface {
	// Create persists a new quote, generating and assigning its public id
	Create(ctx context.Context, q *Quote) error

	// FindByID retrieves a quote by internal id within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindByPublicID retrieves a quote by its public identifier
	FindByPublicID(ctx context.Context, publicID string) (*Quote, error)

	// FindAll retrieves quotes for a tenant with pagination and filtering
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Quote], error)

	// CountByStatus returns the number of quotes per status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[Status]int64, error)

	// Save persists changes to an existing quote
	Save(ctx context.Context, q *Quote) error

	// SaveWithLock persists changes using optimistic locking on Version
	SaveWithLock(ctx context.Context, q *Quote) error

	// Delete removes a quote within a tenant
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
