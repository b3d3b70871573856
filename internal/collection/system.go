package collection

import (
	"context"

	"github.com/JaimeStill/specimen/internal/identification"
	"github.com/JaimeStill/specimen/pkg/pagination"
)

// System defines the public contract for collection operations.
type System interface {
	Handler() *Handler

	// Save prepends a new record and persists the full list. Nothing is
	// saved when an error is returned.
	Save(ctx context.Context, ident identification.Identification, imageURI string) (*Record, error)

	// List returns every record, newest first. Unreadable data yields an
	// empty slice together with an ErrStorageRead error.
	List(ctx context.Context) ([]Record, error)

	// Search filters, orders and pages the collection. Without sort fields
	// the newest-first order is kept.
	Search(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id string) (*Record, error)

	// Delete removes the record with id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	Clear(ctx context.Context) error

	Statistics(ctx context.Context) (*Statistics, error)

	// Similar returns records whose fingerprint is within maxDistance of
	// fingerprint, closest first.
	Similar(ctx context.Context, fingerprint string, maxDistance int) ([]Match, error)
}
