package tags

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// System defines the public contract for tag operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
	) (*pagination.PageResult[Tag], error)

	Find(ctx context.Context, id uuid.UUID) (*Tag, error)
	Create(ctx context.Context, cmd CreateCommand) (*Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Resolve matches a suggested label against the existing taxonomy by
	// case-insensitive substring. It returns at most one tag per name and
	// never creates tags; unmatched names are silently dropped.
	Resolve(ctx context.Context, names []string) ([]uuid.UUID, error)
}
