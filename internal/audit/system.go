package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// System defines the public contract for the classification log.
// The log is append-only; entries are never updated or deleted except
// by cascading document removal.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[LogEntry], error)

	Find(ctx context.Context, id uuid.UUID) (*LogEntry, error)
	Record(ctx context.Context, cmd RecordCommand) (*LogEntry, error)
}
