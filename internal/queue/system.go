package queue

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// System defines the public contract for queue operations. Dispatch
// itself runs through the Scheduler; System covers admission and
// operator actions.
type System interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Entry], error)

	Find(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Enqueue admits documents for classification, silently skipping
	// any with an active entry for the same service.
	Enqueue(ctx context.Context, cmd EnqueueCommand) ([]Entry, error)

	// Cancel moves a pending or failed entry to cancelled.
	Cancel(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Retry resets a failed entry to pending with a zeroed attempt
	// counter, eligible immediately.
	Retry(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Depths returns entry counts per state for observability sampling.
	Depths(ctx context.Context) (map[State]int, error)
}
