package policies

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// Recomputer re-resolves retention fields for all documents assigned to a
// policy. Implemented by the documents system; invoked after any policy
// mutation that changes its temporal rule.
type Recomputer interface {
	RecomputeForPolicy(ctx context.Context, policyID uuid.UUID) (int, error)
}

// System defines the public contract for retention policy operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[RetentionPolicy], error)

	Find(ctx context.Context, id uuid.UUID) (*RetentionPolicy, error)
	Create(ctx context.Context, cmd CreateCommand) (*RetentionPolicy, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*RetentionPolicy, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
