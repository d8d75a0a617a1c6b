package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// System defines the public contract for classification service operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Service], error)

	Find(ctx context.Context, id uuid.UUID) (*Service, error)
	Create(ctx context.Context, cmd CreateCommand) (*Service, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Service, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FirstActive returns the default service for queue admission: the
	// earliest-registered active service. ErrNoActiveService when none exist.
	FirstActive(ctx context.Context) (*Service, error)

	// RecordRun folds a completed dispatch into the service's counters
	// and running average confidence.
	RecordRun(ctx context.Context, id uuid.UUID, stats RunStats) error
}
