package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Content returns the raw bytes and content type of the stored blob.
	Content(ctx context.Context, id uuid.UUID) ([]byte, string, error)

	// ApplyExtraction commits a classification field-update set.
	ApplyExtraction(ctx context.Context, id uuid.UUID, update ExtractionUpdate) (*Document, error)

	// Recompute re-resolves the cached retention deadline and due flag.
	Recompute(ctx context.Context, id uuid.UUID) (*Document, error)

	// RecomputeForPolicy re-resolves retention for every document assigned
	// to the policy, returning the number of documents touched.
	RecomputeForPolicy(ctx context.Context, policyID uuid.UUID) (int, error)

	// CheckDuplicate marks the document as a duplicate when another document
	// shares its extracted vendor and amount (and date, when present).
	CheckDuplicate(ctx context.Context, id uuid.UUID) (*Document, error)
}
