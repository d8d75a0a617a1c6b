package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

const entryColumns = `id, document_id, service_id, raw_result, confidence,
	detected_type, applied, error_message, duration_seconds, created_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classification log repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[LogEntry], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count log entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*LogEntry, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &e, nil
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*LogEntry, error) {
	q := fmt.Sprintf(`
		INSERT INTO classification_log(
			document_id, service_id, raw_result, confidence,
			detected_type, applied, error_message, duration_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, entryColumns)

	e, err := repository.QueryOne(ctx, r.db, q, []any{
		cmd.DocumentID,
		cmd.ServiceID,
		cmd.RawResult,
		cmd.Confidence,
		cmd.DetectedType,
		cmd.Applied,
		cmd.ErrorMessage,
		cmd.Duration,
	}, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("record log entry: %w", err)
	}

	return &e, nil
}
