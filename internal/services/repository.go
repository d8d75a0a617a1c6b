package services

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

const serviceColumns = `id, name, provider, endpoint, api_key, model, active,
	confidence_threshold, auto_tag, auto_extract, documents_processed,
	avg_confidence, last_run, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classification service repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "services"),
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
) (*pagination.PageResult[Service], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Name", "Model")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanService)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Service, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	svc, err := repository.QueryOne(ctx, r.db, q, args, scanService)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &svc, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Service, error) {
	svc := cmd.service()
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO classification_services(
			name, provider, endpoint, api_key, model, active,
			confidence_threshold, auto_tag, auto_extract
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, serviceColumns)

	created, err := repository.QueryOne(ctx, r.db, q, []any{
		svc.Name,
		svc.Provider,
		svc.Endpoint,
		svc.APIKey,
		svc.Model,
		svc.Active,
		svc.ConfidenceThreshold,
		svc.AutoTag,
		svc.AutoExtract,
	}, scanService)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("service created", "id", created.ID, "name", created.Name, "provider", created.Provider)
	return &created, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Service, error) {
	svc := cmd.service()
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		UPDATE classification_services
		SET name = $1, provider = $2, endpoint = $3, api_key = $4, model = $5,
			active = $6, confidence_threshold = $7, auto_tag = $8,
			auto_extract = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING %s`, serviceColumns)

	updated, err := repository.QueryOne(ctx, r.db, q, []any{
		svc.Name,
		svc.Provider,
		svc.Endpoint,
		svc.APIKey,
		svc.Model,
		svc.Active,
		svc.ConfidenceThreshold,
		svc.AutoTag,
		svc.AutoExtract,
		id,
	}, scanService)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("service updated", "id", updated.ID, "name", updated.Name)
	return &updated, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM classification_services WHERE id = $1",
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("service deleted", "id", id)
	return nil
}

// FirstActive returns the oldest active service. id breaks creation
// timestamp ties so selection stays deterministic.
func (r *repo) FirstActive(ctx context.Context) (*Service, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM classification_services
		WHERE active = TRUE
		ORDER BY created_at, id
		LIMIT 1`, serviceColumns)

	svc, err := repository.QueryOne(ctx, r.db, q, nil, scanService)
	if err != nil {
		return nil, repository.MapError(err, ErrNoActiveService, ErrDuplicate)
	}
	return &svc, nil
}

// RecordRun maintains documents_processed and the running average
// confidence in one statement so concurrent dispatches never lose updates.
func (r *repo) RecordRun(ctx context.Context, id uuid.UUID, stats RunStats) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_services
		SET documents_processed = documents_processed + 1,
			avg_confidence = CASE
				WHEN $2::double precision IS NULL THEN avg_confidence
				WHEN avg_confidence IS NULL THEN $2
				ELSE (avg_confidence * documents_processed + $2) / (documents_processed + 1)
			END,
			last_run = $3,
			updated_at = NOW()
		WHERE id = $1`,
		id, stats.Confidence, stats.RanAt,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}
