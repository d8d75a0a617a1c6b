package policies

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

const policyColumns = `id, name, sequence, active, tag_ids, folder_ids, document_type,
	retention_years, retention_months, trigger, action, notify_before_days,
	legal_reference, created_at, updated_at`

type repo struct {
	db         *sql.DB
	recompute  Recomputer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a policy repository implementing the System interface.
// The recomputer fans retention recalculation out to assigned documents
// after a policy's temporal rule changes.
func New(
	db *sql.DB,
	recompute Recomputer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		recompute:  recompute,
		logger:     logger.With("system", "policies"),
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
) (*pagination.PageResult[RetentionPolicy], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Name", "LegalReference")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count policies: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPolicy)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*RetentionPolicy, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPolicy)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*RetentionPolicy, error) {
	policy := cmd.policy()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	tags, folders, err := scopeJSON(policy)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO retention_policies(
			name, sequence, active, tag_ids, folder_ids, document_type,
			retention_years, retention_months, trigger, action,
			notify_before_days, legal_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, policyColumns)

	insertArgs := []any{
		policy.Name,
		policy.Sequence,
		policy.Active,
		tags,
		folders,
		policy.DocumentType,
		policy.RetentionYears,
		policy.RetentionMonths,
		policy.Trigger,
		policy.Action,
		policy.NotifyBeforeDays,
		policy.LegalReference,
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (RetentionPolicy, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanPolicy)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("policy created", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*RetentionPolicy, error) {
	policy := cmd.policy()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	tags, folders, err := scopeJSON(policy)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		UPDATE retention_policies
		SET name = $1, sequence = $2, active = $3, tag_ids = $4, folder_ids = $5,
			document_type = $6, retention_years = $7, retention_months = $8,
			trigger = $9, action = $10, notify_before_days = $11,
			legal_reference = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING %s`, policyColumns)

	updateArgs := []any{
		policy.Name,
		policy.Sequence,
		policy.Active,
		tags,
		folders,
		policy.DocumentType,
		policy.RetentionYears,
		policy.RetentionMonths,
		policy.Trigger,
		policy.Action,
		policy.NotifyBeforeDays,
		policy.LegalReference,
		id,
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (RetentionPolicy, error) {
		return repository.QueryOne(ctx, tx, q, updateArgs, scanPolicy)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	// The temporal rule may have changed; cached retention fields on
	// assigned documents are stale until recomputed.
	if r.recompute != nil {
		count, err := r.recompute.RecomputeForPolicy(ctx, id)
		if err != nil {
			r.logger.Warn("retention recompute failed after policy update", "id", id, "error", err)
		} else {
			r.logger.Info("retention recomputed", "policy_id", id, "documents", count)
		}
	}

	r.logger.Info("policy updated", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		// Detach referencing documents first; policies are referenced,
		// never owned, so documents survive with cleared retention fields.
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET retention_policy_id = NULL, retention_date = NULL,
				retention_due = FALSE, updated_at = NOW()
			WHERE retention_policy_id = $1`, id,
		); err != nil {
			return struct{}{}, fmt.Errorf("detach documents: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM retention_policies WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("policy deleted", "id", id)
	return nil
}

func scopeJSON(p RetentionPolicy) ([]byte, []byte, error) {
	tags := p.TagIDs
	if tags == nil {
		tags = []uuid.UUID{}
	}
	folders := p.FolderIDs
	if folders == nil {
		folders = []uuid.UUID{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tag scope: %w", err)
	}
	foldersJSON, err := json.Marshal(folders)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal folder scope: %w", err)
	}
	return tagsJSON, foldersJSON, nil
}
