package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/services"
	"github.com/JaimeStill/custodian/pkg/pagination"
	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

const entryColumns = `id, name, document_id, service_id, state, priority,
	attempts, max_attempts, scheduled_for, started_at, completed_at,
	result_message, error_message, log_id, created_at, updated_at`

// defaultMaxAttempts bounds automatic retries when admission does not
// specify its own limit.
const defaultMaxAttempts = 3

type repo struct {
	db          *sql.DB
	services    services.System
	logger      *slog.Logger
	pagination  pagination.Config
	maxAttempts int
	now         func() time.Time
}

// New creates a queue repository implementing the System interface.
// maxAttempts is the admission default; zero falls back to 3.
func New(
	db *sql.DB,
	svcs services.System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxAttempts int,
) System {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &repo{
		db:          db,
		services:    svcs,
		logger:      logger.With("system", "queue"),
		pagination:  pagination,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count queue entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntryView)
	if err != nil {
		return nil, fmt.Errorf("query queue entries: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEntryView)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

// Enqueue admits each requested document, silently skipping those with
// an active entry for the (document, service) pair. The check runs
// inside a transaction per document; the partial unique index on
// queue_entries backs it against racing admissions.
func (r *repo) Enqueue(ctx context.Context, cmd EnqueueCommand) ([]Entry, error) {
	if len(cmd.DocumentIDs) == 0 {
		return nil, ErrNoDocuments
	}

	priority, err := ParsePriority(cmd.Priority)
	if err != nil {
		return nil, err
	}

	maxAttempts := r.maxAttempts
	if cmd.MaxAttempts != nil && *cmd.MaxAttempts > 0 {
		maxAttempts = *cmd.MaxAttempts
	}

	serviceID, err := r.resolveService(ctx, cmd.ServiceID)
	if err != nil {
		return nil, err
	}

	insert := fmt.Sprintf(`
		INSERT INTO queue_entries(
			name, document_id, service_id, state, priority,
			max_attempts, scheduled_for
		)
		VALUES (
			'AIQ/' || lpad(nextval('queue_entry_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6
		)
		RETURNING %s`, entryColumns)

	created := make([]Entry, 0, len(cmd.DocumentIDs))

	for _, docID := range cmd.DocumentIDs {
		e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Entry, error) {
			var existing int
			err := tx.QueryRowContext(ctx, `
				SELECT count(*) FROM queue_entries
				WHERE document_id = $1 AND service_id = $2
					AND state IN ('pending', 'processing')`,
				docID, serviceID,
			).Scan(&existing)
			if err != nil {
				return nil, fmt.Errorf("check active entries: %w", err)
			}
			if existing > 0 {
				return nil, nil
			}

			e, err := repository.QueryOne(ctx, tx, insert, []any{
				docID,
				serviceID,
				StatePending,
				int16(priority),
				maxAttempts,
				r.now().UTC(),
			}, scanEntry)
			if err != nil {
				return nil, err
			}
			return &e, nil
		})
		if err != nil {
			// A racing admission hit the partial unique index; treat it
			// the same as the in-transaction skip.
			if errors.Is(repository.MapError(err, ErrNotFound, ErrDuplicate), ErrDuplicate) {
				continue
			}
			return nil, fmt.Errorf("enqueue document %s: %w", docID, err)
		}
		if e == nil {
			continue
		}

		r.logger.Info("entry enqueued",
			"name", e.Name,
			"document_id", e.DocumentID,
			"priority", e.Priority.String(),
		)
		created = append(created, *e)
	}

	return created, nil
}

func (r *repo) Cancel(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.transition(ctx, id, StateCancelled, func(e *Entry) []string {
		return []string{"completed_at = NOW()"}
	})
}

func (r *repo) Retry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.State != StateFailed {
		return nil, ErrInvalidTransition
	}

	q := fmt.Sprintf(`
		UPDATE queue_entries
		SET state = $2, attempts = 0, error_message = NULL,
			scheduled_for = $3, updated_at = NOW()
		WHERE id = $1 AND state = $4
		RETURNING %s`, entryColumns)

	e, err := repository.QueryOne(ctx, r.db, q, []any{
		id, StatePending, r.now().UTC(), StateFailed,
	}, scanEntry)
	if err != nil {
		return nil, repository.MapError(err, ErrInvalidTransition, ErrDuplicate)
	}

	r.logger.Info("entry retried", "name", e.Name, "id", e.ID)
	return &e, nil
}

func (r *repo) Depths(ctx context.Context) (map[State]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT state, count(*) FROM queue_entries GROUP BY state",
	)
	if err != nil {
		return nil, fmt.Errorf("queue depths: %w", err)
	}
	defer rows.Close()

	depths := make(map[State]int)
	for rows.Next() {
		var (
			state State
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		depths[state] = count
	}
	return depths, rows.Err()
}

// transition applies a guarded state change: the UPDATE's WHERE clause
// re-checks the current state so concurrent actors cannot double-apply.
func (r *repo) transition(
	ctx context.Context,
	id uuid.UUID,
	to State,
	extra func(e *Entry) []string,
) (*Entry, error) {
	entry, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.State.CanTransition(to) {
		return nil, ErrInvalidTransition
	}

	set := []string{"state = $2", "updated_at = NOW()"}
	if extra != nil {
		set = append(set, extra(entry)...)
	}

	q := fmt.Sprintf(`
		UPDATE queue_entries
		SET %s
		WHERE id = $1 AND state = $3
		RETURNING %s`, strings.Join(set, ", "), entryColumns)

	e, err := repository.QueryOne(ctx, r.db, q, []any{id, to, entry.State}, scanEntry)
	if err != nil {
		return nil, repository.MapError(err, ErrInvalidTransition, ErrDuplicate)
	}

	r.logger.Info("entry transitioned", "name", e.Name, "from", entry.State, "to", to)
	return &e, nil
}

func (r *repo) resolveService(ctx context.Context, explicit *uuid.UUID) (uuid.UUID, error) {
	if explicit != nil {
		svc, err := r.services.Find(ctx, *explicit)
		if err != nil {
			return uuid.Nil, err
		}
		return svc.ID, nil
	}

	svc, err := r.services.FirstActive(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return svc.ID, nil
}
