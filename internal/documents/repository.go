package documents

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/retention"
	"github.com/JaimeStill/custodian/pkg/pagination"
	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
	"github.com/JaimeStill/custodian/pkg/storage"
)

const docColumns = `id, name, filename, content_type, size_bytes, storage_key,
	source, sensitivity, document_date, fiscal_year, retention_policy_id,
	retention_date, retention_due, extracted_vendor, extracted_amount,
	extracted_currency, extracted_date, extracted_reference,
	extraction_confidence, is_invoice, invoice_state, duplicate_of_id,
	created_at, updated_at`

const ruleQuery = `
	SELECT d.id, d.created_at, d.document_date, p.trigger, p.retention_years, p.retention_months
	FROM public.documents d
	LEFT JOIN public.retention_policies p ON d.retention_policy_id = p.id`

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Filename", "ExtractedVendor", "ExtractedReference")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	name := cmd.Name
	if name == "" {
		name = cmd.Filename
	}
	source := cmd.Source
	if source == "" {
		source = "upload"
	}

	q := `
		INSERT INTO documents(
			id, name, filename, content_type, size_bytes, storage_key,
			source, document_date, fiscal_year, retention_policy_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + docColumns

	insertArgs := []any{
		id,
		name,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		key,
		source,
		dateOnly(cmd.DocumentDate),
		fiscalYear(cmd.DocumentDate),
		cmd.PolicyID,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		if _, err := repository.QueryOne(ctx, tx, q, insertArgs, scanDocument); err != nil {
			return Document{}, err
		}
		return r.recomputeTx(ctx, tx, id)
	})
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "filename", d.Filename)
	return &d, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Document, error) {
	if cmd.Sensitivity != nil && !RecognizedSensitivity(*cmd.Sensitivity) {
		return nil, ErrInvalidSensitivity
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if cmd.Name != nil {
		add("name", *cmd.Name)
	}
	if cmd.Source != nil {
		add("source", *cmd.Source)
	}
	if cmd.Sensitivity != nil {
		add("sensitivity", *cmd.Sensitivity)
	}
	if cmd.ClearDocumentDate {
		sets = append(sets, "document_date = NULL", "fiscal_year = NULL")
	} else if cmd.DocumentDate != nil {
		add("document_date", retention.DateOf(*cmd.DocumentDate))
		add("fiscal_year", strconv.Itoa(cmd.DocumentDate.Year()))
	}
	if cmd.ClearPolicy {
		sets = append(sets, "retention_policy_id = NULL")
	} else if cmd.PolicyID != nil {
		add("retention_policy_id", *cmd.PolicyID)
	}

	if len(sets) == 0 {
		return r.Find(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	q := fmt.Sprintf(
		"UPDATE documents SET %s WHERE id = $%d",
		strings.Join(sets, ", "),
		len(args),
	)

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, args...); err != nil {
			return Document{}, err
		}
		// The document date or policy may have changed; cached
		// retention fields are recomputed in the same transaction.
		return r.recomputeTx(ctx, tx, id)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document updated", "id", d.ID)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Content(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, "", err
	}

	reader, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("download document blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read document blob: %w", err)
	}

	return data, doc.ContentType, nil
}

func (r *repo) ApplyExtraction(ctx context.Context, id uuid.UUID, update ExtractionUpdate) (*Document, error) {
	if update.Empty() {
		return r.Find(ctx, id)
	}

	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Confidence != nil {
		add("extraction_confidence", *update.Confidence)
	}
	if update.Vendor != nil {
		add("extracted_vendor", *update.Vendor)
	}
	if update.Amount != nil {
		add("extracted_amount", *update.Amount)
	}
	if update.Currency != nil {
		add("extracted_currency", *update.Currency)
	}
	if update.Date != nil {
		add("extracted_date", retention.DateOf(*update.Date))
	}
	if update.Reference != nil {
		add("extracted_reference", *update.Reference)
	}
	if update.Invoice {
		add("is_invoice", true)
		add("invoice_state", InvoicePending)
	}
	if update.Sensitivity != nil {
		add("sensitivity", *update.Sensitivity)
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		if len(sets) > 0 {
			sets = append(sets, "updated_at = NOW()")
			args = append(args, id)
			q := fmt.Sprintf(
				"UPDATE documents SET %s WHERE id = $%d",
				strings.Join(sets, ", "),
				len(args),
			)
			if err := repository.ExecExpectOne(ctx, tx, q, args...); err != nil {
				return Document{}, err
			}
		}

		for _, tagID := range update.TagIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_tags(document_id, tag_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, id, tagID,
			); err != nil {
				return Document{}, fmt.Errorf("attach tag %s: %w", tagID, err)
			}
		}

		q, selectArgs := query.NewBuilder(projection).BuildSingle("ID", id)
		return repository.QueryOne(ctx, tx, q, selectArgs, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("extraction applied", "id", d.ID, "tags", len(update.TagIDs))
	return &d, nil
}

func (r *repo) Recompute(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return r.recomputeTx(ctx, tx, id)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) RecomputeForPolicy(ctx context.Context, policyID uuid.UUID) (int, error) {
	rows, err := repository.QueryMany(
		ctx, r.db,
		ruleQuery+" WHERE d.retention_policy_id = $1",
		[]any{policyID},
		scanRuleRow,
	)
	if err != nil {
		return 0, fmt.Errorf("query documents for policy %s: %w", policyID, err)
	}

	count := 0
	for _, row := range rows {
		result := resolveRow(row, r.now())
		if err := r.writeRetention(ctx, r.db, row.id, result); err != nil {
			return count, fmt.Errorf("recompute document %s: %w", row.id, err)
		}
		count++
	}

	return count, nil
}

func (r *repo) CheckDuplicate(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.ExtractedVendor == nil || doc.ExtractedAmount == nil {
		return nil, ErrNoExtractionData
	}

	matchQ := `
		SELECT id FROM documents
		WHERE id != $1
		  AND extracted_vendor ILIKE $2
		  AND extracted_amount = $3
		  AND ($4::date IS NULL OR extracted_date = $4)
		ORDER BY created_at ASC
		LIMIT 1`

	var matchID uuid.UUID
	err = r.db.QueryRowContext(
		ctx, matchQ,
		id, *doc.ExtractedVendor, *doc.ExtractedAmount, dateOnly(doc.ExtractedDate),
	).Scan(&matchID)
	if err == sql.ErrNoRows {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search duplicate invoices: %w", err)
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, `
			UPDATE documents
			SET invoice_state = $1, duplicate_of_id = $2, updated_at = NOW()
			WHERE id = $3`,
			InvoiceDuplicate, matchID, id,
		)
		return struct{}{}, err
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("duplicate detected", "id", id, "duplicate_of", matchID)
	return r.Find(ctx, id)
}

// recomputeTx re-resolves retention for one document inside an existing
// transaction and returns the refreshed record.
func (r *repo) recomputeTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Document, error) {
	row, err := repository.QueryOne(
		ctx, tx,
		ruleQuery+" WHERE d.id = $1",
		[]any{id},
		scanRuleRow,
	)
	if err != nil {
		return Document{}, err
	}

	if err := r.writeRetention(ctx, tx, id, resolveRow(row, r.now())); err != nil {
		return Document{}, err
	}

	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, tx, q, args, scanDocument)
}

func (r *repo) writeRetention(ctx context.Context, e repository.Executor, id uuid.UUID, result retention.Result) error {
	_, err := e.ExecContext(ctx, `
		UPDATE documents
		SET retention_date = $1, retention_due = $2, updated_at = NOW()
		WHERE id = $3`,
		result.Deadline, result.Due, id,
	)
	return err
}

func resolveRow(row ruleRow, now time.Time) retention.Result {
	var rule *retention.Rule
	if row.trigger != nil && row.years != nil && row.months != nil {
		rule = &retention.Rule{
			Trigger: retention.Trigger(*row.trigger),
			Years:   *row.years,
			Months:  *row.months,
		}
	}

	return retention.Resolve(retention.TemporalAttrs{
		CreatedAt:    row.createdAt,
		DocumentDate: row.documentDate,
	}, rule, now)
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := retention.DateOf(*t)
	return &d
}

func fiscalYear(t *time.Time) *string {
	if t == nil {
		return nil
	}
	y := strconv.Itoa(t.Year())
	return &y
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
