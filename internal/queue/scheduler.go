package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/custodian/internal/audit"
	"github.com/JaimeStill/custodian/internal/classifier"
	"github.com/JaimeStill/custodian/internal/documents"
	"github.com/JaimeStill/custodian/internal/extraction"
	"github.com/JaimeStill/custodian/internal/metrics"
	"github.com/JaimeStill/custodian/internal/services"
)

// retryDelay is the backoff unit: a failed attempt re-arms at
// now + retryDelay * attempts, uncapped.
const retryDelay = 5 * time.Minute

// CycleStats summarizes one dispatch cycle.
type CycleStats struct {
	Selected int `json:"selected"`
	Done     int `json:"done"`
	Retried  int `json:"retried"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Scheduler drains due pending entries through classification
// providers. Entries are claimed with a compare-and-swap before the
// provider call, so concurrent cycles never dispatch the same entry
// twice; each entry's outcome commits independently.
type Scheduler struct {
	db          *sql.DB
	documents   documents.System
	services    services.System
	audit       audit.System
	resolver    classifier.TagResolver
	extractor   extraction.Provider
	metrics     *metrics.Metrics
	logger      *slog.Logger
	batchLimit  int
	concurrency int
	now         func() time.Time

	providerFor func(svc *services.Service) (classifier.Provider, error)

	mu        sync.Mutex
	providers map[uuid.UUID]cachedProvider
}

type cachedProvider struct {
	provider  classifier.Provider
	updatedAt time.Time
}

// NewScheduler creates a Scheduler. extractor may be nil, which
// disables OCR pre-extraction. batchLimit bounds entries per cycle;
// concurrency bounds parallel provider calls.
func NewScheduler(
	db *sql.DB,
	docs documents.System,
	svcs services.System,
	auditLog audit.System,
	resolver classifier.TagResolver,
	extractor extraction.Provider,
	m *metrics.Metrics,
	logger *slog.Logger,
	batchLimit int,
	concurrency int,
) *Scheduler {
	if batchLimit <= 0 {
		batchLimit = 10
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scheduler{
		db:          db,
		documents:   docs,
		services:    svcs,
		audit:       auditLog,
		resolver:    resolver,
		extractor:   extractor,
		metrics:     m,
		logger:      logger.With("system", "scheduler"),
		batchLimit:  batchLimit,
		concurrency: concurrency,
		now:         time.Now,
		providerFor: classifier.ForService,
		providers:   make(map[uuid.UUID]cachedProvider),
	}
}

// RunCycle selects due pending entries in priority order and dispatches
// them. It returns aggregate stats; individual entry failures are
// recorded on the entries and in the classification log, never
// propagated as cycle errors.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	selectSQL := fmt.Sprintf(`
		SELECT %s FROM queue_entries
		WHERE state = $1 AND scheduled_for <= $2
		ORDER BY priority DESC, scheduled_for ASC
		LIMIT $3`, entryColumns)

	rows, err := s.db.QueryContext(ctx, selectSQL, StatePending, s.now().UTC(), s.batchLimit)
	if err != nil {
		return stats, fmt.Errorf("select due entries: %w", err)
	}

	var due []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return stats, err
		}
		due = append(due, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.Selected = len(due)
	if len(due) == 0 {
		s.sampleDepths(ctx)
		return stats, nil
	}

	s.logger.Info("dispatch cycle", "due", len(due))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, entry := range due {
		g.Go(func() error {
			outcome := s.dispatch(gctx, entry)

			mu.Lock()
			switch outcome {
			case metrics.OutcomeDone:
				stats.Done++
			case metrics.OutcomeRetried:
				stats.Retried++
			case metrics.OutcomeFailed:
				stats.Failed++
			default:
				stats.Skipped++
			}
			mu.Unlock()

			// Entry outcomes are isolated; a failure here must not
			// cancel the sibling dispatches.
			return nil
		})
	}

	g.Wait()
	s.sampleDepths(ctx)

	return stats, nil
}

// ClassifyNow runs the full dispatch pipeline for a single document
// synchronously, outside the queue: classify, apply, record stats and
// audit. It returns the provider result and whether it was applied.
func (s *Scheduler) ClassifyNow(ctx context.Context, documentID uuid.UUID) (*classifier.Result, bool, error) {
	svc, err := s.services.FirstActive(ctx)
	if err != nil {
		return nil, false, err
	}

	result, applied, _, err := s.classify(ctx, documentID, svc)
	if err != nil {
		return nil, false, err
	}
	return result, applied, nil
}

// dispatch claims and processes one entry, returning the metrics
// outcome label, or "" when the claim was lost.
func (s *Scheduler) dispatch(ctx context.Context, entry Entry) string {
	claimed, ok := s.claim(ctx, entry)
	if !ok {
		return ""
	}

	svc, err := s.services.Find(ctx, claimed.ServiceID)
	if err != nil {
		s.settleError(ctx, claimed, nil, fmt.Errorf("load service: %w", err))
		outcome := s.outcomeForError(claimed)
		s.metrics.ObserveDispatch(outcome, 0)
		return outcome
	}

	start := s.now()
	result, applied, logID, err := s.classify(ctx, claimed.DocumentID, svc)
	elapsed := s.now().Sub(start)

	if err != nil {
		failureLogID := s.recordFailure(ctx, claimed, svc.ID, elapsed, err)
		s.settleError(ctx, claimed, failureLogID, err)
		outcome := s.outcomeForError(claimed)
		s.metrics.ObserveDispatch(outcome, elapsed.Seconds())
		return outcome
	}

	s.settleDone(ctx, claimed, result, applied, logID)
	s.metrics.ObserveDispatch(metrics.OutcomeDone, elapsed.Seconds())
	return metrics.OutcomeDone
}

// claim performs the pending -> processing compare-and-swap, stamping
// the start time and attempt counter before any external call.
func (s *Scheduler) claim(ctx context.Context, entry Entry) (Entry, bool) {
	q := fmt.Sprintf(`
		UPDATE queue_entries
		SET state = $2, started_at = $3, attempts = attempts + 1,
			updated_at = NOW()
		WHERE id = $1 AND state = $4
		RETURNING %s`, entryColumns)

	row := s.db.QueryRowContext(ctx, q, entry.ID, StateProcessing, s.now().UTC(), StatePending)
	claimed, err := scanEntry(row)
	if err != nil {
		// Another cycle claimed it, or it was cancelled in between.
		return Entry{}, false
	}
	return claimed, true
}

// classify loads the document content, invokes the provider, applies
// the result, updates service stats, and records the audit entry.
func (s *Scheduler) classify(
	ctx context.Context,
	documentID uuid.UUID,
	svc *services.Service,
) (*classifier.Result, bool, *uuid.UUID, error) {
	content, contentType, err := s.documents.Content(ctx, documentID)
	if err != nil {
		return nil, false, nil, fmt.Errorf("load document content: %w", err)
	}

	provider, err := s.provider(svc)
	if err != nil {
		return nil, false, nil, err
	}

	// OCR runs in its own failure domain: when extraction errors, the
	// provider classifies the original bytes instead.
	kind := classifier.KindForContentType(contentType)
	if svc.AutoExtract && s.extractor != nil && kind != classifier.ContentText {
		ext, err := s.extractor.ExtractText(ctx, content, contentType)
		switch {
		case err != nil:
			s.logger.Warn("text extraction failed", "document_id", documentID, "error", err)
		case ext.Text != "":
			content = []byte(ext.Text)
			kind = classifier.ContentText
		}
	}

	start := s.now()
	result, err := provider.Classify(ctx, content, kind)
	elapsed := s.now().Sub(start)
	if err != nil {
		return nil, false, nil, err
	}
	if result.Failed() {
		return nil, false, nil, fmt.Errorf("classification error: %s", result.Error)
	}

	update, applied, err := classifier.Apply(
		ctx, result, svc.ConfidenceThreshold, svc.AutoTag, s.resolver,
	)
	if err != nil {
		return nil, false, nil, fmt.Errorf("apply classification: %w", err)
	}

	if applied {
		if _, err := s.documents.ApplyExtraction(ctx, documentID, update); err != nil {
			return nil, false, nil, fmt.Errorf("commit extraction: %w", err)
		}
	}

	confidence := result.Confidence
	if err := s.services.RecordRun(ctx, svc.ID, services.RunStats{
		Confidence: &confidence,
		RanAt:      s.now().UTC(),
	}); err != nil {
		s.logger.Warn("service stats update failed", "service_id", svc.ID, "error", err)
	}

	logID := s.recordSuccess(ctx, documentID, svc.ID, result, applied, elapsed)
	return result, applied, logID, nil
}

func (s *Scheduler) provider(svc *services.Service) (classifier.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.providers[svc.ID]; ok && cached.updatedAt.Equal(svc.UpdatedAt) {
		return cached.provider, nil
	}

	p, err := s.providerFor(svc)
	if err != nil {
		return nil, err
	}

	s.providers[svc.ID] = cachedProvider{provider: p, updatedAt: svc.UpdatedAt}
	return p, nil
}

// settleDone transitions a processing entry to done with its result
// summary and log reference.
func (s *Scheduler) settleDone(
	ctx context.Context,
	entry Entry,
	result *classifier.Result,
	applied bool,
	logID *uuid.UUID,
) {
	message := fmt.Sprintf(
		"Classification: %s (confidence %.2f, applied %t)",
		result.DocumentType, result.Confidence, applied,
	)

	_, err := s.db.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $2, completed_at = $3, result_message = $4,
			error_message = NULL, log_id = $5, updated_at = NOW()
		WHERE id = $1 AND state = $6`,
		entry.ID, StateDone, s.now().UTC(), message, logID, StateProcessing,
	)
	if err != nil {
		s.logger.Error("settle done failed", "name", entry.Name, "error", err)
		return
	}

	s.logger.Info("entry done", "name", entry.Name, "applied", applied)
}

// settleError re-arms the entry to pending with linear backoff, or
// marks it failed once attempts have reached the maximum. logID points
// the entry at the audit record of the attempt that just errored.
func (s *Scheduler) settleError(ctx context.Context, entry Entry, logID *uuid.UUID, cause error) {
	state := StatePending
	scheduledFor := s.now().UTC().Add(retryDelay * time.Duration(entry.Attempts))
	if entry.Attempts >= entry.MaxAttempts {
		state = StateFailed
		scheduledFor = entry.ScheduledFor
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE queue_entries
		SET state = $2, error_message = $3, scheduled_for = $4,
			log_id = $5, updated_at = NOW()
		WHERE id = $1 AND state = $6`,
		entry.ID, state, cause.Error(), scheduledFor, logID, StateProcessing,
	)
	if err != nil {
		s.logger.Error("settle error failed", "name", entry.Name, "error", err)
		return
	}

	s.logger.Warn("entry errored",
		"name", entry.Name,
		"state", state,
		"attempts", entry.Attempts,
		"error", cause,
	)
}

func (s *Scheduler) outcomeForError(entry Entry) string {
	if entry.Attempts >= entry.MaxAttempts {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeRetried
}

func (s *Scheduler) recordSuccess(
	ctx context.Context,
	documentID, serviceID uuid.UUID,
	result *classifier.Result,
	applied bool,
	elapsed time.Duration,
) *uuid.UUID {
	raw := result.RawResponse
	if raw == "" {
		raw = fmt.Sprintf("%+v", *result)
	}
	confidence := result.Confidence
	detected := result.DocumentType
	duration := elapsed.Seconds()

	entry, err := s.audit.Record(ctx, audit.RecordCommand{
		DocumentID:   documentID,
		ServiceID:    serviceID,
		RawResult:    &raw,
		Confidence:   &confidence,
		DetectedType: &detected,
		Applied:      applied,
		Duration:     &duration,
	})
	if err != nil {
		s.logger.Warn("audit record failed", "document_id", documentID, "error", err)
		return nil
	}
	return &entry.ID
}

func (s *Scheduler) recordFailure(
	ctx context.Context,
	entry Entry,
	serviceID uuid.UUID,
	elapsed time.Duration,
	cause error,
) *uuid.UUID {
	message := cause.Error()
	duration := elapsed.Seconds()

	logEntry, err := s.audit.Record(ctx, audit.RecordCommand{
		DocumentID:   entry.DocumentID,
		ServiceID:    serviceID,
		Applied:      false,
		ErrorMessage: &message,
		Duration:     &duration,
	})
	if err != nil {
		s.logger.Warn("audit record failed", "document_id", entry.DocumentID, "error", err)
		return nil
	}
	return &logEntry.ID
}

func (s *Scheduler) sampleDepths(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT state, count(*) FROM queue_entries GROUP BY state",
	)
	if err != nil {
		s.logger.Warn("queue depth sample failed", "error", err)
		return
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return
		}
		counts[state] = count
	}

	// States with no rows are absent from the result set; a drained
	// state must still reset its gauge to zero.
	for _, state := range States {
		s.metrics.SetQueueDepth(string(state), counts[string(state)])
	}
}
