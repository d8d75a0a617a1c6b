package queue

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/audit"
	"github.com/JaimeStill/custodian/internal/classifier"
	"github.com/JaimeStill/custodian/internal/documents"
	"github.com/JaimeStill/custodian/internal/extraction"
	"github.com/JaimeStill/custodian/internal/metrics"
	"github.com/JaimeStill/custodian/internal/services"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// passthroughConverter hands args to sqlmock unconverted so uuid.UUID
// and domain string types survive for WithArgs comparison.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) { return v, nil }

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type stubDocuments struct {
	documents.System
	contentFn func(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	applyFn   func(ctx context.Context, id uuid.UUID, update documents.ExtractionUpdate) (*documents.Document, error)
}

func (s *stubDocuments) Content(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	return s.contentFn(ctx, id)
}

func (s *stubDocuments) ApplyExtraction(ctx context.Context, id uuid.UUID, update documents.ExtractionUpdate) (*documents.Document, error) {
	return s.applyFn(ctx, id, update)
}

type stubServices struct {
	services.System
	findFn        func(ctx context.Context, id uuid.UUID) (*services.Service, error)
	firstActiveFn func(ctx context.Context) (*services.Service, error)
	recordRunFn   func(ctx context.Context, id uuid.UUID, stats services.RunStats) error
}

func (s *stubServices) Find(ctx context.Context, id uuid.UUID) (*services.Service, error) {
	return s.findFn(ctx, id)
}

func (s *stubServices) FirstActive(ctx context.Context) (*services.Service, error) {
	return s.firstActiveFn(ctx)
}

func (s *stubServices) RecordRun(ctx context.Context, id uuid.UUID, stats services.RunStats) error {
	if s.recordRunFn == nil {
		return nil
	}
	return s.recordRunFn(ctx, id, stats)
}

type stubAudit struct {
	audit.System
	recordFn func(ctx context.Context, cmd audit.RecordCommand) (*audit.LogEntry, error)
}

func (s *stubAudit) Record(ctx context.Context, cmd audit.RecordCommand) (*audit.LogEntry, error) {
	if s.recordFn == nil {
		return &audit.LogEntry{ID: uuid.New()}, nil
	}
	return s.recordFn(ctx, cmd)
}

type resolverFunc func(ctx context.Context, names []string) ([]uuid.UUID, error)

func (f resolverFunc) Resolve(ctx context.Context, names []string) ([]uuid.UUID, error) {
	return f(ctx, names)
}

type providerFunc func(ctx context.Context, content []byte, kind classifier.ContentKind) (*classifier.Result, error)

func (f providerFunc) Classify(ctx context.Context, content []byte, kind classifier.ContentKind) (*classifier.Result, error) {
	return f(ctx, content, kind)
}

func testService() *services.Service {
	return &services.Service{
		ID:                  uuid.MustParse("7f9c24e8-3b13-4a4d-9d6b-111111111111"),
		Name:                "default",
		Provider:            "openai",
		Active:              true,
		ConfidenceThreshold: 0.7,
		AutoTag:             true,
		AutoExtract:         true,
		UpdatedAt:           fixedNow,
	}
}

func testEntry(svc *services.Service) Entry {
	return Entry{
		ID:           uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Name:         "AIQ/000001",
		DocumentID:   uuid.MustParse("9b2f06a1-58d0-4f2c-8a7e-222222222222"),
		ServiceID:    svc.ID,
		State:        StatePending,
		Priority:     PriorityNormal,
		Attempts:     0,
		MaxAttempts:  3,
		ScheduledFor: fixedNow,
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
}

var entryTestColumns = []string{
	"id", "name", "document_id", "service_id", "state", "priority",
	"attempts", "max_attempts", "scheduled_for", "started_at",
	"completed_at", "result_message", "error_message", "log_id",
	"created_at", "updated_at",
}

func entryRows(entries ...Entry) *sqlmock.Rows {
	rows := sqlmock.NewRows(entryTestColumns)
	for _, e := range entries {
		rows.AddRow(
			e.ID.String(), e.Name, e.DocumentID.String(), e.ServiceID.String(),
			string(e.State), int16(e.Priority), e.Attempts, e.MaxAttempts,
			e.ScheduledFor, e.StartedAt, e.CompletedAt, e.ResultMessage,
			e.ErrorMessage, e.LogID, e.CreatedAt, e.UpdatedAt,
		)
	}
	return rows
}

func newTestScheduler(
	db *sql.DB,
	docs documents.System,
	svcs services.System,
	auditLog audit.System,
	resolver classifier.TagResolver,
	provider classifier.Provider,
) *Scheduler {
	return &Scheduler{
		db:          db,
		documents:   docs,
		services:    svcs,
		audit:       auditLog,
		resolver:    resolver,
		metrics:     metrics.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchLimit:  10,
		concurrency: 1,
		now:         func() time.Time { return fixedNow },
		providerFor: func(svc *services.Service) (classifier.Provider, error) {
			return provider, nil
		},
		providers: make(map[uuid.UUID]cachedProvider),
	}
}

func TestDispatchClaimLost(t *testing.T) {
	db, mock := newMockDB(t)

	svc := testService()
	entry := testEntry(svc)

	mock.ExpectQuery("UPDATE queue_entries").
		WithArgs(entry.ID, StateProcessing, fixedNow, StatePending).
		WillReturnError(sql.ErrNoRows)

	svcs := &stubServices{
		findFn: func(context.Context, uuid.UUID) (*services.Service, error) {
			t.Fatal("Find called after lost claim")
			return nil, nil
		},
	}

	s := newTestScheduler(db, &stubDocuments{}, svcs, &stubAudit{}, nil, nil)

	outcome := s.dispatch(context.Background(), entry)
	if outcome != "" {
		t.Errorf("dispatch() = %q, want empty outcome for lost claim", outcome)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDispatchSuccess(t *testing.T) {
	db, mock := newMockDB(t)

	svc := testService()
	entry := testEntry(svc)
	tagID := uuid.New()

	claimed := entry
	claimed.State = StateProcessing
	claimed.Attempts = 1
	claimed.StartedAt = &fixedNow

	mock.ExpectQuery("UPDATE queue_entries").
		WithArgs(entry.ID, StateProcessing, fixedNow, StatePending).
		WillReturnRows(entryRows(claimed))

	mock.ExpectExec("UPDATE queue_entries").
		WithArgs(
			entry.ID, StateDone, fixedNow,
			"Classification: invoice (confidence 0.93, applied true)",
			sqlmock.AnyArg(), StateProcessing,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var applied *documents.ExtractionUpdate
	docs := &stubDocuments{
		contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
			return []byte("%PDF-1.7"), "application/pdf", nil
		},
		applyFn: func(_ context.Context, _ uuid.UUID, update documents.ExtractionUpdate) (*documents.Document, error) {
			applied = &update
			return &documents.Document{}, nil
		},
	}

	var recorded *services.RunStats
	svcs := &stubServices{
		findFn: func(context.Context, uuid.UUID) (*services.Service, error) {
			return svc, nil
		},
		recordRunFn: func(_ context.Context, _ uuid.UUID, stats services.RunStats) error {
			recorded = &stats
			return nil
		},
	}

	provider := providerFunc(func(_ context.Context, _ []byte, kind classifier.ContentKind) (*classifier.Result, error) {
		if kind != classifier.ContentPDF {
			t.Errorf("kind = %v, want ContentPDF", kind)
		}
		return &classifier.Result{
			DocumentType: classifier.TypeInvoice,
			Confidence:   0.93,
			ExtractedData: classifier.ExtractedData{
				VendorName: "Acme GmbH",
				Amount:     classifier.FlexAmount{Value: 120.50, Valid: true},
			},
			SuggestedTags: []string{"acme"},
		}, nil
	})

	resolver := resolverFunc(func(_ context.Context, names []string) ([]uuid.UUID, error) {
		if len(names) != 1 || names[0] != "acme" {
			t.Errorf("Resolve(%v), want [acme]", names)
		}
		return []uuid.UUID{tagID}, nil
	})

	s := newTestScheduler(db, docs, svcs, &stubAudit{}, resolver, provider)

	outcome := s.dispatch(context.Background(), entry)
	if outcome != metrics.OutcomeDone {
		t.Fatalf("dispatch() = %q, want %q", outcome, metrics.OutcomeDone)
	}

	if applied == nil {
		t.Fatal("ApplyExtraction never called")
	}
	if applied.Vendor == nil || *applied.Vendor != "Acme GmbH" {
		t.Errorf("Vendor = %v, want Acme GmbH", applied.Vendor)
	}
	if applied.Amount == nil || *applied.Amount != 120.50 {
		t.Errorf("Amount = %v, want 120.50", applied.Amount)
	}
	if !applied.Invoice {
		t.Error("Invoice flag not set for invoice type")
	}
	if len(applied.TagIDs) != 1 || applied.TagIDs[0] != tagID {
		t.Errorf("TagIDs = %v, want [%s]", applied.TagIDs, tagID)
	}

	if recorded == nil {
		t.Fatal("RecordRun never called")
	}
	if recorded.Confidence == nil || *recorded.Confidence != 0.93 {
		t.Errorf("RecordRun confidence = %v, want 0.93", recorded.Confidence)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDispatchBelowThresholdStillDone(t *testing.T) {
	db, mock := newMockDB(t)

	svc := testService()
	entry := testEntry(svc)

	claimed := entry
	claimed.State = StateProcessing
	claimed.Attempts = 1

	mock.ExpectQuery("UPDATE queue_entries").
		WillReturnRows(entryRows(claimed))

	mock.ExpectExec("UPDATE queue_entries").
		WithArgs(
			entry.ID, StateDone, fixedNow,
			"Classification: other (confidence 0.40, applied false)",
			sqlmock.AnyArg(), StateProcessing,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	docs := &stubDocuments{
		contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
			return []byte("text"), "text/plain", nil
		},
		applyFn: func(context.Context, uuid.UUID, documents.ExtractionUpdate) (*documents.Document, error) {
			t.Fatal("ApplyExtraction called for a below-threshold result")
			return nil, nil
		},
	}

	svcs := &stubServices{
		findFn: func(context.Context, uuid.UUID) (*services.Service, error) {
			return svc, nil
		},
	}

	provider := providerFunc(func(context.Context, []byte, classifier.ContentKind) (*classifier.Result, error) {
		return &classifier.Result{DocumentType: classifier.TypeOther, Confidence: 0.40}, nil
	})

	s := newTestScheduler(db, docs, svcs, &stubAudit{}, nil, provider)

	outcome := s.dispatch(context.Background(), entry)
	if outcome != metrics.OutcomeDone {
		t.Errorf("dispatch() = %q, want %q", outcome, metrics.OutcomeDone)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDispatchBackoff(t *testing.T) {
	tests := []struct {
		name         string
		attempts     int
		wantOutcome  string
		wantState    State
		wantSchedule time.Time
	}{
		{"first failure re-arms at 5m", 1, metrics.OutcomeRetried, StatePending, fixedNow.Add(5 * time.Minute)},
		{"second failure re-arms at 10m", 2, metrics.OutcomeRetried, StatePending, fixedNow.Add(10 * time.Minute)},
		{"final failure settles failed", 3, metrics.OutcomeFailed, StateFailed, fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			svc := testService()
			entry := testEntry(svc)
			failureLogID := uuid.MustParse("4c1f3f6e-9a2d-4e0b-b7c5-333333333333")

			claimed := entry
			claimed.State = StateProcessing
			claimed.Attempts = tt.attempts

			mock.ExpectQuery("UPDATE queue_entries").
				WillReturnRows(entryRows(claimed))

			// The settle update must point log_id at the audit entry of
			// the attempt that just errored.
			mock.ExpectExec("UPDATE queue_entries").
				WithArgs(entry.ID, tt.wantState, "model offline", tt.wantSchedule, &failureLogID, StateProcessing).
				WillReturnResult(sqlmock.NewResult(0, 1))

			docs := &stubDocuments{
				contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
					return []byte("text"), "text/plain", nil
				},
			}

			svcs := &stubServices{
				findFn: func(context.Context, uuid.UUID) (*services.Service, error) {
					return svc, nil
				},
			}

			provider := providerFunc(func(context.Context, []byte, classifier.ContentKind) (*classifier.Result, error) {
				return nil, errors.New("model offline")
			})

			var failureLogged bool
			auditLog := &stubAudit{
				recordFn: func(_ context.Context, cmd audit.RecordCommand) (*audit.LogEntry, error) {
					failureLogged = true
					if cmd.Applied {
						t.Error("failure audit entry marked applied")
					}
					if cmd.ErrorMessage == nil || *cmd.ErrorMessage != "model offline" {
						t.Errorf("ErrorMessage = %v, want model offline", cmd.ErrorMessage)
					}
					return &audit.LogEntry{ID: failureLogID}, nil
				},
			}

			s := newTestScheduler(db, docs, svcs, auditLog, nil, provider)

			outcome := s.dispatch(context.Background(), entry)
			if outcome != tt.wantOutcome {
				t.Errorf("dispatch() = %q, want %q", outcome, tt.wantOutcome)
			}
			if !failureLogged {
				t.Error("failure never recorded in classification log")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestRunCycleEmpty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM queue_entries").
		WillReturnRows(sqlmock.NewRows(entryTestColumns))
	mock.ExpectQuery("GROUP BY state").
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("done", 4))

	s := newTestScheduler(db, &stubDocuments{}, &stubServices{}, &stubAudit{}, nil, nil)

	stats, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() err = %v", err)
	}
	if stats != (CycleStats{}) {
		t.Errorf("RunCycle() stats = %+v, want zero", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunCycleDispatchesDueEntries(t *testing.T) {
	db, mock := newMockDB(t)

	svc := testService()
	entry := testEntry(svc)

	claimed := entry
	claimed.State = StateProcessing
	claimed.Attempts = 1

	mock.ExpectQuery("SELECT (.+) FROM queue_entries").
		WithArgs(StatePending, fixedNow, 10).
		WillReturnRows(entryRows(entry))
	mock.ExpectQuery("UPDATE queue_entries").
		WillReturnRows(entryRows(claimed))
	mock.ExpectExec("UPDATE queue_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("GROUP BY state").
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("pending", 0).
			AddRow("done", 1))

	docs := &stubDocuments{
		contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
			return []byte("text"), "text/plain", nil
		},
		applyFn: func(context.Context, uuid.UUID, documents.ExtractionUpdate) (*documents.Document, error) {
			return &documents.Document{}, nil
		},
	}

	svcs := &stubServices{
		findFn: func(context.Context, uuid.UUID) (*services.Service, error) {
			return svc, nil
		},
	}

	provider := providerFunc(func(context.Context, []byte, classifier.ContentKind) (*classifier.Result, error) {
		return &classifier.Result{DocumentType: classifier.TypeContract, Confidence: 0.88}, nil
	})

	s := newTestScheduler(db, docs, svcs, &stubAudit{}, nil, provider)

	stats, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() err = %v", err)
	}
	if stats.Selected != 1 || stats.Done != 1 {
		t.Errorf("stats = %+v, want Selected=1 Done=1", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestSampleDepthsResetsDrainedStates(t *testing.T) {
	db, mock := newMockDB(t)

	depthRows := func(pairs ...any) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"state", "count"})
		for i := 0; i < len(pairs); i += 2 {
			rows.AddRow(pairs[i], pairs[i+1])
		}
		return rows
	}

	mock.ExpectQuery("GROUP BY state").
		WillReturnRows(depthRows("pending", 2, "done", 1))
	mock.ExpectQuery("GROUP BY state").
		WillReturnRows(depthRows("done", 3))

	s := newTestScheduler(db, &stubDocuments{}, &stubServices{}, &stubAudit{}, nil, nil)

	s.sampleDepths(context.Background())
	if body := scrapeMetrics(t, s.metrics); !strings.Contains(body, `custodian_queue_depth{state="pending"} 2`) {
		t.Error("pending depth not recorded after first sample")
	}

	// pending drained between samples; its gauge must return to zero
	// rather than hold the previous value.
	s.sampleDepths(context.Background())
	body := scrapeMetrics(t, s.metrics)
	if !strings.Contains(body, `custodian_queue_depth{state="pending"} 0`) {
		t.Error("drained pending state kept a stale depth")
	}
	if !strings.Contains(body, `custodian_queue_depth{state="done"} 3`) {
		t.Error("done depth not updated by second sample")
	}
	if !strings.Contains(body, `custodian_queue_depth{state="cancelled"} 0`) {
		t.Error("states with no rows missing from the gauge")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestClassifyNow(t *testing.T) {
	db, _ := newMockDB(t)

	svc := testService()
	docID := uuid.New()

	docs := &stubDocuments{
		contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
			return []byte{0xFF, 0xD8}, "image/jpeg", nil
		},
		applyFn: func(context.Context, uuid.UUID, documents.ExtractionUpdate) (*documents.Document, error) {
			return &documents.Document{}, nil
		},
	}

	svcs := &stubServices{
		firstActiveFn: func(context.Context) (*services.Service, error) {
			return svc, nil
		},
	}

	provider := providerFunc(func(_ context.Context, _ []byte, kind classifier.ContentKind) (*classifier.Result, error) {
		if kind != classifier.ContentImage {
			t.Errorf("kind = %v, want ContentImage", kind)
		}
		return &classifier.Result{DocumentType: classifier.TypeTax, Confidence: 0.81}, nil
	})

	s := newTestScheduler(db, docs, svcs, &stubAudit{}, nil, provider)

	result, applied, err := s.ClassifyNow(context.Background(), docID)
	if err != nil {
		t.Fatalf("ClassifyNow() err = %v", err)
	}
	if result.DocumentType != classifier.TypeTax {
		t.Errorf("DocumentType = %q, want %q", result.DocumentType, classifier.TypeTax)
	}
	if !applied {
		t.Error("applied = false, want true for above-threshold result")
	}
}

func TestClassifyNowNoActiveService(t *testing.T) {
	db, _ := newMockDB(t)

	svcs := &stubServices{
		firstActiveFn: func(context.Context) (*services.Service, error) {
			return nil, services.ErrNoActiveService
		},
	}

	s := newTestScheduler(db, &stubDocuments{}, svcs, &stubAudit{}, nil, nil)

	if _, _, err := s.ClassifyNow(context.Background(), uuid.New()); !errors.Is(err, services.ErrNoActiveService) {
		t.Errorf("ClassifyNow() err = %v, want ErrNoActiveService", err)
	}
}

type extractorFunc func(ctx context.Context, content []byte, contentType string) (*extraction.Extraction, error)

func (f extractorFunc) ExtractText(ctx context.Context, content []byte, contentType string) (*extraction.Extraction, error) {
	return f(ctx, content, contentType)
}

func TestClassifyAutoExtract(t *testing.T) {
	pdfBytes := []byte("%PDF-1.7 scanned")

	newDocs := func() *stubDocuments {
		return &stubDocuments{
			contentFn: func(context.Context, uuid.UUID) ([]byte, string, error) {
				return pdfBytes, "application/pdf", nil
			},
			applyFn: func(context.Context, uuid.UUID, documents.ExtractionUpdate) (*documents.Document, error) {
				return &documents.Document{}, nil
			},
		}
	}

	t.Run("extracted text reaches the provider", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := testService()

		extractor := extractorFunc(func(_ context.Context, content []byte, contentType string) (*extraction.Extraction, error) {
			if string(content) != string(pdfBytes) {
				t.Error("extractor did not receive the original document bytes")
			}
			if contentType != "application/pdf" {
				t.Errorf("contentType = %q, want application/pdf", contentType)
			}
			return &extraction.Extraction{Text: "Lease agreement for Hauptstrasse 12", PageCount: 3}, nil
		})

		provider := providerFunc(func(_ context.Context, content []byte, kind classifier.ContentKind) (*classifier.Result, error) {
			if kind != classifier.ContentText {
				t.Errorf("kind = %v, want ContentText for extracted content", kind)
			}
			if string(content) != "Lease agreement for Hauptstrasse 12" {
				t.Errorf("content = %q, want the extracted text", content)
			}
			return &classifier.Result{DocumentType: classifier.TypeContract, Confidence: 0.9}, nil
		})

		s := newTestScheduler(db, newDocs(), &stubServices{}, &stubAudit{}, nil, provider)
		s.extractor = extractor

		result, applied, _, err := s.classify(context.Background(), uuid.New(), svc)
		if err != nil {
			t.Fatalf("classify() err = %v", err)
		}
		if result.DocumentType != classifier.TypeContract || !applied {
			t.Errorf("classify() = (%s, %t), want (contract, true)", result.DocumentType, applied)
		}
	})

	t.Run("extraction failure falls back to original bytes", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := testService()

		extractor := extractorFunc(func(context.Context, []byte, string) (*extraction.Extraction, error) {
			return nil, errors.New("ocr backend offline")
		})

		provider := providerFunc(func(_ context.Context, content []byte, kind classifier.ContentKind) (*classifier.Result, error) {
			if kind != classifier.ContentPDF {
				t.Errorf("kind = %v, want ContentPDF after extraction failure", kind)
			}
			if string(content) != string(pdfBytes) {
				t.Error("provider did not receive the original document bytes")
			}
			return &classifier.Result{DocumentType: classifier.TypeInvoice, Confidence: 0.85}, nil
		})

		s := newTestScheduler(db, newDocs(), &stubServices{}, &stubAudit{}, nil, provider)
		s.extractor = extractor

		if _, _, _, err := s.classify(context.Background(), uuid.New(), svc); err != nil {
			t.Fatalf("classify() err = %v, extraction failures must not fail the entry", err)
		}
	})

	t.Run("empty extraction keeps original bytes", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := testService()

		extractor := extractorFunc(func(context.Context, []byte, string) (*extraction.Extraction, error) {
			return &extraction.Extraction{}, nil
		})

		provider := providerFunc(func(_ context.Context, _ []byte, kind classifier.ContentKind) (*classifier.Result, error) {
			if kind != classifier.ContentPDF {
				t.Errorf("kind = %v, want ContentPDF for empty extraction", kind)
			}
			return &classifier.Result{DocumentType: classifier.TypeOther, Confidence: 0.8}, nil
		})

		s := newTestScheduler(db, newDocs(), &stubServices{}, &stubAudit{}, nil, provider)
		s.extractor = extractor

		if _, _, _, err := s.classify(context.Background(), uuid.New(), svc); err != nil {
			t.Fatalf("classify() err = %v", err)
		}
	})

	t.Run("disabled on the service skips the extractor", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := testService()
		svc.AutoExtract = false

		extractor := extractorFunc(func(context.Context, []byte, string) (*extraction.Extraction, error) {
			t.Fatal("ExtractText called with auto_extract disabled")
			return nil, nil
		})

		provider := providerFunc(func(_ context.Context, _ []byte, kind classifier.ContentKind) (*classifier.Result, error) {
			if kind != classifier.ContentPDF {
				t.Errorf("kind = %v, want ContentPDF", kind)
			}
			return &classifier.Result{DocumentType: classifier.TypeOther, Confidence: 0.8}, nil
		})

		s := newTestScheduler(db, newDocs(), &stubServices{}, &stubAudit{}, nil, provider)
		s.extractor = extractor

		if _, _, _, err := s.classify(context.Background(), uuid.New(), svc); err != nil {
			t.Fatalf("classify() err = %v", err)
		}
	})

	t.Run("text content never extracts", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := testService()

		docs := newDocs()
		docs.contentFn = func(context.Context, uuid.UUID) ([]byte, string, error) {
			return []byte("plain body"), "text/plain", nil
		}

		extractor := extractorFunc(func(context.Context, []byte, string) (*extraction.Extraction, error) {
			t.Fatal("ExtractText called for text content")
			return nil, nil
		})

		provider := providerFunc(func(_ context.Context, _ []byte, kind classifier.ContentKind) (*classifier.Result, error) {
			if kind != classifier.ContentText {
				t.Errorf("kind = %v, want ContentText", kind)
			}
			return &classifier.Result{DocumentType: classifier.TypeOther, Confidence: 0.8}, nil
		})

		s := newTestScheduler(db, docs, &stubServices{}, &stubAudit{}, nil, provider)
		s.extractor = extractor

		if _, _, _, err := s.classify(context.Background(), uuid.New(), svc); err != nil {
			t.Fatalf("classify() err = %v", err)
		}
	})
}

func TestProviderCache(t *testing.T) {
	db, _ := newMockDB(t)

	svc := testService()

	var builds int
	s := newTestScheduler(db, &stubDocuments{}, &stubServices{}, &stubAudit{}, nil, nil)
	s.providerFor = func(*services.Service) (classifier.Provider, error) {
		builds++
		return providerFunc(func(context.Context, []byte, classifier.ContentKind) (*classifier.Result, error) {
			return &classifier.Result{}, nil
		}), nil
	}

	if _, err := s.provider(svc); err != nil {
		t.Fatal(err)
	}
	if _, err := s.provider(svc); err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Errorf("provider built %d times for an unchanged service, want 1", builds)
	}

	updated := *svc
	updated.UpdatedAt = fixedNow.Add(time.Hour)
	if _, err := s.provider(&updated); err != nil {
		t.Fatal(err)
	}
	if builds != 2 {
		t.Errorf("provider built %d times after a service update, want 2", builds)
	}
}
