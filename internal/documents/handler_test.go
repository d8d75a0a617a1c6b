package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/documents"
	"github.com/JaimeStill/custodian/pkg/pagination"
)

func ptr[T any](v T) *T { return &v }

type mockSystem struct {
	documents.System
	listFn      func(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error)
	findFn      func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	createFn    func(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	updateFn    func(ctx context.Context, id uuid.UUID, cmd documents.UpdateCommand) (*documents.Document, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
	duplicateFn func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	recomputeFn func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(ctx context.Context, id uuid.UUID, cmd documents.UpdateCommand) (*documents.Document, error) {
	return m.updateFn(ctx, id, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) CheckDuplicate(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.duplicateFn(ctx, id)
}

func (m *mockSystem) Recompute(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.recomputeFn(ctx, id)
}

func newTestHandler(sys documents.System) *documents.Handler {
	return documents.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		50*1024*1024,
	)
}

func setupMux(h *documents.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleDoc() documents.Document {
	return documents.Document{
		ID:           uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Name:         "Stadtwerke Rechnung",
		Filename:     "rechnung.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    1024,
		StorageKey:   "documents/550e8400-e29b-41d4-a716-446655440000",
		Source:       "upload",
		Sensitivity:  documents.SensitivityInternal,
		InvoiceState: "none",
		CreatedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandlerList(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ documents.Filters) (*pagination.PageResult[documents.Document], error) {
			result := pagination.NewPageResult([]documents.Document{doc}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest("GET", "/documents", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[documents.Document]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != doc.ID {
		t.Errorf("items = %+v, want one document %s", result.Data, doc.ID)
	}
}

func TestHandlerFind(t *testing.T) {
	doc := sampleDoc()

	t.Run("found", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, id uuid.UUID) (*documents.Document, error) {
				if id != doc.ID {
					t.Errorf("Find(%s), want %s", id, doc.ID)
				}
				return &doc, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest("GET", "/documents/"+doc.ID.String(), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(context.Context, uuid.UUID) (*documents.Document, error) {
				return nil, documents.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest("GET", "/documents/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid uuid", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		req := httptest.NewRequest("GET", "/documents/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerUpload(t *testing.T) {
	t.Run("full form", func(t *testing.T) {
		doc := sampleDoc()
		policyID := uuid.New()
		var got documents.CreateCommand

		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				got = cmd
				return &doc, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, contentType := multipartBody(t, map[string]string{
			"name":                "Stadtwerke Rechnung",
			"source":              "scanner",
			"document_date":       "2026-01-10",
			"retention_policy_id": policyID.String(),
		}, "rechnung.pdf", []byte("%PDF-1.7 content"))

		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		if got.Name != "Stadtwerke Rechnung" {
			t.Errorf("Name = %q", got.Name)
		}
		if got.Filename != "rechnung.pdf" {
			t.Errorf("Filename = %q", got.Filename)
		}
		if got.Source != "scanner" {
			t.Errorf("Source = %q", got.Source)
		}
		if got.DocumentDate == nil || !got.DocumentDate.Equal(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("DocumentDate = %v, want 2026-01-10", got.DocumentDate)
		}
		if got.PolicyID == nil || *got.PolicyID != policyID {
			t.Errorf("PolicyID = %v, want %s", got.PolicyID, policyID)
		}
		if len(got.Data) == 0 {
			t.Error("Data is empty")
		}
	})

	t.Run("missing file part", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		body, contentType := multipartBody(t, map[string]string{"name": "x"}, "", nil)

		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed document date", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		body, contentType := multipartBody(t, map[string]string{
			"document_date": "10.01.2026",
		}, "a.txt", []byte("hello"))

		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerUpdate(t *testing.T) {
	doc := sampleDoc()
	var got documents.UpdateCommand

	sys := &mockSystem{
		updateFn: func(_ context.Context, _ uuid.UUID, cmd documents.UpdateCommand) (*documents.Document, error) {
			got = cmd
			return &doc, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	payload := `{"name": "renamed", "clear_policy": true}`
	req := httptest.NewRequest("PATCH", "/documents/"+doc.ID.String(), bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Name == nil || *got.Name != "renamed" {
		t.Errorf("Name = %v, want renamed", got.Name)
	}
	if !got.ClearPolicy {
		t.Error("ClearPolicy = false, want true")
	}
}

func TestHandlerDelete(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != doc.ID {
				t.Errorf("Delete(%s), want %s", id, doc.ID)
			}
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest("DELETE", "/documents/"+doc.ID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandlerCheckDuplicate(t *testing.T) {
	doc := sampleDoc()
	doc.DuplicateOfID = ptr(uuid.New())

	sys := &mockSystem{
		duplicateFn: func(context.Context, uuid.UUID) (*documents.Document, error) {
			return &doc, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest("POST", "/documents/"+doc.ID.String()+"/check-duplicate", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got documents.Document
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.DuplicateOfID == nil {
		t.Error("DuplicateOfID = nil, want set")
	}
}

func TestHandlerCheckDuplicateNoExtraction(t *testing.T) {
	sys := &mockSystem{
		duplicateFn: func(context.Context, uuid.UUID) (*documents.Document, error) {
			return nil, documents.ErrNoExtractionData
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest("POST", "/documents/"+uuid.NewString()+"/check-duplicate", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerRecompute(t *testing.T) {
	doc := sampleDoc()
	doc.RetentionDate = ptr(time.Date(2036, 1, 10, 0, 0, 0, 0, time.UTC))

	sys := &mockSystem{
		recomputeFn: func(context.Context, uuid.UUID) (*documents.Document, error) {
			return &doc, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	req := httptest.NewRequest("POST", "/documents/"+doc.ID.String()+"/recompute-retention", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestDocumentsMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"invalid file", documents.ErrInvalidFile, http.StatusBadRequest},
		{"no extraction data", documents.ErrNoExtractionData, http.StatusBadRequest},
		{"invalid sensitivity", documents.ErrInvalidSensitivity, http.StatusUnprocessableEntity},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", documents.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documents.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		policyID := uuid.New()
		values := url.Values{
			"name":                {"rechnung"},
			"source":              {"scanner"},
			"sensitivity":         {"internal"},
			"content_type":        {"application/pdf"},
			"retention_policy_id": {policyID.String()},
			"retention_due":       {"true"},
			"is_invoice":          {"true"},
			"invoice_state":       {"pending"},
		}

		f := documents.FiltersFromQuery(values)

		if f.Name == nil || *f.Name != "rechnung" {
			t.Errorf("Name = %v, want rechnung", f.Name)
		}
		if f.Source == nil || *f.Source != "scanner" {
			t.Errorf("Source = %v, want scanner", f.Source)
		}
		if f.Sensitivity == nil || *f.Sensitivity != "internal" {
			t.Errorf("Sensitivity = %v, want internal", f.Sensitivity)
		}
		if f.ContentType == nil || *f.ContentType != "application/pdf" {
			t.Errorf("ContentType = %v, want application/pdf", f.ContentType)
		}
		if f.PolicyID == nil || *f.PolicyID != policyID {
			t.Errorf("PolicyID = %v, want %s", f.PolicyID, policyID)
		}
		if f.RetentionDue == nil || !*f.RetentionDue {
			t.Errorf("RetentionDue = %v, want true", f.RetentionDue)
		}
		if f.IsInvoice == nil || !*f.IsInvoice {
			t.Errorf("IsInvoice = %v, want true", f.IsInvoice)
		}
		if f.InvoiceState == nil || *f.InvoiceState != "pending" {
			t.Errorf("InvoiceState = %v, want pending", f.InvoiceState)
		}
	})

	t.Run("empty params yield nil fields", func(t *testing.T) {
		f := documents.FiltersFromQuery(url.Values{})
		if f != (documents.Filters{}) {
			t.Errorf("Filters = %+v, want zero", f)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		values := url.Values{
			"retention_policy_id": {"not-a-uuid"},
			"retention_due":       {"maybe"},
			"is_invoice":          {"kinda"},
		}
		f := documents.FiltersFromQuery(values)
		if f != (documents.Filters{}) {
			t.Errorf("Filters = %+v, want zero for invalid values", f)
		}
	})
}
