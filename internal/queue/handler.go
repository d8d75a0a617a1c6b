package queue

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/handlers"
	"github.com/JaimeStill/custodian/pkg/pagination"
	"github.com/JaimeStill/custodian/pkg/routes"
)

// Handler provides HTTP endpoints for queue admission, inspection,
// operator actions, and on-demand classification.
type Handler struct {
	sys        System
	scheduler  *Scheduler
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// ClassifyResponse reports an on-demand classification outcome.
type ClassifyResponse struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Applied      bool    `json:"applied"`
}

// NewHandler creates a Handler with the given system, scheduler,
// logger, and pagination config.
func NewHandler(
	sys System,
	scheduler *Scheduler,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		scheduler:  scheduler,
		logger:     logger.With("handler", "queue"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for queue endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/queue",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Enqueue},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/run", Handler: h.Run},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
			{Method: "POST", Pattern: "/{id}/retry", Handler: h.Retry},
			{Method: "POST", Pattern: "/classify/{documentId}", Handler: h.Classify},
		},
	}
}

// List returns a paginated list of queue entries with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single queue entry by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	entry, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Enqueue admits documents for classification from a JSON body.
// Documents with an active entry are skipped, not errors; the response
// carries only newly created entries.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var cmd EnqueueCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	created, err := h.sys.Enqueue(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, created)
}

// Run triggers one dispatch cycle immediately and returns its stats.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scheduler.RunCycle(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Cancel moves a pending or failed entry to cancelled.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	entry, err := h.sys.Cancel(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Retry resets a failed entry to pending with a zeroed attempt counter.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	entry, err := h.sys.Retry(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Classify runs synchronous classification for one document through
// the default active service, bypassing the queue.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	result, applied, err := h.scheduler.ClassifyNow(r.Context(), documentID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ClassifyResponse{
		DocumentType: result.DocumentType,
		Confidence:   result.Confidence,
		Applied:      applied,
	})
}
