package audit

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classification_log", "l").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("service_id", "ServiceID").
	Project("raw_result", "RawResult").
	Project("confidence", "Confidence").
	Project("detected_type", "DetectedType").
	Project("applied", "Applied").
	Project("error_message", "ErrorMessage").
	Project("duration_seconds", "Duration").
	Project("created_at", "CreatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt", Descending: true},
}

// Filters contains optional filtering criteria for log queries.
type Filters struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	ServiceID  *uuid.UUID `json:"service_id,omitempty"`
	Applied    *bool      `json:"applied,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("ServiceID", f.ServiceID).
		WhereEquals("Applied", f.Applied)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}
	if s := values.Get("service_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.ServiceID = &id
		}
	}
	if a := values.Get("applied"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Applied = &v
		}
	}

	return f
}

func scanEntry(s repository.Scanner) (LogEntry, error) {
	var e LogEntry
	err := s.Scan(
		&e.ID,
		&e.DocumentID,
		&e.ServiceID,
		&e.RawResult,
		&e.Confidence,
		&e.DetectedType,
		&e.Applied,
		&e.ErrorMessage,
		&e.Duration,
		&e.CreatedAt,
	)
	return e, err
}
