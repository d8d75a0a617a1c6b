package queue

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "queue_entries", "q").
	Project("id", "ID").
	Project("name", "Name").
	Project("document_id", "DocumentID").
	Project("service_id", "ServiceID").
	Project("state", "State").
	Project("priority", "Priority").
	Project("attempts", "Attempts").
	Project("max_attempts", "MaxAttempts").
	Project("scheduled_for", "ScheduledFor").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt").
	Project("result_message", "ResultMessage").
	Project("error_message", "ErrorMessage").
	Project("log_id", "LogID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "documents", "d", "LEFT JOIN", "q.document_id = d.id").
	Project("name", "DocumentName")

var defaultSort = []query.SortField{
	{Field: "Priority", Descending: true},
	{Field: "ScheduledFor"},
}

// Filters contains optional filtering criteria for queue queries.
type Filters struct {
	State      *string    `json:"state,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	ServiceID  *uuid.UUID `json:"service_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("State", f.State).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("ServiceID", f.ServiceID)

	if f.Priority != nil {
		if p, err := ParsePriority(*f.Priority); err == nil {
			b.WhereEquals("Priority", int16(p))
		}
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("state"); s != "" {
		f.State = &s
	}
	if p := values.Get("priority"); p != "" {
		f.Priority = &p
	}
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

	return f
}

// scanEntry reads the bare queue_entries columns, as returned by
// INSERT/UPDATE ... RETURNING and the dispatch selection.
func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.Name,
		&e.DocumentID,
		&e.ServiceID,
		&e.State,
		&e.Priority,
		&e.Attempts,
		&e.MaxAttempts,
		&e.ScheduledFor,
		&e.StartedAt,
		&e.CompletedAt,
		&e.ResultMessage,
		&e.ErrorMessage,
		&e.LogID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// scanEntryView additionally reads the joined document name from
// projection-built queries.
func scanEntryView(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.Name,
		&e.DocumentID,
		&e.ServiceID,
		&e.State,
		&e.Priority,
		&e.Attempts,
		&e.MaxAttempts,
		&e.ScheduledFor,
		&e.StartedAt,
		&e.CompletedAt,
		&e.ResultMessage,
		&e.ErrorMessage,
		&e.LogID,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DocumentName,
	)
	return e, err
}
