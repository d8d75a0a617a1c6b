package services

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classification_services", "s").
	Project("id", "ID").
	Project("name", "Name").
	Project("provider", "Provider").
	Project("endpoint", "Endpoint").
	Project("api_key", "APIKey").
	Project("model", "Model").
	Project("active", "Active").
	Project("confidence_threshold", "ConfidenceThreshold").
	Project("auto_tag", "AutoTag").
	Project("auto_extract", "AutoExtract").
	Project("documents_processed", "DocumentsProcessed").
	Project("avg_confidence", "AvgConfidence").
	Project("last_run", "LastRun").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "CreatedAt"},
}

// Filters contains optional filtering criteria for service queries.
type Filters struct {
	Active   *bool   `json:"active,omitempty"`
	Provider *string `json:"provider,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Active", f.Active).
		WhereEquals("Provider", f.Provider)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}
	if p := values.Get("provider"); p != "" {
		f.Provider = &p
	}

	return f
}

func scanService(s repository.Scanner) (Service, error) {
	var svc Service
	err := s.Scan(
		&svc.ID,
		&svc.Name,
		&svc.Provider,
		&svc.Endpoint,
		&svc.APIKey,
		&svc.Model,
		&svc.Active,
		&svc.ConfidenceThreshold,
		&svc.AutoTag,
		&svc.AutoExtract,
		&svc.DocumentsProcessed,
		&svc.AvgConfidence,
		&svc.LastRun,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	return svc, err
}
