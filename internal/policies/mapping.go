package policies

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "retention_policies", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("sequence", "Sequence").
	Project("active", "Active").
	Project("tag_ids", "TagIDs").
	Project("folder_ids", "FolderIDs").
	Project("document_type", "DocumentType").
	Project("retention_years", "RetentionYears").
	Project("retention_months", "RetentionMonths").
	Project("trigger", "Trigger").
	Project("action", "Action").
	Project("notify_before_days", "NotifyBeforeDays").
	Project("legal_reference", "LegalReference").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "Sequence"},
	{Field: "Name"},
}

// Filters contains optional filtering criteria for policy queries.
type Filters struct {
	Active       *bool   `json:"active,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`
	Trigger      *string `json:"trigger,omitempty"`
	Action       *string `json:"action,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Active", f.Active).
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("Trigger", f.Trigger).
		WhereEquals("Action", f.Action)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}
	if dt := values.Get("document_type"); dt != "" {
		f.DocumentType = &dt
	}
	if tr := values.Get("trigger"); tr != "" {
		f.Trigger = &tr
	}
	if ac := values.Get("action"); ac != "" {
		f.Action = &ac
	}

	return f
}

func scanPolicy(s repository.Scanner) (RetentionPolicy, error) {
	var (
		p       RetentionPolicy
		tags    []byte
		folders []byte
	)

	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Sequence,
		&p.Active,
		&tags,
		&folders,
		&p.DocumentType,
		&p.RetentionYears,
		&p.RetentionMonths,
		&p.Trigger,
		&p.Action,
		&p.NotifyBeforeDays,
		&p.LegalReference,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return RetentionPolicy{}, err
	}

	if err := json.Unmarshal(tags, &p.TagIDs); err != nil {
		return RetentionPolicy{}, err
	}
	if err := json.Unmarshal(folders, &p.FolderIDs); err != nil {
		return RetentionPolicy{}, err
	}

	return p, nil
}
