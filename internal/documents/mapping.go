package documents

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("name", "Name").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("storage_key", "StorageKey").
	Project("source", "Source").
	Project("sensitivity", "Sensitivity").
	Project("document_date", "DocumentDate").
	Project("fiscal_year", "FiscalYear").
	Project("retention_policy_id", "RetentionPolicyID").
	Project("retention_date", "RetentionDate").
	Project("retention_due", "RetentionDue").
	Project("extracted_vendor", "ExtractedVendor").
	Project("extracted_amount", "ExtractedAmount").
	Project("extracted_currency", "ExtractedCurrency").
	Project("extracted_date", "ExtractedDate").
	Project("extracted_reference", "ExtractedReference").
	Project("extraction_confidence", "ExtractionConfidence").
	Project("is_invoice", "IsInvoice").
	Project("invoice_state", "InvoiceState").
	Project("duplicate_of_id", "DuplicateOfID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored.
type Filters struct {
	Name         *string    `json:"name,omitempty"`
	Source       *string    `json:"source,omitempty"`
	Sensitivity  *string    `json:"sensitivity,omitempty"`
	ContentType  *string    `json:"content_type,omitempty"`
	PolicyID     *uuid.UUID `json:"retention_policy_id,omitempty"`
	RetentionDue *bool      `json:"retention_due,omitempty"`
	IsInvoice    *bool      `json:"is_invoice,omitempty"`
	InvoiceState *string    `json:"invoice_state,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("Source", f.Source).
		WhereEquals("Sensitivity", f.Sensitivity).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("RetentionPolicyID", f.PolicyID).
		WhereEquals("RetentionDue", f.RetentionDue).
		WhereEquals("IsInvoice", f.IsInvoice).
		WhereEquals("InvoiceState", f.InvoiceState)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	if s := values.Get("source"); s != "" {
		f.Source = &s
	}
	if s := values.Get("sensitivity"); s != "" {
		f.Sensitivity = &s
	}
	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}
	if p := values.Get("retention_policy_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.PolicyID = &id
		}
	}
	if d := values.Get("retention_due"); d != "" {
		if v, err := strconv.ParseBool(d); err == nil {
			f.RetentionDue = &v
		}
	}
	if inv := values.Get("is_invoice"); inv != "" {
		if v, err := strconv.ParseBool(inv); err == nil {
			f.IsInvoice = &v
		}
	}
	if is := values.Get("invoice_state"); is != "" {
		f.InvoiceState = &is
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Name,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.StorageKey,
		&d.Source,
		&d.Sensitivity,
		&d.DocumentDate,
		&d.FiscalYear,
		&d.RetentionPolicyID,
		&d.RetentionDate,
		&d.RetentionDue,
		&d.ExtractedVendor,
		&d.ExtractedAmount,
		&d.ExtractedCurrency,
		&d.ExtractedDate,
		&d.ExtractedReference,
		&d.ExtractionConfidence,
		&d.IsInvoice,
		&d.InvoiceState,
		&d.DuplicateOfID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// ruleRow carries the temporal attributes and policy rule needed to
// re-resolve a document's retention fields.
type ruleRow struct {
	id           uuid.UUID
	createdAt    time.Time
	documentDate *time.Time
	trigger      *string
	years        *int
	months       *int
}

func scanRuleRow(s repository.Scanner) (ruleRow, error) {
	var row ruleRow
	err := s.Scan(
		&row.id,
		&row.createdAt,
		&row.documentDate,
		&row.trigger,
		&row.years,
		&row.months,
	)
	return row, err
}
