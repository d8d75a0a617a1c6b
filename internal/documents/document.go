// Package documents implements the document domain for Custodian.
// It provides types, data access, and business logic for document
// registration, metadata management, retention recomputation, and
// AI/OCR extraction results.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Sensitivity levels recognized for documents. Classification results
// carrying any other value are ignored.
const (
	SensitivityPublic       = "public"
	SensitivityInternal     = "internal"
	SensitivityConfidential = "confidential"
	SensitivityRestricted   = "restricted"
)

// Invoice processing states.
const (
	InvoiceNone      = "none"
	InvoicePending   = "pending"
	InvoiceLinked    = "linked"
	InvoiceDuplicate = "duplicate"
)

// RecognizedSensitivity reports whether s is one of the four levels.
func RecognizedSensitivity(s string) bool {
	switch s {
	case SensitivityPublic, SensitivityInternal, SensitivityConfidential, SensitivityRestricted:
		return true
	}
	return false
}

// Document represents a registered document with its metadata, retention
// state, and extraction fields. RetentionDate, RetentionDue, and FiscalYear
// are derived and cached; they are recomputed on every write that touches
// the document date or policy assignment, never hand-edited.
type Document struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	Filename             string     `json:"filename"`
	ContentType          string     `json:"content_type"`
	SizeBytes            int64      `json:"size_bytes"`
	StorageKey           string     `json:"storage_key"`
	Source               string     `json:"source"`
	Sensitivity          string     `json:"sensitivity"`
	DocumentDate         *time.Time `json:"document_date"`
	FiscalYear           *string    `json:"fiscal_year"`
	RetentionPolicyID    *uuid.UUID `json:"retention_policy_id"`
	RetentionDate        *time.Time `json:"retention_date"`
	RetentionDue         bool       `json:"retention_due"`
	ExtractedVendor      *string    `json:"extracted_vendor"`
	ExtractedAmount      *float64   `json:"extracted_amount"`
	ExtractedCurrency    *string    `json:"extracted_currency"`
	ExtractedDate        *time.Time `json:"extracted_date"`
	ExtractedReference   *string    `json:"extracted_reference"`
	ExtractionConfidence *float64   `json:"extraction_confidence"`
	IsInvoice            bool       `json:"is_invoice"`
	InvoiceState         string     `json:"invoice_state"`
	DuplicateOfID        *uuid.UUID `json:"duplicate_of_id"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to register a new document.
// Data holds the raw file bytes, uploaded to blob storage before the
// database record is written.
type CreateCommand struct {
	Data         []byte
	Name         string
	Filename     string
	ContentType  string
	Source       string
	DocumentDate *time.Time
	PolicyID     *uuid.UUID
}

// UpdateCommand carries mutable document metadata. Nil fields are left
// unchanged; ClearDocumentDate and ClearPolicy explicitly null their targets.
type UpdateCommand struct {
	Name              *string    `json:"name"`
	Source            *string    `json:"source"`
	Sensitivity       *string    `json:"sensitivity"`
	DocumentDate      *time.Time `json:"document_date"`
	ClearDocumentDate bool       `json:"clear_document_date"`
	PolicyID          *uuid.UUID `json:"retention_policy_id"`
	ClearPolicy       bool       `json:"clear_policy"`
}

// ExtractionUpdate is the sparse field-update set produced by applying a
// classification result. Zero-value fields are not written. The queue
// dispatcher and on-demand classification both commit it through
// ApplyExtraction.
type ExtractionUpdate struct {
	Confidence  *float64
	Vendor      *string
	Amount      *float64
	Currency    *string
	Date        *time.Time
	Reference   *string
	Invoice     bool
	Sensitivity *string
	TagIDs      []uuid.UUID
}

// Empty reports whether the update would change nothing.
func (u ExtractionUpdate) Empty() bool {
	return u.Confidence == nil &&
		u.Vendor == nil &&
		u.Amount == nil &&
		u.Currency == nil &&
		u.Date == nil &&
		u.Reference == nil &&
		!u.Invoice &&
		u.Sensitivity == nil &&
		len(u.TagIDs) == 0
}
