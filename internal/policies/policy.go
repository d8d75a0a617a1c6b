// Package policies implements the retention policy domain for Custodian.
// Policies carry the temporal rule documents are retained under, the scope
// they apply to, and the action taken once retention expires. Documents
// reference policies weakly: deleting a policy detaches documents, never
// deletes them.
package policies

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/retention"
)

// Post-retention actions.
const (
	ActionArchive      = "archive"
	ActionDelete       = "delete"
	ActionReview       = "review"
	ActionExportDelete = "export_delete"
)

// Document-type scope filters.
const (
	ScopeAll            = "all"
	ScopeInvoice        = "invoice"
	ScopeContract       = "contract"
	ScopeCertificate    = "certificate"
	ScopeCorrespondence = "correspondence"
)

// RetentionPolicy defines how long matching documents are retained and what
// happens afterwards. Sequence orders evaluation precedence when multiple
// policies could match.
type RetentionPolicy struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	Sequence         int               `json:"sequence"`
	Active           bool              `json:"active"`
	TagIDs           []uuid.UUID       `json:"tag_ids"`
	FolderIDs        []uuid.UUID       `json:"folder_ids"`
	DocumentType     string            `json:"document_type"`
	RetentionYears   int               `json:"retention_years"`
	RetentionMonths  int               `json:"retention_months"`
	Trigger          retention.Trigger `json:"trigger"`
	Action           string            `json:"action"`
	NotifyBeforeDays int               `json:"notify_before_days"`
	LegalReference   *string           `json:"legal_reference"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Rule returns the temporal portion of the policy for the retention resolver.
func (p *RetentionPolicy) Rule() *retention.Rule {
	return &retention.Rule{
		Trigger: p.Trigger,
		Years:   p.RetentionYears,
		Months:  p.RetentionMonths,
	}
}

// Validate checks invariants enforced at save time. A non-positive total
// duration is rejected outright rather than clamped.
func (p *RetentionPolicy) Validate() error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.RetentionYears*12+p.RetentionMonths <= 0 {
		return ErrInvalidDuration
	}
	if !p.Trigger.Valid() {
		return ErrInvalidTrigger
	}
	switch p.Action {
	case ActionArchive, ActionDelete, ActionReview, ActionExportDelete:
	default:
		return ErrInvalidAction
	}
	switch p.DocumentType {
	case ScopeAll, ScopeInvoice, ScopeContract, ScopeCertificate, ScopeCorrespondence:
	default:
		return ErrInvalidScope
	}
	return nil
}

// CreateCommand carries the data needed to create a retention policy.
type CreateCommand struct {
	Name             string            `json:"name"`
	Sequence         int               `json:"sequence"`
	Active           *bool             `json:"active"`
	TagIDs           []uuid.UUID       `json:"tag_ids"`
	FolderIDs        []uuid.UUID       `json:"folder_ids"`
	DocumentType     string            `json:"document_type"`
	RetentionYears   int               `json:"retention_years"`
	RetentionMonths  int               `json:"retention_months"`
	Trigger          retention.Trigger `json:"trigger"`
	Action           string            `json:"action"`
	NotifyBeforeDays int               `json:"notify_before_days"`
	LegalReference   *string           `json:"legal_reference"`
}

func (c CreateCommand) policy() RetentionPolicy {
	p := RetentionPolicy{
		Name:             c.Name,
		Sequence:         c.Sequence,
		Active:           true,
		TagIDs:           c.TagIDs,
		FolderIDs:        c.FolderIDs,
		DocumentType:     c.DocumentType,
		RetentionYears:   c.RetentionYears,
		RetentionMonths:  c.RetentionMonths,
		Trigger:          c.Trigger,
		Action:           c.Action,
		NotifyBeforeDays: c.NotifyBeforeDays,
		LegalReference:   c.LegalReference,
	}
	if c.Active != nil {
		p.Active = *c.Active
	}
	if p.Sequence == 0 {
		p.Sequence = 10
	}
	if p.DocumentType == "" {
		p.DocumentType = ScopeAll
	}
	if p.Trigger == "" {
		p.Trigger = retention.TriggerDocumentDate
	}
	if p.Action == "" {
		p.Action = ActionArchive
	}
	return p
}

// UpdateCommand carries the data for a full policy update.
type UpdateCommand = CreateCommand
