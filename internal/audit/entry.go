// Package audit implements the append-only classification log. Every
// dispatch outcome is recorded here, success or failure, so operators
// can reconstruct what a provider returned and what was applied.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// LogEntry records one classification attempt against a document.
type LogEntry struct {
	ID           uuid.UUID `json:"id"`
	DocumentID   uuid.UUID `json:"document_id"`
	ServiceID    uuid.UUID `json:"service_id"`
	RawResult    *string   `json:"raw_result"`
	Confidence   *float64  `json:"confidence"`
	DetectedType *string   `json:"detected_type"`
	Applied      bool      `json:"applied"`
	ErrorMessage *string   `json:"error_message"`
	Duration     *float64  `json:"duration_seconds"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordCommand carries the data for one log entry.
type RecordCommand struct {
	DocumentID   uuid.UUID
	ServiceID    uuid.UUID
	RawResult    *string
	Confidence   *float64
	DetectedType *string
	Applied      bool
	ErrorMessage *string
	Duration     *float64
}
