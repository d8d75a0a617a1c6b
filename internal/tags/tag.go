// Package tags implements the document tag taxonomy for Custodian.
// Tags form a fixed vocabulary: classification may only attach tags
// that already exist, never invent new ones.
package tags

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a label in the document taxonomy.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to define a new tag.
type CreateCommand struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}
