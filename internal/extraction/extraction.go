// Package extraction provides the OCR text extraction step that feeds
// classification for scanned documents. It is an independent failure
// domain: extraction errors never fail the owning document.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrUnsupportedContent is returned when a provider cannot process the
// supplied document bytes.
var ErrUnsupportedContent = errors.New("unsupported content for text extraction")

// Extraction is the normalized OCR output.
type Extraction struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
}

// Provider extracts text from raw document bytes.
type Provider interface {
	ExtractText(ctx context.Context, content []byte, contentType string) (*Extraction, error)
}

// PageCount reads the page count from PDF bytes.
func PageCount(content []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return count, nil
}
