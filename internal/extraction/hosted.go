package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Hosted extracts text through an external OCR HTTP service that
// accepts base64 document content and returns plain text.
type Hosted struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHosted creates a Hosted provider for the given OCR endpoint.
func NewHosted(endpoint, apiKey string) *Hosted {
	return &Hosted{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 3 * time.Minute},
	}
}

type hostedRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type hostedResponse struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
}

func (p *Hosted) ExtractText(ctx context.Context, content []byte, contentType string) (*Extraction, error) {
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		return nil, ErrUnsupportedContent
	}

	body, err := json.Marshal(hostedRequest{
		Content:     base64.StdEncoding.EncodeToString(content),
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction status %d: %s", resp.StatusCode, raw)
	}

	var parsed hostedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	result := &Extraction{Text: parsed.Text, PageCount: parsed.PageCount}

	// Some OCR backends omit page metadata for PDFs; fill it locally.
	if result.PageCount == 0 && contentType == "application/pdf" {
		if count, err := PageCount(content); err == nil {
			result.PageCount = count
		}
	}

	return result, nil
}
