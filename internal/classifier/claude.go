package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultClaudeEndpoint = "https://api.anthropic.com"
	defaultClaudeModel    = "claude-3-5-sonnet-latest"
	claudeAPIVersion      = "2023-06-01"
)

// Claude classifies documents through the Anthropic messages API.
type Claude struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewClaude creates a Claude provider. Empty endpoint and model fall
// back to the hosted API and a vision-capable default.
func NewClaude(endpoint, apiKey, model string) *Claude {
	if endpoint == "" {
		endpoint = defaultClaudeEndpoint
	}
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type claudeContent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Source *struct {
		Type      string `json:"type"`
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	} `json:"source,omitempty"`
}

type claudeRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string          `json:"role"`
		Content []claudeContent `json:"content"`
	} `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Claude) Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error) {
	parts := []claudeContent{{Type: "text", Text: classificationPrompt}}

	switch kind {
	case ContentImage:
		source := &struct {
			Type      string `json:"type"`
			MediaType string `json:"media_type"`
			Data      string `json:"data"`
		}{
			Type:      "base64",
			MediaType: "image/jpeg",
			Data:      base64.StdEncoding.EncodeToString(content),
		}
		parts = append(parts, claudeContent{Type: "image", Source: source})
	default:
		parts = append(parts, claudeContent{Type: "text", Text: string(content)})
	}

	req := claudeRequest{Model: p.model, MaxTokens: 1000}
	req.Messages = append(req.Messages, struct {
		Role    string          `json:"role"`
		Content []claudeContent `json:"content"`
	}{Role: "user", Content: parts})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal claude request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		p.endpoint+"/v1/messages",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read claude response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude status %d: %s", resp.StatusCode, raw)
	}

	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode claude response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, ErrEmptyResponse
	}

	return parseResult(parsed.Content[0].Text)
}
