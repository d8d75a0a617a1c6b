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
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "llava"
)

// Ollama classifies documents through a self-hosted Ollama instance.
// No credentials are involved; the endpoint is assumed reachable on a
// trusted network.
type Ollama struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllama creates an Ollama provider. Empty endpoint and model fall
// back to the local daemon and a vision-capable default.
func NewOllama(endpoint, model string) *Ollama {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (p *Ollama) Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error) {
	req := ollamaRequest{
		Model:  p.model,
		Prompt: classificationPrompt,
	}

	switch kind {
	case ContentImage:
		req.Images = []string{base64.StdEncoding.EncodeToString(content)}
	default:
		req.Prompt = classificationPrompt + "\n\nDocument content:\n" + string(content)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		p.endpoint+"/api/generate",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, raw)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if parsed.Response == "" {
		return nil, ErrEmptyResponse
	}

	return parseResult(parsed.Response)
}
