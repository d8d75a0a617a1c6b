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

	"github.com/JaimeStill/custodian/pkg/formatting"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com"
	defaultOpenAIModel    = "gpt-4o"
)

// OpenAI classifies documents through the chat completions API with
// vision input for image content.
type OpenAI struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewOpenAI creates an OpenAI provider. Empty endpoint and model fall
// back to the hosted API and a vision-capable default.
func NewOpenAI(endpoint, apiKey, model string) *OpenAI {
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type openAIContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type openAIRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string          `json:"role"`
		Content []openAIContent `json:"content"`
	} `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAI) Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error) {
	parts := []openAIContent{{Type: "text", Text: classificationPrompt}}

	switch kind {
	case ContentImage:
		image := &struct {
			URL string `json:"url"`
		}{
			URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(content),
		}
		parts = append(parts, openAIContent{Type: "image_url", ImageURL: image})
	default:
		parts = append(parts, openAIContent{Type: "text", Text: string(content)})
	}

	req := openAIRequest{Model: p.model, MaxTokens: 1000}
	req.Messages = append(req.Messages, struct {
		Role    string          `json:"role"`
		Content []openAIContent `json:"content"`
	}{Role: "user", Content: parts})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		p.endpoint+"/v1/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, raw)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return parseResult(parsed.Choices[0].Message.Content)
}

// parseResult interprets model output as a Result, accepting fenced
// JSON. Unparsable output is preserved on the result rather than
// treated as a transport failure.
func parseResult(content string) (*Result, error) {
	result, err := formatting.Parse[Result](content)
	if err != nil {
		return &Result{RawResponse: content, Error: "unparsable model response"}, nil
	}
	return &result, nil
}
