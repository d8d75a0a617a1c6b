// Package classifier provides AI document classification providers and
// the logic that maps their results onto document field updates. The
// core depends only on the normalized Result shape; provider protocols
// (OpenAI, Claude, Ollama, Azure) stay behind the Provider interface.
package classifier

import (
	"context"
	"strings"

	"github.com/JaimeStill/custodian/internal/services"
)

// ContentKind tells a provider how to present document bytes.
type ContentKind string

const (
	ContentImage ContentKind = "image"
	ContentPDF   ContentKind = "pdf"
	ContentText  ContentKind = "text"
)

// KindForContentType maps a MIME content type to a ContentKind.
func KindForContentType(contentType string) ContentKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return ContentImage
	case contentType == "application/pdf":
		return ContentPDF
	default:
		return ContentText
	}
}

// Provider classifies raw document content into a normalized Result.
type Provider interface {
	Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error)
}

// ForService builds a Provider for a registered classification
// service, wrapped in a circuit breaker keyed by the service name.
func ForService(svc *services.Service) (Provider, error) {
	var p Provider

	switch svc.Provider {
	case services.ProviderOpenAI:
		p = NewOpenAI(svc.Endpoint, svc.APIKey, svc.Model)
	case services.ProviderClaude:
		p = NewClaude(svc.Endpoint, svc.APIKey, svc.Model)
	case services.ProviderOllama:
		p = NewOllama(svc.Endpoint, svc.Model)
	case services.ProviderAzure:
		p = NewAzure(svc.Endpoint, svc.APIKey)
	default:
		return nil, ErrUnsupportedProvider
	}

	return Resilient(svc.Name, p), nil
}
