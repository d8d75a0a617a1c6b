package classifier

import "context"

// Azure is a placeholder for Azure Document Intelligence. Registration
// is accepted so services can be configured ahead of the integration,
// but dispatch reports the provider as unavailable.
type Azure struct {
	endpoint string
	apiKey   string
}

// NewAzure creates the placeholder Azure provider.
func NewAzure(endpoint, apiKey string) *Azure {
	return &Azure{endpoint: endpoint, apiKey: apiKey}
}

func (p *Azure) Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error) {
	return nil, ErrProviderPending
}
