package classifier

import "errors"

var (
	ErrUnsupportedProvider = errors.New("unsupported classification provider")
	ErrProviderPending     = errors.New("azure document intelligence integration pending")
	ErrEmptyResponse       = errors.New("provider returned an empty response")
)
