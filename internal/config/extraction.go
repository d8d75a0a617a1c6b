package config

const (
	EnvExtractionEndpoint = "CUSTODIAN_EXTRACTION_ENDPOINT"
	EnvExtractionAPIKey   = "CUSTODIAN_EXTRACTION_API_KEY"
)

// ExtractionConfig holds the hosted OCR provider settings. An empty
// endpoint disables pre-classification text extraction.
type ExtractionConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// Enabled reports whether an OCR endpoint is configured.
func (c *ExtractionConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Finalize applies environment variable overrides. Extraction is
// optional, so there are no defaults and nothing to validate.
func (c *ExtractionConfig) Finalize() error {
	c.loadEnv()
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ExtractionConfig) Merge(overlay *ExtractionConfig) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
}

func (c *ExtractionConfig) loadEnv() {
	envString(EnvExtractionEndpoint, &c.Endpoint)
	envString(EnvExtractionAPIKey, &c.APIKey)
}
