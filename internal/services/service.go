// Package services implements the classification service registry.
// A classification service binds an AI provider (endpoint, model,
// credentials) to processing settings such as the confidence threshold
// and auto-tagging, and accumulates per-service usage statistics.
package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Supported provider kinds.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// RecognizedProvider reports whether kind names a supported provider.
func RecognizedProvider(kind string) bool {
	switch kind {
	case ProviderOpenAI, ProviderClaude, ProviderAzure, ProviderOllama:
		return true
	}
	return false
}

// Service is a configured classification backend. Stats fields are
// updated after every successful dispatch and never set directly.
type Service struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Provider            string     `json:"provider"`
	Endpoint            string     `json:"endpoint"`
	APIKey              string     `json:"-"`
	Model               string     `json:"model"`
	Active              bool       `json:"active"`
	ConfidenceThreshold float64    `json:"confidence_threshold"`
	AutoTag             bool       `json:"auto_tag"`
	AutoExtract         bool       `json:"auto_extract"`
	DocumentsProcessed  int64      `json:"documents_processed"`
	AvgConfidence       *float64   `json:"avg_confidence"`
	LastRun             *time.Time `json:"last_run"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Validate checks service invariants.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrNameRequired
	}
	if !RecognizedProvider(s.Provider) {
		return ErrInvalidProvider
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}

// CreateCommand carries the data needed to register a classification service.
type CreateCommand struct {
	Name                string   `json:"name"`
	Provider            string   `json:"provider"`
	Endpoint            string   `json:"endpoint"`
	APIKey              string   `json:"api_key"`
	Model               string   `json:"model"`
	Active              *bool    `json:"active"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	AutoTag             *bool    `json:"auto_tag"`
	AutoExtract         *bool    `json:"auto_extract"`
}

// UpdateCommand mirrors CreateCommand for full-record updates.
type UpdateCommand = CreateCommand

func (cmd CreateCommand) service() Service {
	svc := Service{
		Name:                strings.TrimSpace(cmd.Name),
		Provider:            cmd.Provider,
		Endpoint:            cmd.Endpoint,
		APIKey:              cmd.APIKey,
		Model:               cmd.Model,
		Active:              true,
		ConfidenceThreshold: 0.7,
		AutoTag:             true,
		AutoExtract:         true,
	}

	if cmd.Active != nil {
		svc.Active = *cmd.Active
	}
	if cmd.ConfidenceThreshold != nil {
		svc.ConfidenceThreshold = *cmd.ConfidenceThreshold
	}
	if cmd.AutoTag != nil {
		svc.AutoTag = *cmd.AutoTag
	}
	if cmd.AutoExtract != nil {
		svc.AutoExtract = *cmd.AutoExtract
	}

	return svc
}

// RunStats captures the outcome of a completed dispatch for statistics
// accumulation.
type RunStats struct {
	Confidence *float64
	RanAt      time.Time
}
