package api

import (
	"github.com/JaimeStill/custodian/internal/config"
	"github.com/JaimeStill/custodian/internal/infrastructure"
	"github.com/JaimeStill/custodian/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Queue      config.QueueConfig
	Extraction config.ExtractionConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Metrics:   infra.Metrics,
		},
		Pagination: cfg.API.Pagination,
		Queue:      cfg.Queue,
		Extraction: cfg.Extraction,
	}
}
