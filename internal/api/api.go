// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/custodian/internal/config"
	"github.com/JaimeStill/custodian/internal/infrastructure"
	"github.com/JaimeStill/custodian/pkg/middleware"
	"github.com/JaimeStill/custodian/pkg/module"
)

// NewModule creates the API module with all domain handlers and
// middleware, and starts the queue dispatch driver on the lifecycle
// coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	if err := domain.Driver.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
