package api

import (
	"net/http"

	"github.com/JaimeStill/custodian/internal/config"
	"github.com/JaimeStill/custodian/internal/queue"
	"github.com/JaimeStill/custodian/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Policies.Handler().Routes(),
		domain.Tags.Handler().Routes(),
		domain.Services.Handler().Routes(),
		domain.Audit.Handler().Routes(),
		queue.NewHandler(
			domain.Queue,
			domain.Scheduler,
			runtime.Logger,
			runtime.Pagination,
		).Routes(),
	)
}
