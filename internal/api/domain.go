package api

import (
	"github.com/JaimeStill/custodian/internal/audit"
	"github.com/JaimeStill/custodian/internal/documents"
	"github.com/JaimeStill/custodian/internal/extraction"
	"github.com/JaimeStill/custodian/internal/policies"
	"github.com/JaimeStill/custodian/internal/queue"
	"github.com/JaimeStill/custodian/internal/services"
	"github.com/JaimeStill/custodian/internal/tags"
)

// Domain holds all domain systems that comprise the API. Documents are
// constructed first; policies receive them as the retention recomputer,
// and the queue scheduler receives them as the extraction target.
type Domain struct {
	Documents documents.System
	Policies  policies.System
	Tags      tags.System
	Services  services.System
	Audit     audit.System
	Queue     queue.System
	Scheduler *queue.Scheduler
	Driver    *queue.Driver
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	policiesSystem := policies.New(
		db,
		docsSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	tagsSystem := tags.New(db, runtime.Logger, runtime.Pagination)

	servicesSystem := services.New(db, runtime.Logger, runtime.Pagination)

	auditSystem := audit.New(db, runtime.Logger, runtime.Pagination)

	var extractor extraction.Provider
	if runtime.Extraction.Enabled() {
		extractor = extraction.NewHosted(
			runtime.Extraction.Endpoint,
			runtime.Extraction.APIKey,
		)
	}

	scheduler := queue.NewScheduler(
		db,
		docsSystem,
		servicesSystem,
		auditSystem,
		tagsSystem,
		extractor,
		runtime.Metrics,
		runtime.Logger,
		runtime.Queue.BatchLimit,
		runtime.Queue.Concurrency,
	)

	queueSystem := queue.New(
		db,
		servicesSystem,
		runtime.Logger,
		runtime.Pagination,
		runtime.Queue.MaxAttempts,
	)

	driver := queue.NewDriver(
		scheduler,
		runtime.Queue.IntervalDuration(),
		runtime.Logger,
	)

	return &Domain{
		Documents: docsSystem,
		Policies:  policiesSystem,
		Tags:      tagsSystem,
		Services:  servicesSystem,
		Audit:     auditSystem,
		Queue:     queueSystem,
		Scheduler: scheduler,
		Driver:    driver,
	}
}
