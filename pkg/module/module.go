// Package module mounts self-contained HTTP surfaces under single-level
// path prefixes, each with its own middleware stack, alongside a native
// mux for infrastructure endpoints.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/custodian/pkg/middleware"
)

// Module is an HTTP handler that strips its prefix and delegates to an
// inner router with its own middleware stack.
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System
}

// New creates a Module with the given single-level prefix (e.g. "/api").
// Panics if the prefix is empty, missing a leading slash, or multi-level.
func New(prefix string, router http.Handler) *Module {
	if err := checkPrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
}

// Handler returns the inner router wrapped with the module's middleware stack.
func (m *Module) Handler() http.Handler {
	return m.middleware.Apply(m.router)
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve strips the module prefix from the request path and dispatches
// to the inner router.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	inner := req.Clone(req.Context())
	inner.URL.Path = trimPrefix(req.URL.Path, m.prefix)
	inner.URL.RawPath = ""
	m.Handler().ServeHTTP(w, inner)
}

// Use adds middleware to the module's stack.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.middleware.Use(mw)
}

func trimPrefix(fullPath, prefix string) string {
	if path := fullPath[len(prefix):]; path != "" {
		return path
	}
	return "/"
}

func checkPrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}
