// Package routes describes HTTP endpoints as declarative groups that
// domain packages return and the server registers on a mux.
package routes

import "net/http"

// Group collects routes under a shared prefix. Children nest, with
// their prefixes appended to the parent's.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register mounts the given groups onto the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		group.mount(mux, "")
	}
}

func (g Group) mount(mux *http.ServeMux, parent string) {
	prefix := parent + g.Prefix
	for _, route := range g.Routes {
		mux.HandleFunc(route.Method+" "+prefix+route.Pattern, route.Handler)
	}
	for _, child := range g.Children {
		child.mount(mux, prefix)
	}
}
