package routes

import "net/http"

// Route pairs an HTTP method and path pattern with its handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
