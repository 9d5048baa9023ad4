package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
)

// routePath prefers the matched mux route template over the raw path.
func routePath(r *http.Request, fallback string) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return fallback
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	return fallback
}
