package http

import "net/http"

// Handler is the platform handler type used everywhere
type Handler = func(http.ResponseWriter, *http.Request)

// Router is the mounting surface modules register routes against. It is a
// deliberate subset of chi so services never depend on the mux directly;
// grow it only when a route actually needs another verb
type Router interface {
	Get(path string, h Handler)
	Post(path string, h Handler)

	Use(mw ...func(http.Handler) http.Handler)
	Route(pattern string, fn func(Router))

	Mux() http.Handler
}
