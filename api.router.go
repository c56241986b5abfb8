package main

import (
	"net/http"

	_ "github.com/jeamon/demo-books/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// MiddlewareMap contains middlewares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes injects the public endpoint (GET and HEAD) and the ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleMethodNotAllowed = false
	notFound := m.public(api.NotFound)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notFound(w, r, nil)
	})
	if api.config.Server.CORSEnable {
		router.GlobalOPTIONS = CORSPreflightHandler()
	}

	router.GET("/", m.public(api.Index))
	router.HEAD("/", m.public(api.Index))
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	return router
}

// SetupOpsRoutes injects internal operations related endpoints.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/health", m.ops(api.Health))
	router.GET("/ops/swagger/*any", m.ops(OpsHandlerWrapper(
		httpswagger.Handler(httpswagger.URL("/ops/swagger/doc.json")),
	)))
	return router
}

// OpsHandlerWrapper adapts a standard handler to the router.
func OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
