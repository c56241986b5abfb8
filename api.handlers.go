package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const IndexMessage = "this is a message"

var EmptyData = struct{}{}

// Statistics holds app stats for ops.
type Statistics struct {
	version string
	called  uint64
	started time.Time
	status  map[int]uint64
	mu      *sync.RWMutex
}

// HealthCheck is a named probe of a dependency used by the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger     *zap.Logger
	config     *Config
	stats      *Statistics
	clock      Clocker
	idsHandler UIDHandler
	checks     []HealthCheck
}

// NewAPIHandler provides a new instance of APIHandler.
func NewAPIHandler(logger *zap.Logger, config *Config, stats *Statistics, clock Clocker, idsHandler UIDHandler, checks ...HealthCheck) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &APIHandler{
		logger:     logger,
		config:     config,
		stats:      stats,
		clock:      clock,
		idsHandler: idsHandler,
		checks:     checks,
	}
}

// Index serves the static welcome message.
//
//	@Summary	Static welcome message
//	@Produce	json
//	@Success	200	{object}	MessageResponse
//	@Router		/ [get]
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := WriteJSON(w, http.StatusOK, MessageResponse{Message: IndexMessage}); err != nil {
		api.logger.Error("failed to send index response",
			zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
			zap.Error(err),
		)
	}
}

// NotFound responds with a json message to any request on an unknown route.
func (api *APIHandler) NotFound(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	if err := WriteJSON(w, http.StatusNotFound, map[string]string{
		"requestid": requestID,
		"message":   "route does not exist",
		"path":      r.Method + " " + r.URL.Path,
	}); err != nil {
		api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetStatistics provides useful details about the application to the internal ops users.
// The stats returned by this handler do not count the ops requests themselves.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	api.stats.mu.RLock()
	status := make(map[string]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[fmt.Sprint(code)] = count
	}
	api.stats.mu.RUnlock()

	err := WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requestid":   requestID,
		"app.version": api.stats.version,
		"called":      atomic.LoadUint64(&api.stats.called),
		"started":     api.stats.started.Format(time.RFC1123),
		"uptime":      fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		"status":      status,
	})
	if err != nil {
		api.logger.Error("failed to send statistics response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations. Secrets are never encoded.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	if err := WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requestid": requestID,
		"configs":   api.config,
	}); err != nil {
		api.logger.Error("failed to send configs response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Health runs every registered dependency check and reports 503 if any failed.
func (api *APIHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	ctx := r.Context()
	if api.config.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.config.Server.RequestTimeout)
		defer cancel()
	}

	code := http.StatusOK
	results := make(map[string]string, len(api.checks))
	for _, hc := range api.checks {
		if err := hc.Check(ctx); err != nil {
			api.logger.Error("health check failed", zap.String("request.id", requestID), zap.String("check", hc.Name), zap.Error(err))
			results[hc.Name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		results[hc.Name] = "ok"
	}

	if err := WriteJSON(w, code, map[string]interface{}{
		"requestid": requestID,
		"checks":    results,
	}); err != nil {
		api.logger.Error("failed to send health response", zap.String("request.id", requestID), zap.Error(err))
	}
}
