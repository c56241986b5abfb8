package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	CORSAllowedMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"
)

var ErrInvalidJSONBody = errors.New("invalid json body")

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewaresStacks builds the public and ops middlewares stacks. The optional
// CORS, JSON body and request logging middlewares follow the server config.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := Middlewares{
		api.PanicRecoveryMiddleware,
		api.RequestsCounterMiddleware,
		api.RequestIDMiddleware,
	}
	if api.config.Server.CORSEnable {
		public = append(public, CORSMiddleware)
	}
	if api.config.Server.JSONBodyEnable {
		public = append(public, api.JSONBodyMiddleware)
	}
	public = append(public, api.StatsMiddleware)
	if api.config.Server.RequestLogEnable {
		public = append(public, api.RequestLogMiddleware)
	}

	ops := Middlewares{
		api.PanicRecoveryMiddleware,
		api.RequestIDMiddleware,
		api.RequestLogMiddleware,
	}
	return &public, &ops
}

// RequestLogMiddleware logs each request once processed, in the development
// access log format `METHOD PATH STATUS DURATION ms - BYTES`, along with
// structured fields.
func (api *APIHandler) RequestLogMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := api.clock.Now()
		cw, ok := w.(*CustomResponseWriter)
		if !ok {
			cw = NewCustomResponseWriter(w)
		}
		next(cw, r, ps)

		duration := api.clock.Now().Sub(start)
		api.logger.Info(
			fmt.Sprintf("%s %s %d %.3f ms - %d",
				r.Method, r.URL.RequestURI(), cw.Status(), float64(duration.Microseconds())/1000, cw.Bytes()),
			zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
			zap.Uint64("request.num", GetRequestNumberFromContext(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
			zap.Int("response.status", cw.Status()),
			zap.Int("response.bytes", cw.Bytes()),
			zap.Duration("request.duration", duration),
		)
	}
}

// StatsMiddleware records the number of responses sent per status code.
func (api *APIHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w)
		next(cw, r, ps)
		api.stats.mu.Lock()
		api.stats.status[cw.Status()]++
		api.stats.mu.Unlock()
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.num` field.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), ContextRequestNumber, atomic.AddUint64(&api.stats.called, 1))
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// RequestIDMiddleware adds a unique id to the request context and to the response
// headers. A well-formed id received from the client is kept as is.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if !api.idsHandler.IsValid(requestID, RequestIDPrefix) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), ContextRequestID, requestID)
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// CORSMiddleware allows cross-origin requests from any origin.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next(w, r, ps)
	}
}

// CORSPreflightHandler answers the OPTIONS preflight requests. The
// router calls it for every path which has at least one route.
func CORSPreflightHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		if r.Header.Get("Access-Control-Request-Method") == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		header.Set("Access-Control-Allow-Methods", CORSAllowedMethods)
		if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
			header.Set("Access-Control-Allow-Headers", requested)
			header.Add("Vary", "Access-Control-Request-Headers")
		}
		header.Set("Content-Length", "0")
		w.WriteHeader(http.StatusNoContent)
	})
}

// JSONBodyMiddleware parses json request bodies up to the configured limit and stores
// the result in the request context. Invalid payloads are only recorded and logged:
// rejecting them is left to the handlers which expect a body. The body remains
// readable by the next handlers.
func (api *APIHandler) JSONBodyMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.Body == nil || r.Body == http.NoBody || !IsJSONContentType(r.Header.Get("Content-Type")) {
			next(w, r, ps)
			return
		}

		body := r.Body
		data, err := io.ReadAll(io.LimitReader(body, api.config.Server.JSONBodyLimit+1))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(data), body), body}

		ctx := r.Context()
		switch {
		case err != nil:
			err = fmt.Errorf("%w: %v", ErrInvalidJSONBody, err)
		case int64(len(data)) > api.config.Server.JSONBodyLimit:
			err = fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidJSONBody, api.config.Server.JSONBodyLimit)
		case len(bytes.TrimSpace(data)) == 0:
			// blank body, nothing to parse.
		case !json.Valid(data):
			err = fmt.Errorf("%w: malformed payload", ErrInvalidJSONBody)
		default:
			ctx = context.WithValue(ctx, ContextJSONBody, json.RawMessage(data))
		}

		if err != nil {
			api.logger.Debug("request body not parsed",
				zap.String("request.id", GetValueFromContext(ctx, ContextRequestID)),
				zap.Error(err),
			)
			ctx = context.WithValue(ctx, ContextJSONBodyError, err)
		}
		next(w, r.WithContext(ctx), ps)
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), ContextRequestID)
				api.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err))
				errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to process the request.", EmptyData)
				if err := WriteErrorResponse(w, errResp); err != nil {
					api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
				}
			}
		}()
		next(w, r, ps)
	}
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}
