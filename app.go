package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger *zap.Logger
	config *Config
	server *http.Server
}

// NewApp builds the api server on top of the given infrastructure.
func NewApp(infra *Infra) *App {
	config := infra.config
	apiService := NewAPIHandler(
		infra.logger,
		config,
		&Statistics{version: config.GitTag, started: infra.clock.Now()},
		infra.clock,
		NewRequestIDs(),
		infra.HealthChecks()...,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the middlewares stacks then configure the endpoints.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)

	var handler http.Handler = router
	if config.Server.RequestTimeout > 0 {
		handler = TimeoutHandler(router, config.Server.RequestTimeout)
	}

	srv := &http.Server{
		Addr:           config.Server.Address(),
		Handler:        handler,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return &App{
		logger: infra.logger,
		config: config,
		server: srv,
	}
}

// TimeoutMessage is the body sent when a request exceeds the server request timeout.
const TimeoutMessage = `{"message":"request timed out"}`

// TimeoutHandler bounds each request to dt and answers 503 with a json
// body once exceeded. Headers set by h replace the preset content type.
func TimeoutHandler(h http.Handler, dt time.Duration) http.Handler {
	th := http.TimeoutHandler(h, dt, TimeoutMessage)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentTypeJSON)
		th.ServeHTTP(w, r)
	})
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.address", app.server.Addr),
		zap.Error(err),
	)
	return err
}

// Serve starts the api web server. Its returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting", zap.String("app.address", app.server.Addr))
		ln, err := net.Listen("tcp", app.server.Addr)
		if err != nil {
			return err
		}
		app.logger.Info("api server listening", zap.String("app.address", ln.Addr().String()))
		err = app.server.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}
