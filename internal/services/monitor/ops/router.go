// Package ops serves the operational endpoints of the monitor: health,
// readiness and Prometheus metrics.
package ops

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func NewRouter(d Deps, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/healthz", NewHealthHandler(d)).Methods(http.MethodGet)
	r.Handle("/readyz", NewReadyHandler(d)).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

// Serve listens on addr until ctx is cancelled. Requests are logged to
// accessLog in Apache common format.
func Serve(ctx context.Context, addr string, h http.Handler, accessLog io.Writer, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(accessLog, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()
	logger.Printf("ops: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
