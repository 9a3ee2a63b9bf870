// Package dashboard serves a small read-only HTTP view of the moderation
// queue: health, counts, submission listings, a live count stream and
// prometheus metrics.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/store"
)

// Reader is the slice of the store the dashboard reads from.
type Reader interface {
	moderation.CountSource
	FindSubmissions(q store.SubmissionQuery) ([]models.Submission, error)
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store   Reader
	Port    int
	Metrics http.Handler // defaults to the prometheus default registry
	Out     io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("dashboard: store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 3000
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts.Store, opts.Metrics)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter builds the Gin engine with every route registered.
func newRouter(r Reader, metrics http.Handler) *gin.Engine {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, r, metrics)
	return router
}
