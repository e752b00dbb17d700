// Package server provides the HTTP surface of the relay: the game-facing
// intake endpoint, the monitoring page, and the JSON stats endpoint.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/semaphore/internal/archive"
	"github.com/zulandar/semaphore/internal/bridge"
	"github.com/zulandar/semaphore/internal/config"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Config  *config.Config
	Queue   *bridge.Queue
	Stats   *bridge.Stats
	Archive *archive.Archive // optional; enables /messages
	Out     io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Config == nil {
		return fmt.Errorf("server: config is required")
	}
	if opts.Queue == nil {
		return fmt.Errorf("server: queue is required")
	}
	if opts.Stats == nil {
		return fmt.Errorf("server: stats is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, opts)

	addr := fmt.Sprintf(":%d", opts.Config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Intake endpoint at http://localhost:%d/message\n", opts.Config.Server.Port)
		fmt.Fprintf(opts.Out, "Monitoring at http://localhost:%d/\n", opts.Config.Server.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
