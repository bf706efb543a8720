package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-eraser/internal/handlers"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port   string
		detect bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the selection HTTP API",
		Long: `Starts an HTTP API that keeps one selection session per uploaded image.

  POST   /api/sessions                 multipart "file" (display=WxH, detect=true, detections=[...])
  GET    /api/sessions                 list sessions
  GET    /api/sessions/{id}            session state
  DELETE /api/sessions/{id}            drop a session
  POST   /api/sessions/{id}/events     JSON array of pointer events, returns emitted selections
  GET    /api/sessions/{id}/overlay.png
  GET    /api/sessions/{id}/mask.png   (also mask.webp, preview.png)
  GET    /healthcheck`,
		Example: `  # Start server on default port 8888
  image-eraser serve

  # Start server on custom port and detect every upload
  image-eraser serve --port 3000 --detect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.config.Server.Port = port
			}
			if detect {
				a.config.Server.DetectOnLoad = true
			}

			handler := handlers.New(a.eraser)

			addr := ":" + a.config.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Image eraser API available", "addr", addr, "url", "http://localhost"+addr,
					"backend", a.config.Detection.Backend)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides config and PORT)")
	cmd.Flags().BoolVar(&detect, "detect", false, "run detection on every upload")

	return cmd
}
