package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/metromap/internal/config"
	"github.com/mini-rodalies-3d/metromap/internal/handlers"
	"github.com/mini-rodalies-3d/metromap/internal/repository"
	"github.com/mini-rodalies-3d/metromap/internal/service"
)

func serveCmd() *cobra.Command {
	var refreshInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(config.Load(), refreshInterval)
		},
	}

	cmd.Flags().DurationVar(&refreshInterval, "refresh-interval", 0, "Reload the network from the repository this often (0 disables)")
	return cmd
}

func runServe(cfg *config.Config, refreshInterval time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	svc := service.New(store, serviceOptions(cfg, catalog))
	if _, err := svc.Refresh(ctx); err != nil {
		// Serve anyway: /health reports the repository, refresh can be retried
		log.Printf("Warning: initial layout failed: %v", err)
	}

	if refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if _, err := svc.Refresh(ctx); err != nil {
						log.Printf("Scheduled refresh failed: %v", err)
					}
				case <-ctx.Done():
					log.Println("Refresh loop stopped")
					return
				}
			}
		}()
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(svc, handlers.RouterOptions{
			CORSOrigins:   cfg.CORSOrigins,
			StaticDir:     cfg.StaticDir,
			MaxCanvasSize: cfg.MaxCanvasSize,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		log.Println("Layout endpoints:")
		log.Println("  GET  /api/layout")
		log.Println("  GET  /api/layout/frame?cx&cy&w&h&zoom")
		log.Println("  GET  /api/layout/connections/{index}/path")
		log.Println("  GET  /api/layout/map.png")
		log.Println("  POST /api/layout/refresh")
		log.Println("Route types:")
		log.Println("  GET  /api/route-types")
		log.Println("  PUT  /api/route-types/{type}/visibility")
		log.Println("Health:")
		log.Println("  GET  /health (with database check)")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-sig:
	}

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: shutdown did not complete: %v", err)
	}

	log.Println("Goodbye!")
	return nil
}
