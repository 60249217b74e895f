package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/metromap/internal/config"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/repository"
	"github.com/mini-rodalies-3d/metromap/internal/service"
)

func main() {
	var envDir string

	rootCmd := &cobra.Command{
		Use:   "metromap",
		Short: "Schematic transit map layout engine",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// .env first, then .env.local which overrides it for local development
			config.LoadEnvFiles(envDir)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "Directory holding .env and .env.local")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(layoutCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(importGTFSCmd())
	rootCmd.AddCommand(viewCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadCatalog returns the route-type catalog from ROUTE_TYPES_FILE, or the built-in one
func loadCatalog(cfg *config.Config) (*models.RouteTypeCatalog, error) {
	if cfg.RouteTypesFile == "" {
		return models.DefaultRouteTypes(), nil
	}

	catalog, err := models.LoadRouteTypes(cfg.RouteTypesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load route types: %w", err)
	}
	log.Printf("Loaded %d route types from %s", len(catalog.Types), cfg.RouteTypesFile)
	return catalog, nil
}

func serviceOptions(cfg *config.Config, catalog *models.RouteTypeCatalog) service.Options {
	return service.Options{
		Layout:    cfg.LayoutOptions(),
		Draw:      cfg.DrawOptions(),
		Catalog:   catalog,
		CacheSize: cfg.PathCacheSize,
		CacheTTL:  cfg.PathCacheTTL,
	}
}

// loadSnapshot lays out a network fixture when networkFile is set, otherwise the stored network
func loadSnapshot(ctx context.Context, cfg *config.Config, networkFile string) (*service.Service, *service.Snapshot, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}

	if networkFile != "" {
		network, err := models.LoadNetwork(networkFile)
		if err != nil {
			return nil, nil, err
		}
		svc := service.New(nil, serviceOptions(cfg, catalog))
		return svc, svc.Load(network), nil
	}

	store, err := repository.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open repository: %w", err)
	}
	defer store.Close()

	svc := service.New(store, serviceOptions(cfg, catalog))
	snapshot, err := svc.Refresh(ctx)
	if err != nil {
		return nil, nil, err
	}
	return svc, snapshot, nil
}
