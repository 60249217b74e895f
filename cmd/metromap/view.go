package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/metromap/internal/config"
	"github.com/mini-rodalies-3d/metromap/internal/viewer"
)

func viewCmd() *cobra.Command {
	var networkFile string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse the layout in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Load()
			_, snapshot, err := loadSnapshot(context.Background(), cfg, networkFile)
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("failed to init screen: %w", err)
			}
			defer screen.Fini()

			// Log lines would scribble over the screen
			log.SetOutput(io.Discard)

			viewer.New(screen, snapshot.Result, cfg.DrawOptions()).Run()
			return nil
		},
	}

	cmd.Flags().StringVarP(&networkFile, "network", "n", "", "Network YAML fixture (default: the stored network)")
	return cmd
}
