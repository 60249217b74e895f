package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/metromap/internal/config"
	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

func layoutCmd() *cobra.Command {
	var networkFile, outFile string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the layout and write it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, snapshot, err := loadSnapshot(context.Background(), config.Load(), networkFile)
			if err != nil {
				return err
			}

			for _, warning := range snapshot.Result.Warnings {
				log.Printf("Warning: %s", warning)
			}

			return writeJSONFile(outFile, struct {
				SnapshotID string `json:"snapshotId"`
				Layout     any    `json:"layout"`
			}{snapshot.ID, snapshot.Result})
		},
	}

	cmd.Flags().StringVarP(&networkFile, "network", "n", "", "Network YAML fixture (default: the stored network)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func renderCmd() *cobra.Command {
	var (
		networkFile string
		outFile     string
		view        pathing.Viewport
		labels      bool
		frameJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a viewport of the layout as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			svc, snapshot, err := loadSnapshot(context.Background(), cfg, networkFile)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("cx") {
				view.CenterX = snapshot.Result.CenterX
			}
			if !cmd.Flags().Changed("cy") {
				view.CenterY = snapshot.Result.CenterY
			}

			frame, _, err := svc.Frame(view)
			if err != nil {
				return err
			}
			if frame.Skipped > 0 {
				log.Printf("Warning: %d lines could not be drawn", frame.Skipped)
			}

			if frameJSON {
				return writeJSONFile(outFile, frame)
			}

			opts := cfg.PNGOptions()
			opts.Labels = labels
			if err := draw.SavePNG(outFile, frame, opts); err != nil {
				return err
			}
			log.Printf("Rendered %d lines and %d stations to %s", len(frame.Lines), len(frame.Stations), outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&networkFile, "network", "n", "", "Network YAML fixture (default: the stored network)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "map.png", "Output file")
	cmd.Flags().Float64Var(&view.CenterX, "cx", 0, "Viewport centre x (default: map centre)")
	cmd.Flags().Float64Var(&view.CenterY, "cy", 0, "Viewport centre z (default: map centre)")
	cmd.Flags().Float64Var(&view.Width, "width", 1600, "Canvas width in pixels")
	cmd.Flags().Float64Var(&view.Height, "height", 1200, "Canvas height in pixels")
	cmd.Flags().Float64Var(&view.Zoom, "zoom", 1, "Canvas pixels per world unit")
	cmd.Flags().BoolVar(&labels, "labels", true, "Draw station names")
	cmd.Flags().BoolVar(&frameJSON, "json", false, "Write the draw frame as JSON instead of PNG")
	return cmd
}

func writeJSONFile(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
