package draw

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

// PNGOptions configures raster output
type PNGOptions struct {
	Background string
	Labels     bool
	FontSize   float64
	// MaxSize caps both canvas sides in pixels, 0 disables the cap
	MaxSize int
}

// DefaultMaxCanvasSize bounds a PNG side unless configured otherwise
const DefaultMaxCanvasSize = 4096

// DefaultPNGOptions returns a white map with station labels
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Background: "#ffffff", Labels: true, FontSize: 11, MaxSize: DefaultMaxCanvasSize}
}

// Canvas renders a frame with gg
func Canvas(frame *Frame, opts PNGOptions) (*gg.Context, error) {
	w, h := frame.Viewport.Width, frame.Viewport.Height
	if !(w >= 1 && h >= 1) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return nil, fmt.Errorf("cannot render a %vx%v frame", w, h)
	}
	if opts.MaxSize > 0 && (w > float64(opts.MaxSize) || h > float64(opts.MaxSize)) {
		return nil, fmt.Errorf("cannot render a %vx%v frame, sides are limited to %d pixels", w, h, opts.MaxSize)
	}
	width, height := int(w), int(h)

	dc := gg.NewContext(width, height)
	dc.SetHexColor(opts.Background)
	dc.Clear()
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	lines := make([]Line, len(frame.Lines))
	copy(lines, frame.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Z < lines[j].Z })
	for _, line := range lines {
		drawLine(dc, line, frame.LineWidth, opts.Background)
	}

	for _, conn := range frame.Connectors {
		drawPolyline(dc, conn.Points)
		dc.SetColor(color.Black)
		dc.SetLineWidth(conn.Thickness + 2)
		dc.Stroke()
		drawPolyline(dc, conn.Points)
		dc.SetColor(color.White)
		dc.SetLineWidth(conn.Thickness)
		dc.Stroke()
	}

	for _, arrow := range frame.Arrows {
		drawArrow(dc, arrow, frame.LineWidth)
	}

	for _, station := range frame.Stations {
		drawStation(dc, station, frame.LineWidth)
	}

	if opts.Labels && len(frame.Stations) > 0 {
		ttfFont, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		dc.SetFontFace(truetype.NewFace(ttfFont, &truetype.Options{
			Size:    opts.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		}))
		dc.SetColor(color.Black)
		for _, station := range frame.Stations {
			dc.DrawStringAnchored(station.Name, station.X, station.Y+station.Height/2+opts.FontSize, 0.5, 0.5)
		}
	}

	return dc, nil
}

// WritePNG renders a frame and encodes it as PNG
func WritePNG(w io.Writer, frame *Frame, opts PNGOptions) error {
	dc, err := Canvas(frame, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG renders a frame to a PNG file
func SavePNG(path string, frame *Frame, opts PNGOptions) error {
	dc, err := Canvas(frame, opts)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func drawPolyline(dc *gg.Context, points []pathing.Point) {
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
		} else {
			dc.LineTo(p.X, p.Y)
		}
	}
}

func drawLine(dc *gg.Context, line Line, width float64, background string) {
	for _, run := range line.Segments {
		drawPolyline(dc, run)
		dc.SetHexColor(line.Color)
		dc.SetLineWidth(width)
		if line.Style == models.VisibilityDashed {
			dc.SetDash(width*2, width*1.5)
		}
		dc.Stroke()
		dc.SetDash()

		if line.Style == models.VisibilityHollow {
			drawPolyline(dc, run)
			dc.SetHexColor(background)
			dc.SetLineWidth(width / 2)
			dc.Stroke()
		}
	}
}

func drawArrow(dc *gg.Context, arrow Arrow, width float64) {
	size := width * 1.5
	dc.Push()
	dc.Translate(arrow.X, arrow.Y)
	dc.Rotate(arrow.Angle)
	dc.MoveTo(size, 0)
	dc.LineTo(-size, size)
	dc.LineTo(-size, -size)
	dc.ClosePath()
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetHexColor(arrow.Color)
	dc.SetLineWidth(1)
	dc.Stroke()
	dc.Pop()
}

func drawStation(dc *gg.Context, station Station, width float64) {
	dc.Push()
	dc.Translate(station.X, station.Y)
	dc.Rotate(station.Rotation)
	dc.DrawRoundedRectangle(-station.Width/2, -station.Height/2, station.Width, station.Height, math.Min(station.Width, station.Height)/2)
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(color.Black)
	dc.SetLineWidth(width / 2)
	dc.Stroke()
	dc.Pop()
}
