// Package viewer draws a layout in the terminal with pan and zoom.
package viewer

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

// A terminal cell is about twice as tall as it is wide, so the canvas
// has two vertical units per row.
const cellAspect = 2

const (
	panCells   = 8
	zoomFactor = 1.25
)

var arrowGlyphs = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// Viewer renders one layout result onto a tcell screen
type Viewer struct {
	screen tcell.Screen
	result *layout.Result
	opts   draw.Options

	centerX float64
	centerY float64
	zoom    float64
	labels  bool
}

// New creates a viewer centred on the layout and zoomed to fit the screen
func New(screen tcell.Screen, result *layout.Result, opts draw.Options) *Viewer {
	v := &Viewer{screen: screen, result: result, opts: opts, labels: true}
	v.Reset()
	return v
}

// Reset centres the layout and zooms it to fit
func (v *Viewer) Reset() {
	v.centerX, v.centerY = v.result.CenterX, v.result.CenterY
	v.zoom = 1

	cols, rows := v.screen.Size()
	if len(v.result.Stations) == 0 || cols == 0 || rows < 2 {
		return
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, st := range v.result.Stations {
		minX, maxX = math.Min(minX, st.Position.X), math.Max(maxX, st.Position.X)
		minZ, maxZ = math.Min(minZ, st.Position.Z), math.Max(maxZ, st.Position.Z)
	}

	width, height := float64(cols), float64((rows-1)*cellAspect)
	zoom := math.Inf(1)
	if maxX > minX {
		zoom = math.Min(zoom, width/(maxX-minX))
	}
	if maxZ > minZ {
		zoom = math.Min(zoom, height/(maxZ-minZ))
	}
	if !math.IsInf(zoom, 1) {
		v.zoom = zoom * 0.9
	}
}

// Viewport returns the canvas the next Draw renders, excluding the status row
func (v *Viewer) Viewport() pathing.Viewport {
	cols, rows := v.screen.Size()
	if rows > 1 {
		rows--
	}
	return pathing.Viewport{
		CenterX: v.centerX,
		CenterY: v.centerY,
		Width:   float64(cols),
		Height:  float64(rows * cellAspect),
		Zoom:    v.zoom,
	}
}

// Draw renders the current viewport and shows it
func (v *Viewer) Draw() {
	v.screen.Clear()
	view := v.Viewport()
	if view.Validate() != nil {
		v.screen.Show()
		return
	}

	frame := draw.Emit(v.result, view, v.opts)

	for _, conn := range frame.Connectors {
		v.polyline(conn.Points, tcell.StyleDefault.Foreground(tcell.ColorGray))
	}
	for _, line := range frame.Lines {
		style := tcell.StyleDefault.Foreground(tcell.GetColor(line.Color))
		if line.Style == models.VisibilityDashed {
			style = style.Dim(true)
		}
		for _, segment := range line.Segments {
			v.polyline(segment, style)
		}
	}
	for _, arrow := range frame.Arrows {
		octant := int(math.Round(arrow.Angle/(math.Pi/4))+8) % 8
		v.set(arrow.X, arrow.Y, arrowGlyphs[octant], tcell.StyleDefault.Foreground(tcell.GetColor(arrow.Color)))
	}
	for _, st := range frame.Stations {
		x, y := v.cell(st.X, st.Y)
		v.screen.SetContent(x, y, '●', nil, tcell.StyleDefault.Bold(true))
		if v.labels {
			v.text(x+2, y, st.Name, tcell.StyleDefault)
		}
	}

	v.status(frame)
	v.screen.Show()
}

func (v *Viewer) status(frame *draw.Frame) {
	cols, rows := v.screen.Size()
	line := fmt.Sprintf(" zoom %.3g  centre (%.0f, %.0f)  %d lines  %d stations  arrows/hjkl pan  +/- zoom  n names  0 reset  q quit",
		v.zoom, v.centerX, v.centerY, len(frame.Lines), len(frame.Stations))
	style := tcell.StyleDefault.Reverse(true)
	for x := 0; x < cols; x++ {
		v.screen.SetContent(x, rows-1, ' ', nil, style)
	}
	v.text(0, rows-1, line, style)
}

// HandleEvent applies one input event. It reports whether the viewer should quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		step := panCells / v.zoom
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyLeft:
			v.centerX -= step
		case tcell.KeyRight:
			v.centerX += step
		case tcell.KeyUp:
			v.centerY -= step
		case tcell.KeyDown:
			v.centerY += step
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return true
			case 'h':
				v.centerX -= step
			case 'l':
				v.centerX += step
			case 'k':
				v.centerY -= step
			case 'j':
				v.centerY += step
			case '+', '=':
				v.zoom *= zoomFactor
			case '-':
				v.zoom /= zoomFactor
			case 'n':
				v.labels = !v.labels
			case '0':
				v.Reset()
			}
		}
	}
	return false
}

// Run draws and handles events until the user quits
func (v *Viewer) Run() {
	for {
		v.Draw()
		if v.HandleEvent(v.screen.PollEvent()) {
			return
		}
	}
}

func (v *Viewer) cell(x, y float64) (int, int) {
	return int(math.Round(x)), int(math.Floor(y / cellAspect))
}

func (v *Viewer) set(x, y float64, r rune, style tcell.Style) {
	cx, cy := v.cell(x, y)
	v.screen.SetContent(cx, cy, r, nil, style)
}

func (v *Viewer) text(x, y int, s string, style tcell.Style) {
	cols, _ := v.screen.Size()
	for _, r := range s {
		if x >= cols {
			return
		}
		if x >= 0 {
			v.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

// polyline rasterizes 45-degree segments one canvas unit at a time
func (v *Viewer) polyline(points []pathing.Point, style tcell.Style) {
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		glyph := segmentGlyph(dx, dy)

		steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
		if steps == 0 {
			continue
		}
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			v.set(a.X+dx*t, a.Y+dy*t, glyph, style)
		}
	}
}

func segmentGlyph(dx, dy float64) rune {
	const eps = 1e-6
	switch {
	case math.Abs(dy) < eps:
		return '─'
	case math.Abs(dx) < eps:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}
