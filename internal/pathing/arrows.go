package pathing

import (
	"math"

	"github.com/mini-rodalies-3d/metromap/internal/geometry"
)

// placeArrows spreads arrows along every segment of the runs, step apart with
// equal padding at both ends. A segment shorter than step gets one centred arrow.
func placeArrows(runs [][]Point, step float64, reverse bool) []Arrow {
	if step <= 0 {
		return nil
	}

	var arrows []Arrow
	for _, run := range runs {
		for i := 0; i+1 < len(run); i++ {
			p, q := run[i], run[i+1]
			dx, dy := q.X-p.X, q.Y-p.Y
			length := math.Hypot(dx, dy)
			if length <= epsilon {
				continue
			}

			angle := geometry.OctantRadians(geometry.QuantizeAngle(dy, dx))
			if reverse {
				angle += math.Pi
			}
			if angle > math.Pi {
				angle -= 2 * math.Pi
			}

			count := 1
			if length >= step {
				count = int(math.Floor(length / step))
			}
			padding := (length - float64(count-1)*step) / 2

			for n := 0; n < count; n++ {
				t := (padding + float64(n)*step) / length
				arrows = append(arrows, Arrow{X: p.X + t*dx, Y: p.Y + t*dy, Angle: angle})
			}
		}
	}
	return arrows
}
