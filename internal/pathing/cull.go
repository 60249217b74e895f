package pathing

// Cull keeps the segments of a polyline that touch the viewport.
// A segment survives if either endpoint is inside the canvas or it crosses one
// of the four borders. Consecutive survivors are joined into runs.
func Cull(points []Point, view Viewport) [][]Point {
	var runs [][]Point
	var run []Point

	for i := 0; i+1 < len(points); i++ {
		p, q := points[i], points[i+1]
		if !visible(p, q, view) {
			if len(run) > 0 {
				runs = append(runs, run)
				run = nil
			}
			continue
		}
		if len(run) == 0 {
			run = append(run, p)
		}
		run = append(run, q)
	}

	if len(run) > 0 {
		runs = append(runs, run)
	}
	return runs
}

func visible(p, q Point, view Viewport) bool {
	if view.Contains(p) || view.Contains(q) {
		return true
	}
	return crossesVertical(p, q, 0, view.Height) ||
		crossesVertical(p, q, view.Width, view.Height) ||
		crossesHorizontal(p, q, 0, view.Width) ||
		crossesHorizontal(p, q, view.Height, view.Width)
}

// crossesVertical reports whether pq crosses the line x = border within 0 <= y <= extent
func crossesVertical(p, q Point, border, extent float64) bool {
	if (p.X-border)*(q.X-border) > 0 || p.X == q.X {
		return false
	}
	t := (border - p.X) / (q.X - p.X)
	y := p.Y + t*(q.Y-p.Y)
	return y >= 0 && y <= extent
}

// crossesHorizontal reports whether pq crosses the line y = border within 0 <= x <= extent
func crossesHorizontal(p, q Point, border, extent float64) bool {
	if (p.Y-border)*(q.Y-border) > 0 || p.Y == q.Y {
		return false
	}
	t := (border - p.Y) / (q.Y - p.Y)
	x := p.X + t*(q.X-p.X)
	return x >= 0 && x <= extent
}
