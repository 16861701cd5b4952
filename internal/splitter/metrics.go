package splitter

import "github.com/local/mangasplit/internal/pixmap"

// ContentMetrics summarizes where the ink lives inside a spread.
type ContentMetrics struct {
	BBox              pixmap.Rect
	ForegroundRatio   float64
	ContentWidthRatio float64
	BBoxHeightRatio   float64
}

// ComputeBBox returns the tight bounding box of the foreground pixels.
// The caller must have checked that the mask is non-empty.
func ComputeBBox(m *pixmap.Mask) pixmap.Rect {
	xMin, yMin := m.W, m.H
	xMax, yMax := -1, -1
	for y := 0; y < m.H; y++ {
		row := m.Bits[y*m.W : (y+1)*m.W]
		for x, on := range row {
			if !on {
				continue
			}
			if x < xMin {
				xMin = x
			}
			if x > xMax {
				xMax = x
			}
			if y < yMin {
				yMin = y
			}
			yMax = y
		}
	}
	return pixmap.Rect{X0: xMin, Y0: yMin, X1: xMax + 1, Y1: yMax + 1}
}

// MeasureContent derives coverage metrics from a non-empty mask.
func MeasureContent(m *pixmap.Mask) ContentMetrics {
	bbox := ComputeBBox(m)
	return ContentMetrics{
		BBox:              bbox,
		ForegroundRatio:   m.Mean(),
		ContentWidthRatio: float64(bbox.Dx()) / float64(m.W),
		BBoxHeightRatio:   float64(bbox.Dy()) / float64(m.H),
	}
}
