// Package margin hosts two experimental dark-margin detectors explored as
// alternatives for trimming scan borders: an edge/texture analyzer and a
// color-clustering analyzer. Neither participates in the production split
// decision; they are exercised through the marginprobe tool and may later
// be promoted as configurable locator variants.
package margin

import (
	"math"

	"github.com/local/mangasplit/internal/pixmap"
)

// MarginRegion is a detected span of margin-like columns.
type MarginRegion struct {
	StartX     int     `json:"start_x"`
	EndX       int     `json:"end_x"`
	MeanScore  float64 `json:"mean_score"`
	Confidence float64 `json:"confidence"`
}

// normalize scales values into [0,1]; a near-constant input maps to zeros.
func normalize(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	minV, maxV := data[0], data[0]
	for _, v := range data {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV-minV < 1e-6 {
		return out
	}
	for i, v := range data {
		out[i] = (v - minV) / (maxV - minV)
	}
	return out
}

// columnEntropy computes per-column Shannon entropy over a sliding window
// of full-height strips, mirroring the prototype: the plane is reflected
// horizontally by window/2 and each column's histogram spans the strip
// [x, x+window).
func columnEntropy(g *pixmap.Gray, window, bins int) []float64 {
	w, h := g.W, g.H
	ent := make([]float64, w)
	if w == 0 || h == 0 || bins <= 0 {
		return ent
	}
	pad := window / 2

	colIdx := func(x int) int {
		// reflect border (edcba|abcde|edcba)
		if x < 0 {
			x = -x - 1
		}
		if x >= w {
			x = 2*w - x - 1
		}
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		return x
	}

	binOf := func(v uint8) int {
		b := int(v) * bins / 256
		if b >= bins {
			b = bins - 1
		}
		return b
	}

	hist := make([]int, bins)
	for x := 0; x < w; x++ {
		for i := range hist {
			hist[i] = 0
		}
		for dx := 0; dx < window; dx++ {
			sx := colIdx(x - pad + dx)
			for y := 0; y < h; y++ {
				hist[binOf(g.At(sx, y))]++
			}
		}
		total := float64(window * h)
		e := 0.0
		for _, n := range hist {
			if n == 0 {
				continue
			}
			p := float64(n) / total
			e -= p * math.Log2(p+1e-12)
		}
		ent[x] = e
	}
	return ent
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
