package margin

import (
	"math"

	"github.com/local/mangasplit/internal/pixmap"
)

// EdgeTextureConfig tunes the gradient/entropy margin detector.
type EdgeTextureConfig struct {
	Gamma             float64
	EntropyWindow     int
	EntropyBins       int
	WhiteThreshold    float64
	LeftSearchRatio   float64
	RightSearchRatio  float64
	CenterSearchRatio float64
	MinMarginRatio    float64
	CenterMaxRatio    float64
	ScoreWeights      [3]float64
}

// DefaultEdgeTextureConfig returns the prototype's tuned defaults.
func DefaultEdgeTextureConfig() EdgeTextureConfig {
	return EdgeTextureConfig{
		Gamma:             1.0,
		EntropyWindow:     15,
		EntropyBins:       32,
		WhiteThreshold:    0.45,
		LeftSearchRatio:   0.18,
		RightSearchRatio:  0.18,
		CenterSearchRatio: 0.3,
		MinMarginRatio:    0.025,
		CenterMaxRatio:    0.06,
		ScoreWeights:      [3]float64{0.4, 0.35, 0.25},
	}
}

// EdgeTextureResult reports detected margin spans and search notes.
type EdgeTextureResult struct {
	Width  int                `json:"width"`
	Height int                `json:"height"`
	Left   *MarginRegion      `json:"left_margin"`
	Right  *MarginRegion      `json:"right_margin"`
	Center *MarginRegion      `json:"center_band"`
	Notes  map[string]float64 `json:"notes"`
}

// AnalyzeEdges scores each column by how "blank" it looks (low gradient
// mean, low gradient variance, low entropy) and finds contiguous low-score
// runs at the outer edges and near the center.
func AnalyzeEdges(img *pixmap.Image, cfg EdgeTextureConfig) EdgeTextureResult {
	width, height := img.W, img.H
	gray := img.Luminance()
	gray = applyGamma(gray, cfg.Gamma)
	blurred := blur5(gray)

	gradMean, gradVar := columnGradientStats(blurred)
	entropy := columnEntropy(blurred, cfg.EntropyWindow, cfg.EntropyBins)

	gm := normalize(gradMean)
	gv := normalize(gradVar)
	en := normalize(entropy)

	w1, w2, w3 := cfg.ScoreWeights[0], cfg.ScoreWeights[1], cfg.ScoreWeights[2]
	white := make([]float64, width)
	for x := 0; x < width; x++ {
		white[x] = clampUnit((1.0-gm[x])*w1 + (1.0-gv[x])*w2 + (1.0-en[x])*w3)
	}

	leftLimit := maxInt(1, int(float64(width)*cfg.LeftSearchRatio))
	rightStart := maxInt(0, width-int(float64(width)*cfg.RightSearchRatio))
	centerStart := maxInt(0, int(float64(width)*(0.5-cfg.CenterSearchRatio/2)))
	centerEnd := minInt(width, int(float64(width)*(0.5+cfg.CenterSearchRatio/2)))

	minMarginWidth := maxInt(3, int(float64(width)*cfg.MinMarginRatio))
	centerMaxWidth := maxInt(3, int(float64(width)*cfg.CenterMaxRatio))

	left := findLowRunLeft(white[:leftLimit], cfg.WhiteThreshold, minMarginWidth)
	right := findLowRunRight(white[rightStart:], cfg.WhiteThreshold, minMarginWidth)
	if right != nil {
		right.StartX += rightStart
		right.EndX += rightStart
	}
	center := findLowBand(white[centerStart:centerEnd], cfg.WhiteThreshold, centerMaxWidth)
	if center != nil {
		center.StartX += centerStart
		center.EndX += centerStart
	}

	return EdgeTextureResult{
		Width:  width,
		Height: height,
		Left:   left,
		Right:  right,
		Center: center,
		Notes: map[string]float64{
			"left_limit":      float64(leftLimit),
			"right_start":     float64(rightStart),
			"center_start":    float64(centerStart),
			"center_end":      float64(centerEnd),
			"white_threshold": cfg.WhiteThreshold,
		},
	}
}

func applyGamma(g *pixmap.Gray, gamma float64) *pixmap.Gray {
	if gamma == 1.0 {
		return g
	}
	inv := 1.0 / math.Max(gamma, 1e-6)
	var lut [256]uint8
	for i := range lut {
		v := math.Pow(float64(i)/255.0, inv) * 255.0
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	out := pixmap.NewGray(g.W, g.H)
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// blur5 is a separable 5-tap Gaussian ([1 4 6 4 1]/16) with reflected
// borders, matching the prototype's 5x5 kernel.
func blur5(g *pixmap.Gray) *pixmap.Gray {
	kernel := [5]int{1, 4, 6, 4, 1}
	w, h := g.W, g.H
	reflect := func(i, n int) int {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		return i
	}
	tmp := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += int(g.At(reflect(x+k, w), y)) * kernel[k+2]
			}
			tmp[y*w+x] = sum
		}
	}
	out := pixmap.NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += tmp[reflect(y+k, h)*w+x] * kernel[k+2]
			}
			out.Set(x, y, uint8((sum+128)/256))
		}
	}
	return out
}

// columnGradientStats runs a 3x3 Sobel over the plane and returns the
// per-column mean and variance of the gradient magnitude.
func columnGradientStats(g *pixmap.Gray) (mean, variance []float64) {
	w, h := g.W, g.H
	mean = make([]float64, w)
	variance = make([]float64, w)
	if w == 0 || h == 0 {
		return mean, variance
	}

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return float64(g.At(x, y))
	}

	sums := make([]float64, w)
	sumsSq := make([]float64, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag := math.Hypot(gx, gy)
			sums[x] += mag
			sumsSq[x] += mag * mag
		}
	}
	for x := 0; x < w; x++ {
		m := sums[x] / float64(h)
		mean[x] = m
		variance[x] = sumsSq[x]/float64(h) - m*m
	}
	return mean, variance
}

// findLowRunLeft detects a contiguous run of low scores starting at the
// left edge of the slice.
func findLowRunLeft(scores []float64, threshold float64, minWidth int) *MarginRegion {
	runEnd := 0
	for runEnd < len(scores) && scores[runEnd] <= threshold {
		runEnd++
	}
	if runEnd < minWidth {
		return nil
	}
	return lowRegion(scores[:runEnd], 0, runEnd-1, threshold)
}

// findLowRunRight detects a contiguous run of low scores ending at the
// right edge of the slice.
func findLowRunRight(scores []float64, threshold float64, minWidth int) *MarginRegion {
	runStart := len(scores) - 1
	for runStart >= 0 && scores[runStart] <= threshold {
		runStart--
	}
	runStart++
	if len(scores)-runStart < minWidth {
		return nil
	}
	return lowRegion(scores[runStart:], runStart, len(scores)-1, threshold)
}

// findLowBand picks the most confident interior run of low scores no wider
// than maxWidth.
func findLowBand(scores []float64, threshold float64, maxWidth int) *MarginRegion {
	var best *MarginRegion
	runStart := -1
	consider := func(start, end int) {
		width := end - start + 1
		if width > maxWidth {
			return
		}
		cand := lowRegion(scores[start:end+1], start, end, threshold)
		if best == nil || cand.Confidence > best.Confidence {
			best = cand
		}
	}
	for i, v := range scores {
		if v <= threshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			consider(runStart, i-1)
			runStart = -1
		}
	}
	if runStart >= 0 {
		consider(runStart, len(scores)-1)
	}
	return best
}

func lowRegion(segment []float64, start, end int, threshold float64) *MarginRegion {
	sum := 0.0
	for _, v := range segment {
		sum += v
	}
	mean := sum / float64(len(segment))
	conf := 1.0 - clampUnit(mean/(threshold+1e-5))
	return &MarginRegion{StartX: start, EndX: end, MeanScore: mean, Confidence: conf}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
