package margin

import (
	"math"

	"github.com/local/mangasplit/internal/pixmap"
)

// ColorClusterConfig tunes the clustering margin detector.
type ColorClusterConfig struct {
	SideBandRatio            float64
	CenterBandRatio          float64
	SampleStep               int
	EntropyBins              int
	EntropyWindow            int
	KClusters                int
	StdMultiplier            float64
	BackgroundScoreThreshold float64
	MaxCenterRatio           float64
	MinMarginRatio           float64
}

// DefaultColorClusterConfig returns the prototype's tuned defaults.
func DefaultColorClusterConfig() ColorClusterConfig {
	return ColorClusterConfig{
		SideBandRatio:            0.08,
		CenterBandRatio:          0.04,
		SampleStep:               4,
		EntropyBins:              32,
		EntropyWindow:            15,
		KClusters:                2,
		StdMultiplier:            0.75,
		BackgroundScoreThreshold: 0.6,
		MaxCenterRatio:           0.06,
		MinMarginRatio:           0.025,
	}
}

// BandStats summarizes the background cluster found inside one band.
type BandStats struct {
	Label         string  `json:"label"`
	MeanL         float64 `json:"mean_L"`
	StdL          float64 `json:"std_L"`
	EntropyL      float64 `json:"entropy_L"`
	WeightScore   float64 `json:"weight_score"`
	CoverageRatio float64 `json:"coverage_ratio"`
	Threshold     float64 `json:"threshold"`
}

// ClusterResult reports margin spans derived from adaptive, per-band
// thresholds.
type ClusterResult struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Left       *MarginRegion `json:"left_margin"`
	Right      *MarginRegion `json:"right_margin"`
	Center     *MarginRegion `json:"center_band"`
	LeftBand   *BandStats    `json:"left_band_stats"`
	RightBand  *BandStats    `json:"right_band_stats"`
	CenterBand *BandStats    `json:"center_band_stats"`
}

// AnalyzeClusters derives adaptive background thresholds by clustering the
// Lab pixels of the side and gutter bands, then scores columns against the
// background model. High scores mark margin-like columns.
func AnalyzeClusters(img *pixmap.Image, cfg ColorClusterConfig) ClusterResult {
	width, height := img.W, img.H
	lab := toLab(img)

	leftWidth := maxInt(1, int(float64(width)*cfg.SideBandRatio))
	rightStart := maxInt(0, width-leftWidth)
	centerHalf := maxInt(1, int(float64(width)*cfg.CenterBandRatio/2))
	centerStart := maxInt(0, width/2-centerHalf)
	centerEnd := minInt(width, width/2+centerHalf)

	leftStats := analyzeBand(lab, 0, leftWidth, cfg, "left")
	rightStats := analyzeBand(lab, rightStart, width, cfg, "right")
	centerStats := analyzeBand(lab, centerStart, centerEnd, cfg, "center")

	lPlane := lab.lPlane()
	entropy := columnEntropy(lPlane, cfg.EntropyWindow, cfg.EntropyBins)

	leftScores := computeScores(lab, entropy, leftStats, 0, leftWidth)
	rightScores := computeScores(lab, entropy, rightStats, rightStart, width)
	centerScores := computeScores(lab, entropy, centerStats, centerStart, centerEnd)

	minMarginWidth := maxInt(3, int(float64(width)*cfg.MinMarginRatio))
	maxCenterWidth := maxInt(3, int(float64(width)*cfg.MaxCenterRatio))

	left := findHighRunLeft(leftScores, cfg.BackgroundScoreThreshold, minMarginWidth)
	right := findHighRunRight(rightScores, cfg.BackgroundScoreThreshold, minMarginWidth)
	if right != nil {
		right.StartX += rightStart
		right.EndX += rightStart
	}
	center := findHighBand(centerScores, cfg.BackgroundScoreThreshold, maxCenterWidth)
	if center != nil {
		center.StartX += centerStart
		center.EndX += centerStart
	}

	return ClusterResult{
		Width:      width,
		Height:     height,
		Left:       left,
		Right:      right,
		Center:     center,
		LeftBand:   leftStats,
		RightBand:  rightStats,
		CenterBand: centerStats,
	}
}

// labImage stores float Lab triplets row-major, L scaled to [0,255] like
// OpenCV's 8-bit Lab representation.
type labImage struct {
	w, h int
	pix  []float64 // 3 per pixel: L, a, b
}

func (l *labImage) at(x, y int) (float64, float64, float64) {
	o := (y*l.w + x) * 3
	return l.pix[o], l.pix[o+1], l.pix[o+2]
}

func (l *labImage) lPlane() *pixmap.Gray {
	out := pixmap.NewGray(l.w, l.h)
	for i := 0; i < l.w*l.h; i++ {
		v := l.pix[i*3]
		if v > 255 {
			v = 255
		}
		if v < 0 {
			v = 0
		}
		out.Pix[i] = uint8(v)
	}
	return out
}

func toLab(img *pixmap.Image) *labImage {
	out := &labImage{w: img.W, h: img.H, pix: make([]float64, img.W*img.H*3)}
	labF := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787*t + 16.0/116.0
	}
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			b8, g8, r8 := img.BGR(x, y)
			r := float64(r8) / 255.0
			g := float64(g8) / 255.0
			b := float64(b8) / 255.0

			xyzX := (0.412453*r + 0.357580*g + 0.180423*b) / 0.950456
			xyzY := 0.212671*r + 0.715160*g + 0.072169*b
			xyzZ := (0.019334*r + 0.119193*g + 0.950227*b) / 1.088754

			fx, fy, fz := labF(xyzX), labF(xyzY), labF(xyzZ)
			lVal := 116.0*fy - 16.0
			if lVal < 0 {
				lVal = 0
			}
			o := (y*img.W + x) * 3
			out.pix[o] = lVal * 255.0 / 100.0
			out.pix[o+1] = 500.0*(fx-fy) + 128.0
			out.pix[o+2] = 200.0*(fy-fz) + 128.0
		}
	}
	return out
}

// analyzeBand clusters the band's Lab pixels (k-means, deterministic
// farthest-point seeding) and picks the flattest cluster as background:
// lowest weight score 0.6*std^2 + 0.4*entropy, larger coverage on ties.
func analyzeBand(lab *labImage, start, end int, cfg ColorClusterConfig, label string) *BandStats {
	if start >= end {
		return nil
	}

	var samples [][3]float64
	step := cfg.SampleStep
	if step < 1 {
		step = 1
	}
	for y := 0; y < lab.h; y += step {
		for x := start; x < end; x += step {
			l, a, b := lab.at(x, y)
			samples = append(samples, [3]float64{l, a, b})
		}
	}
	if len(samples) < cfg.KClusters {
		samples = samples[:0]
		for y := 0; y < lab.h; y++ {
			for x := start; x < end; x++ {
				l, a, b := lab.at(x, y)
				samples = append(samples, [3]float64{l, a, b})
			}
		}
	}

	centers := kmeans(samples, cfg.KClusters)

	// Assign every band pixel to the nearest center and accumulate the L
	// distribution per cluster.
	type clusterAcc struct {
		values []float64
	}
	accs := make([]clusterAcc, len(centers))
	total := 0
	for y := 0; y < lab.h; y++ {
		for x := start; x < end; x++ {
			l, a, b := lab.at(x, y)
			best, bestDist := 0, math.Inf(1)
			for i, c := range centers {
				d := sqDist3(l, a, b, c)
				if d < bestDist {
					bestDist = d
					best = i
				}
			}
			accs[best].values = append(accs[best].values, l)
			total++
		}
	}

	var bg *BandStats
	for _, acc := range accs {
		if len(acc.values) == 0 {
			continue
		}
		mean, std := meanStd(acc.values)
		ent := entropyOfValues(acc.values, cfg.EntropyBins)
		weight := 0.6*std*std + 0.4*ent
		coverage := float64(len(acc.values)) / float64(total)
		better := bg == nil ||
			weight < bg.WeightScore ||
			(weight == bg.WeightScore && coverage > bg.CoverageRatio)
		if better {
			bg = &BandStats{
				Label:         label,
				MeanL:         mean,
				StdL:          std,
				EntropyL:      ent,
				WeightScore:   weight,
				CoverageRatio: coverage,
			}
		}
	}
	if bg != nil {
		bg.Threshold = bg.MeanL + cfg.StdMultiplier*bg.StdL
	}
	return bg
}

// computeScores rates each band column against the background model:
// closeness of the column mean to the adaptive threshold, similarity of
// the column deviation to the background deviation, and flat texture.
func computeScores(lab *labImage, entropy []float64, stats *BandStats, start, end int) []float64 {
	n := end - start
	scores := make([]float64, n)
	if stats == nil || n <= 0 {
		return scores
	}

	entropySlice := normalize(entropy[start:end])
	for i := 0; i < n; i++ {
		x := start + i
		var values []float64
		for y := 0; y < lab.h; y++ {
			l, _, _ := lab.at(x, y)
			values = append(values, l)
		}
		mean, std := meanStd(values)

		diff := math.Abs(mean - stats.Threshold)
		gauss := math.Exp(-0.5 * math.Pow(diff/(stats.StdL+1e-3), 2))
		stdFactor := math.Exp(-0.5 * math.Pow((std-stats.StdL)/(stats.StdL+1e-3), 2))
		scores[i] = clampUnit(0.6*gauss + 0.2*stdFactor + 0.2*(1.0-entropySlice[i]))
	}
	return scores
}

// kmeans runs Lloyd iterations with deterministic farthest-point seeding,
// standing in for the prototype's k-means++ clustering.
func kmeans(samples [][3]float64, k int) [][3]float64 {
	if len(samples) == 0 || k <= 0 {
		return nil
	}
	if k > len(samples) {
		k = len(samples)
	}

	centers := make([][3]float64, 0, k)
	centers = append(centers, samples[0])
	for len(centers) < k {
		bestIdx, bestDist := 0, -1.0
		for i, s := range samples {
			d := math.Inf(1)
			for _, c := range centers {
				if dd := sqDist3(s[0], s[1], s[2], c); dd < d {
					d = dd
				}
			}
			if d > bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		centers = append(centers, samples[bestIdx])
	}

	assign := make([]int, len(samples))
	for iter := 0; iter < 30; iter++ {
		changed := false
		for i, s := range samples {
			best, bestDist := 0, math.Inf(1)
			for j, c := range centers {
				if d := sqDist3(s[0], s[1], s[2], c); d < bestDist {
					bestDist = d
					best = j
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([][4]float64, len(centers))
		for i, s := range samples {
			c := assign[i]
			sums[c][0] += s[0]
			sums[c][1] += s[1]
			sums[c][2] += s[2]
			sums[c][3]++
		}
		for j := range centers {
			if sums[j][3] > 0 {
				centers[j] = [3]float64{
					sums[j][0] / sums[j][3],
					sums[j][1] / sums[j][3],
					sums[j][2] / sums[j][3],
				}
			}
		}
		if !changed {
			break
		}
	}
	return centers
}

func sqDist3(l, a, b float64, c [3]float64) float64 {
	dl, da, db := l-c[0], a-c[1], b-c[2]
	return dl*dl + da*da + db*db
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	varSum := 0.0
	for _, v := range values {
		d := v - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(values)))
}

func entropyOfValues(values []float64, bins int) float64 {
	if len(values) == 0 || bins <= 0 {
		return 0
	}
	hist := make([]int, bins)
	for _, v := range values {
		b := int(v * float64(bins) / 255.0)
		if b < 0 {
			b = 0
		}
		if b >= bins {
			b = bins - 1
		}
		hist[b]++
	}
	total := float64(len(values))
	e := 0.0
	for _, n := range hist {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		e -= p * math.Log2(p+1e-12)
	}
	return e
}

// findHighRunLeft mirrors findLowRunLeft with the score sense inverted:
// background columns score high here.
func findHighRunLeft(scores []float64, threshold float64, minWidth int) *MarginRegion {
	runEnd := 0
	for runEnd < len(scores) && scores[runEnd] >= threshold {
		runEnd++
	}
	if runEnd < minWidth {
		return nil
	}
	return highRegion(scores[:runEnd], 0, runEnd-1)
}

func findHighRunRight(scores []float64, threshold float64, minWidth int) *MarginRegion {
	runStart := len(scores) - 1
	for runStart >= 0 && scores[runStart] >= threshold {
		runStart--
	}
	runStart++
	if len(scores)-runStart < minWidth {
		return nil
	}
	return highRegion(scores[runStart:], runStart, len(scores)-1)
}

func findHighBand(scores []float64, threshold float64, maxWidth int) *MarginRegion {
	var best *MarginRegion
	runStart := -1
	consider := func(start, end int) {
		width := end - start + 1
		if width > maxWidth {
			return
		}
		cand := highRegion(scores[start:end+1], start, end)
		if best == nil || cand.Confidence > best.Confidence {
			best = cand
		}
	}
	for i, v := range scores {
		if v >= threshold {
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

func highRegion(segment []float64, start, end int) *MarginRegion {
	sum := 0.0
	for _, v := range segment {
		sum += v
	}
	mean := sum / float64(len(segment))
	return &MarginRegion{StartX: start, EndX: end, MeanScore: mean, Confidence: mean}
}
