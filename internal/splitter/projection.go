package splitter

import (
	"math"

	"github.com/local/mangasplit/internal/pixmap"
)

// ProjectionOutcome carries the gutter candidate found by the column
// projection analysis, plus the diagnostics the batch report exposes.
type ProjectionOutcome struct {
	SplitX     int
	Found      bool
	Confidence float64
	Imbalance  float64
	EdgeMargin int
	TotalMass  float64
}

const projEps = 1e-6

// LocateSplit finds the most plausible vertical gutter column. It projects
// ink mass per column, smooths the curve, and scores every local minimum
// inside the edge-excluded window by how evenly it divides the total mass
// (balance) and how deep the valley is (depth): score = balance +
// 0.1*depth, lower wins, first index on ties. Degenerate inputs always
// report no candidate rather than forcing a split.
func LocateSplit(mask *pixmap.Mask, cfg SplitConfig) ProjectionOutcome {
	width, height := mask.W, mask.H
	if width == 0 || height == 0 {
		return ProjectionOutcome{}
	}

	projection := make([]float64, width)
	for y := 0; y < height; y++ {
		row := mask.Bits[y*width : (y+1)*width]
		for x, on := range row {
			if on {
				projection[x]++
			}
		}
	}

	maxRaw := 0.0
	for _, v := range projection {
		if v > maxRaw {
			maxRaw = v
		}
	}
	if maxRaw <= 0 {
		return ProjectionOutcome{}
	}

	sigma := math.Max(float64(width)/200.0, 1.0)
	smoothed := gaussianSmooth1D(projection, sigma)

	edgeMargin := int(float64(width) * cfg.EdgeExclusionRatio)
	if edgeMargin < 5 {
		edgeMargin = 5
	}
	if edgeMargin*2 >= width {
		return ProjectionOutcome{}
	}

	start, end := edgeMargin, width-edgeMargin
	if start >= end {
		return ProjectionOutcome{}
	}

	candidates := collectValleys(smoothed, start, end)
	if len(candidates) == 0 {
		// No strict local minimum; fall back to the global minimum of
		// the search window.
		minIdx := start
		for i := start + 1; i < end; i++ {
			if smoothed[i] < smoothed[minIdx] {
				minIdx = i
			}
		}
		candidates = []int{minIdx}
	}

	cumulative := make([]float64, width)
	sum := 0.0
	for i, v := range smoothed {
		sum += v
		cumulative[i] = sum
	}
	total := sum

	maxVal := 0.0
	for i := start; i < end; i++ {
		if smoothed[i] > maxVal {
			maxVal = smoothed[i]
		}
	}

	bestIdx := candidates[0]
	bestScore := math.Inf(1)
	for _, idx := range candidates {
		valley := smoothed[idx]
		leftRatio := cumulative[idx] / (total + projEps)
		balance := math.Abs(leftRatio - 0.5)
		depth := valley / (maxVal + projEps)
		score := balance + 0.1*depth
		if score < bestScore {
			bestScore = score
			bestIdx = idx
		}
	}

	confidence := (maxVal - smoothed[bestIdx]) / (maxVal + projEps)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	leftMass := cumulative[bestIdx]
	rightMass := total - leftMass

	return ProjectionOutcome{
		SplitX:     bestIdx,
		Found:      true,
		Confidence: confidence,
		Imbalance:  math.Abs(leftMass-rightMass) / (total + projEps),
		EdgeMargin: edgeMargin,
		TotalMass:  total,
	}
}

// gaussianSmooth1D convolves with a normalized Gaussian kernel of radius
// ceil(3*sigma), replicating the border samples.
func gaussianSmooth1D(data []float64, sigma float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	radius := int(math.Ceil(sigma * 3.0))
	if radius <= 0 {
		out := make([]float64, n)
		copy(out, data)
		return out
	}

	kernel := make([]float64, 2*radius+1)
	sigmaSq := 2.0 * sigma * sigma
	kernelSum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / sigmaSq)
		kernel[i+radius] = v
		kernelSum += v
	}
	for i := range kernel {
		kernel[i] /= kernelSum
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := 0.0
		for k, kv := range kernel {
			j := i + k - radius
			if j < 0 {
				j = 0
			}
			if j > n-1 {
				j = n - 1
			}
			acc += data[j] * kv
		}
		out[i] = acc
	}
	return out
}

// collectValleys returns the indices inside [start,end) whose value is not
// above either neighbor.
func collectValleys(data []float64, start, end int) []int {
	var valleys []int
	if len(data) < 3 {
		return valleys
	}
	lo := start
	if lo < 1 {
		lo = 1
	}
	hi := end
	if hi > len(data)-1 {
		hi = len(data) - 1
	}
	for i := lo; i < hi; i++ {
		if data[i] <= data[i-1] && data[i] <= data[i+1] {
			valleys = append(valleys, i)
		}
	}
	return valleys
}
