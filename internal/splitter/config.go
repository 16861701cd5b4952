package splitter

import "fmt"

// SplitConfig holds the tuned thresholds for the spread splitter. It is a
// value type; callers copy it and the pipeline never mutates it.
type SplitConfig struct {
	// MinAspectRatio rejects inputs narrower than height*ratio outright.
	MinAspectRatio float64
	// PaddingRatio is the safety padding applied to crops, per axis.
	PaddingRatio float64
	// ConfidenceThreshold gates acceptance of a located gutter.
	ConfidenceThreshold float64
	// CoverContentRatio is the maximum content width ratio for cover art.
	CoverContentRatio float64
	// EdgeExclusionRatio excludes outer columns from the gutter search.
	EdgeExclusionRatio float64
	// MinForegroundRatio skips images with less ink coverage than this.
	MinForegroundRatio float64
}

// DefaultConfig returns the production threshold set.
func DefaultConfig() SplitConfig {
	return SplitConfig{
		MinAspectRatio:      1.2,
		PaddingRatio:        0.015,
		ConfidenceThreshold: 0.1,
		CoverContentRatio:   0.45,
		EdgeExclusionRatio:  0.12,
		MinForegroundRatio:  0.01,
	}
}

// Validate checks the invariants: every ratio in [0,1] and an aspect
// threshold of at least 1.0.
func (c SplitConfig) Validate() error {
	if c.MinAspectRatio < 1.0 {
		return fmt.Errorf("min aspect ratio must be >= 1.0, got %v", c.MinAspectRatio)
	}
	ratios := map[string]float64{
		"padding_ratio":        c.PaddingRatio,
		"confidence_threshold": c.ConfidenceThreshold,
		"cover_content_ratio":  c.CoverContentRatio,
		"edge_exclusion_ratio": c.EdgeExclusionRatio,
		"min_foreground_ratio": c.MinForegroundRatio,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	return nil
}
