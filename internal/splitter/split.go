// Package splitter decides how a scanned manga spread should be cut into
// reader pages: left alone, trimmed as cover art, split at a located
// gutter, or split down the middle as a safe default. The pipeline is pure
// computation over in-memory pixel buffers; it performs no I/O and keeps
// no state between calls.
package splitter

import (
	"errors"
	"fmt"

	"github.com/local/mangasplit/internal/pixmap"
)

// ErrInvalidInput is returned for malformed inputs such as zero-area
// images. Every other outcome, including ambiguous content, is a result
// mode rather than an error.
var ErrInvalidInput = errors.New("invalid input image")

// Mode classifies the splitter outcome.
type Mode string

const (
	ModeSkip           Mode = "skip"
	ModeCoverTrim      Mode = "cover-trim"
	ModeSplit          Mode = "split"
	ModeFallbackCenter Mode = "fallback-center"
)

// SplitResult is the single output record of a splitter call. It is built
// once and not mutated afterwards. Pages hold zero, one, or two crops
// depending on the mode; for two-page modes the right page comes first.
type SplitResult struct {
	Mode              Mode
	SplitX            int
	HasSplitX         bool
	Confidence        float64
	ContentWidthRatio float64
	Pages             []*pixmap.Image
	Metadata          map[string]any
}

// Split runs the full pipeline on one spread image.
func Split(img *pixmap.Image, cfg SplitConfig) (*SplitResult, error) {
	if img == nil || img.W <= 0 || img.H <= 0 {
		return nil, fmt.Errorf("%w: zero-area image", ErrInvalidInput)
	}
	if img.C != 1 && img.C != 3 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidInput, img.C)
	}

	width, height := img.W, img.H

	if float64(width) < float64(height)*cfg.MinAspectRatio {
		return &SplitResult{
			Mode:     ModeSkip,
			Metadata: map[string]any{"reason": "aspect_ratio"},
		}, nil
	}

	mask := BuildForegroundMask(img)
	foregroundRatio := mask.Mean()

	if foregroundRatio < cfg.MinForegroundRatio || !mask.Any() {
		return &SplitResult{
			Mode: ModeSkip,
			Metadata: map[string]any{
				"reason":           "no_foreground",
				"foreground_ratio": foregroundRatio,
			},
		}, nil
	}

	content := MeasureContent(mask)
	metadata := map[string]any{
		"foreground_ratio": foregroundRatio,
		"bbox": map[string]any{
			"x":      content.BBox.X0,
			"y":      content.BBox.Y0,
			"width":  content.BBox.Dx(),
			"height": content.BBox.Dy(),
		},
	}

	padX := paddingPixels(cfg.PaddingRatio, width)
	padY := paddingPixels(cfg.PaddingRatio, height)

	if content.ContentWidthRatio < cfg.CoverContentRatio && content.BBoxHeightRatio > 0.8 {
		crop := cropWithPadding(img, content.BBox, padX, padY)
		metadata["splitMode"] = string(ModeCoverTrim)
		metadata["content_width_ratio"] = content.ContentWidthRatio
		metadata["bbox_height_ratio"] = content.BBoxHeightRatio
		return &SplitResult{
			Mode:              ModeCoverTrim,
			Confidence:        1.0,
			ContentWidthRatio: content.ContentWidthRatio,
			Pages:             []*pixmap.Image{crop},
			Metadata:          metadata,
		}, nil
	}

	outcome := LocateSplit(mask, cfg)
	if outcome.Found {
		metadata["projection_imbalance"] = outcome.Imbalance
		metadata["projection_edge_margin"] = outcome.EdgeMargin
		metadata["projection_total_mass"] = outcome.TotalMass
	}

	splitX := outcome.SplitX
	confidence := outcome.Confidence
	mode := ModeSplit
	if !outcome.Found || confidence < cfg.ConfidenceThreshold {
		splitX = width / 2
		mode = ModeFallbackCenter
		if confidence < 0 {
			confidence = 0
		}
	}

	pages := extractPages(img, mask, splitX, padX, padY)
	metadata["splitMode"] = string(mode)
	metadata["split_x"] = splitX
	metadata["confidence"] = confidence
	metadata["content_width_ratio"] = content.ContentWidthRatio

	return &SplitResult{
		Mode:              mode,
		SplitX:            splitX,
		HasSplitX:         true,
		Confidence:        confidence,
		ContentWidthRatio: content.ContentWidthRatio,
		Pages:             pages,
		Metadata:          metadata,
	}, nil
}

func paddingPixels(ratio float64, dim int) int {
	p := int(ratio * float64(dim))
	if p < 1 {
		p = 1
	}
	return p
}
