package splitter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/local/mangasplit/internal/pixmap"
)

// makeCanvas creates a white BGR canvas.
func makeCanvas(w, h int) *pixmap.Image {
	img := pixmap.NewImage(w, h, 3)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// fillRect paints the half-open region [x0,x1)x[y0,y1) with a uniform
// value on all channels.
func fillRect(img *pixmap.Image, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetBGR(x, y, v, v, v)
		}
	}
}

// meanColumns averages pixel values over the column range [x0,x1) of a page.
func meanColumns(img *pixmap.Image, x0, x1 int) float64 {
	sum, n := 0.0, 0
	for y := 0; y < img.H; y++ {
		for x := x0; x < x1; x++ {
			b, g, r := img.BGR(x, y)
			sum += float64(b) + float64(g) + float64(r)
			n += 3
		}
	}
	return sum / float64(n)
}

func TestSplitDetectsDoublePageAndOutputsRightFirst(t *testing.T) {
	img := makeCanvas(800, 400)
	fillRect(img, 40, 40, 360, 360, 0)
	fillRect(img, 440, 40, 760, 360, 0)

	result, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if result.Mode != ModeSplit {
		t.Fatalf("Expected mode split, got %s", result.Mode)
	}
	if !result.HasSplitX {
		t.Fatal("Expected a split column")
	}
	if result.SplitX < 360 || result.SplitX > 460 {
		t.Errorf("Expected split_x within gutter [360,460], got %d", result.SplitX)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(result.Pages))
	}

	right, left := result.Pages[0], result.Pages[1]
	// Right page comes first for RTL ordering and keeps ink near its
	// outer edge.
	if m := meanColumns(right, right.W-20, right.W); m >= 240 {
		t.Errorf("Right page outer edge should contain content, mean %v", m)
	}
	if m := meanColumns(left, 0, 20); m >= 240 {
		t.Errorf("Left page outer edge should contain content, mean %v", m)
	}
}

func TestSplitIdentifiesCoverAndTrims(t *testing.T) {
	img := makeCanvas(900, 420)
	fillRect(img, 370, 30, 530, 390, 30)

	result, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if result.Mode != ModeCoverTrim {
		t.Fatalf("Expected mode cover-trim, got %s", result.Mode)
	}
	if result.HasSplitX {
		t.Error("Cover trim should not report a split column")
	}
	if result.Confidence != 1.0 {
		t.Errorf("Expected confidence 1.0, got %v", result.Confidence)
	}
	if len(result.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(result.Pages))
	}

	trimmed := result.Pages[0]
	if float64(trimmed.W) >= float64(img.W)*0.6 {
		t.Errorf("Trimmed width %d should be well under canvas width %d", trimmed.W, img.W)
	}
	if float64(trimmed.H) < float64(img.H)*0.75 {
		t.Errorf("Trimmed height %d should retain most of canvas height %d", trimmed.H, img.H)
	}
}

func TestSplitLowConfidenceFallsBackToCenter(t *testing.T) {
	img := makeCanvas(820, 400)
	fillRect(img, 40, 40, 780, 360, 0)

	result, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if result.Mode != ModeFallbackCenter {
		t.Fatalf("Expected mode fallback-center, got %s", result.Mode)
	}
	if result.SplitX != img.W/2 {
		t.Errorf("Expected split_x %d, got %d", img.W/2, result.SplitX)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(result.Pages))
	}

	right, left := result.Pages[0], result.Pages[1]
	if diff := right.W - left.W; diff < -4 || diff > 4 {
		t.Errorf("Fallback halves should be near-equal width, got %d and %d", right.W, left.W)
	}
}

func TestSplitSkipsNarrowAspectRatio(t *testing.T) {
	img := makeCanvas(400, 400)
	fillRect(img, 40, 40, 360, 360, 0)

	result, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if result.Mode != ModeSkip {
		t.Fatalf("Expected mode skip, got %s", result.Mode)
	}
	if reason := result.Metadata["reason"]; reason != "aspect_ratio" {
		t.Errorf("Expected reason aspect_ratio, got %v", reason)
	}
	if len(result.Pages) != 0 {
		t.Errorf("Expected no pages, got %d", len(result.Pages))
	}
}

func TestSplitSkipsBlankSpread(t *testing.T) {
	img := makeCanvas(800, 400)

	result, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if result.Mode != ModeSkip {
		t.Fatalf("Expected mode skip, got %s", result.Mode)
	}
	if reason := result.Metadata["reason"]; reason != "no_foreground" {
		t.Errorf("Expected reason no_foreground, got %v", reason)
	}
}

func TestSplitRejectsInvalidInput(t *testing.T) {
	if _, err := Split(nil, DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil image, got %v", err)
	}
	if _, err := Split(pixmap.NewImage(0, 0, 3), DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero-area image, got %v", err)
	}
	if _, err := Split(pixmap.NewImage(10, 10, 2), DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for 2-channel image, got %v", err)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	img := makeCanvas(800, 400)
	fillRect(img, 40, 40, 360, 360, 0)
	fillRect(img, 440, 40, 760, 360, 0)

	first, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Split(img, DefaultConfig())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Mode != second.Mode || first.SplitX != second.SplitX || first.Confidence != second.Confidence {
		t.Fatalf("Runs disagree: %v/%d/%v vs %v/%d/%v",
			first.Mode, first.SplitX, first.Confidence,
			second.Mode, second.SplitX, second.Confidence)
	}
	if len(first.Pages) != len(second.Pages) {
		t.Fatalf("Page counts differ: %d vs %d", len(first.Pages), len(second.Pages))
	}
	for i := range first.Pages {
		if !bytes.Equal(first.Pages[i].Pix, second.Pages[i].Pix) {
			t.Errorf("Page %d differs between runs", i)
		}
	}
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	img := makeCanvas(800, 400)
	fillRect(img, 40, 40, 360, 360, 0)
	fillRect(img, 440, 40, 760, 360, 0)
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	if _, err := Split(img, DefaultConfig()); err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("Split mutated the input image")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	bad := DefaultConfig()
	bad.MinAspectRatio = 0.8
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for aspect ratio below 1.0")
	}

	bad = DefaultConfig()
	bad.EdgeExclusionRatio = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for ratio above 1")
	}
}
