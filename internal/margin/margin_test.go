package margin

import (
	"testing"

	"github.com/local/mangasplit/internal/pixmap"
)

func whiteCanvas(w, h int) *pixmap.Image {
	img := pixmap.NewImage(w, h, 3)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestNormalize(t *testing.T) {
	out := normalize([]float64{2, 4, 6})
	if out[0] != 0 || out[1] != 0.5 || out[2] != 1 {
		t.Errorf("Expected [0 0.5 1], got %v", out)
	}

	flat := normalize([]float64{3, 3, 3})
	for i, v := range flat {
		if v != 0 {
			t.Errorf("Constant input should map to zeros, got %v at %d", v, i)
		}
	}

	if got := normalize(nil); len(got) != 0 {
		t.Errorf("Empty input should stay empty, got %v", got)
	}
}

func TestColumnEntropyUniformPlane(t *testing.T) {
	g := pixmap.NewGray(40, 20)
	for i := range g.Pix {
		g.Pix[i] = 200
	}
	ent := columnEntropy(g, 15, 32)
	for x, e := range ent {
		if e > 1e-9 || e < -1e-9 {
			t.Errorf("Uniform plane should have near-zero entropy, got %v at column %d", e, x)
		}
	}
}

func TestFindLowRuns(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.1, 0.9, 0.9, 0.9, 0.2, 0.1, 0.1}

	left := findLowRunLeft(scores, 0.45, 3)
	if left == nil || left.StartX != 0 || left.EndX != 2 {
		t.Errorf("Expected left run [0,2], got %+v", left)
	}
	if findLowRunLeft(scores, 0.45, 4) != nil {
		t.Error("Run shorter than minWidth should be rejected")
	}

	right := findLowRunRight(scores, 0.45, 3)
	if right == nil || right.StartX != 6 || right.EndX != 8 {
		t.Errorf("Expected right run [6,8], got %+v", right)
	}

	band := findLowBand([]float64{0.9, 0.1, 0.1, 0.9, 0.3, 0.9}, 0.45, 4)
	if band == nil {
		t.Fatal("Expected an interior band")
	}
	// The deeper run wins on confidence.
	if band.StartX != 1 || band.EndX != 2 {
		t.Errorf("Expected band [1,2], got %+v", band)
	}
}

func TestFindHighRuns(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.9, 0.1, 0.1, 0.7, 0.8, 0.9}

	left := findHighRunLeft(scores, 0.6, 3)
	if left == nil || left.StartX != 0 || left.EndX != 2 {
		t.Errorf("Expected left run [0,2], got %+v", left)
	}
	right := findHighRunRight(scores, 0.6, 3)
	if right == nil || right.StartX != 5 || right.EndX != 7 {
		t.Errorf("Expected right run [5,7], got %+v", right)
	}
	if right != nil && right.Confidence != right.MeanScore {
		t.Error("High-run confidence should equal the mean score")
	}
}

func TestKMeansSeparatesClusters(t *testing.T) {
	var samples [][3]float64
	for i := 0; i < 20; i++ {
		samples = append(samples, [3]float64{10 + float64(i%3), 128, 128})
	}
	for i := 0; i < 20; i++ {
		samples = append(samples, [3]float64{240 - float64(i%3), 128, 128})
	}

	centers := kmeans(samples, 2)
	if len(centers) != 2 {
		t.Fatalf("Expected 2 centers, got %d", len(centers))
	}
	lo, hi := centers[0][0], centers[1][0]
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo > 50 || hi < 200 {
		t.Errorf("Centers should straddle the groups, got L values %v and %v", lo, hi)
	}
}

func TestMeanStdAndEntropy(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 6, 8})
	if mean != 5 {
		t.Errorf("Expected mean 5, got %v", mean)
	}
	if std <= 2 || std >= 2.5 {
		t.Errorf("Expected std near 2.24, got %v", std)
	}

	if e := entropyOfValues([]float64{100, 100, 100}, 32); e > 1e-9 || e < -1e-9 {
		t.Errorf("Identical values should have near-zero entropy, got %v", e)
	}
	if e := entropyOfValues([]float64{0, 50, 100, 150, 200, 250}, 32); e < 2 {
		t.Errorf("Spread values should have high entropy, got %v", e)
	}
}

func TestAnalyzeEdgesUniformCanvas(t *testing.T) {
	img := whiteCanvas(400, 100)
	result := AnalyzeEdges(img, DefaultEdgeTextureConfig())

	if result.Width != 400 || result.Height != 100 {
		t.Errorf("Expected 400x100 dimensions, got %dx%d", result.Width, result.Height)
	}
	if result.Left != nil || result.Right != nil || result.Center != nil {
		t.Error("Uniform canvas should yield no margin regions")
	}
}

func TestAnalyzeEdgesFindsTexturedLeftBand(t *testing.T) {
	img := whiteCanvas(400, 100)
	// Busy 2x2 checkerboard on the left; the detector marks the textured
	// band and leaves the flat remainder alone.
	for y := 0; y < 100; y++ {
		for x := 0; x < 60; x++ {
			if (x/2+y/2)%2 == 0 {
				img.SetBGR(x, y, 0, 0, 0)
			}
		}
	}

	result := AnalyzeEdges(img, DefaultEdgeTextureConfig())
	if result.Left == nil {
		t.Fatal("Expected a left region over the textured band")
	}
	if result.Left.StartX != 0 {
		t.Errorf("Expected region starting at column 0, got %d", result.Left.StartX)
	}
	if result.Left.EndX < 30 {
		t.Errorf("Expected region to cover most of the band, got end %d", result.Left.EndX)
	}
	if result.Left.Confidence <= 0 || result.Left.Confidence > 1 {
		t.Errorf("Confidence out of range: %v", result.Left.Confidence)
	}
}

func TestAnalyzeClustersFindsDarkLeftMargin(t *testing.T) {
	img := whiteCanvas(400, 120)
	// Uniform dark strip spanning the whole left side band.
	for y := 0; y < 120; y++ {
		for x := 0; x < 32; x++ {
			img.SetBGR(x, y, 20, 20, 20)
		}
	}

	result := AnalyzeClusters(img, DefaultColorClusterConfig())
	if result.Left == nil {
		t.Fatal("Expected a left margin over the dark strip")
	}
	if result.Left.StartX != 0 {
		t.Errorf("Expected margin starting at column 0, got %d", result.Left.StartX)
	}
	if result.Left.Confidence <= 0.6 {
		t.Errorf("Uniform strip should score confidently, got %v", result.Left.Confidence)
	}

	if result.LeftBand == nil || result.RightBand == nil {
		t.Fatal("Expected band statistics for both sides")
	}
	if result.LeftBand.MeanL >= result.RightBand.MeanL {
		t.Errorf("Dark band should have lower L than white band: %v vs %v",
			result.LeftBand.MeanL, result.RightBand.MeanL)
	}
	if result.LeftBand.Label != "left" || result.RightBand.Label != "right" {
		t.Errorf("Band labels wrong: %q and %q", result.LeftBand.Label, result.RightBand.Label)
	}
}

func TestToLabExtremes(t *testing.T) {
	img := pixmap.NewImage(2, 1, 3)
	img.SetBGR(0, 0, 0, 0, 0)
	img.SetBGR(1, 0, 255, 255, 255)

	lab := toLab(img)
	lBlack, _, _ := lab.at(0, 0)
	lWhite, _, _ := lab.at(1, 0)
	if lBlack > 5 {
		t.Errorf("Black should map near L=0, got %v", lBlack)
	}
	if lWhite < 250 {
		t.Errorf("White should map near L=255, got %v", lWhite)
	}
}
