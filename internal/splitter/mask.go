package splitter

import "github.com/local/mangasplit/internal/pixmap"

// BuildForegroundMask converts a scan into a boolean ink mask. The stage
// order is fixed: luminance, 5x5 Gaussian blur, CLAHE (clip 2.0, 8x8
// tiles), inverted Otsu threshold, then a 5x5 morphological open and close
// to drop speckle and heal small gaps.
func BuildForegroundMask(img *pixmap.Image) *pixmap.Mask {
	gray := img.Luminance()
	blurred := gaussianBlur5(gray)
	equalized := clahe(blurred, 2.0, 8, 8)

	thresh := otsuThreshold(equalized)
	mask := pixmap.NewMask(gray.W, gray.H)
	for i, v := range equalized.Pix {
		// Inverted sense: ink (dark) is foreground.
		mask.Bits[i] = v <= thresh
	}

	opened := erode5(mask)
	opened = dilate5(opened)
	closed := dilate5(opened)
	closed = erode5(closed)
	return closed
}

// gauss5 is the fixed 5-tap kernel OpenCV selects for a 5x5 blur with
// kernel-determined sigma: [1 4 6 4 1] / 16, applied separably.
var gauss5 = [5]int{1, 4, 6, 4, 1}

// reflect101 mirrors an out-of-range index without repeating the border
// sample (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func gaussianBlur5(g *pixmap.Gray) *pixmap.Gray {
	w, h := g.W, g.H
	tmp := make([]int, w*h)
	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += int(g.At(reflect101(x+k, w), y)) * gauss5[k+2]
			}
			tmp[y*w+x] = sum
		}
	}
	// Vertical pass with a single rounded division at the end.
	out := pixmap.NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += tmp[reflect101(y+k, h)*w+x] * gauss5[k+2]
			}
			out.Set(x, y, uint8((sum+128)/256))
		}
	}
	return out
}

// clahe applies contrast-limited adaptive histogram equalization. The plane
// is padded (replicate) up to a tile-aligned size, per-tile lookup tables
// are built from clipped histograms, and each pixel interpolates bilinearly
// between the four surrounding tile LUTs.
func clahe(g *pixmap.Gray, clipLimit float64, tilesX, tilesY int) *pixmap.Gray {
	w, h := g.W, g.H
	if w == 0 || h == 0 {
		return g.Clone()
	}

	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	sample := func(x, y int) uint8 {
		if x >= w {
			x = w - 1
		}
		if y >= h {
			y = h - 1
		}
		return g.At(x, y)
	}

	tileArea := tileW * tileH
	clip := int(clipLimit * float64(tileArea) / 256.0)
	if clip < 1 {
		clip = 1
	}

	// Per-tile LUTs.
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[sample(x, y)]++
				}
			}

			// Clip and redistribute the excess evenly.
			excess := 0
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			share := excess / 256
			rem := excess % 256
			for i := range hist {
				hist[i] += share
				if i < rem {
					hist[i]++
				}
			}

			scale := 255.0 / float64(tileArea)
			cdf := 0
			lut := &luts[ty*tilesX+tx]
			for i := range hist {
				cdf += hist[i]
				lut[i] = uint8(float64(cdf)*scale + 0.5)
			}
		}
	}

	out := pixmap.NewGray(w, h)
	for y := 0; y < h; y++ {
		// Position relative to tile centers.
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			ty0 = -1
		}
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		if ty0 < 0 {
			ty0 = 0
		}
		if ty1 > tilesY-1 {
			ty1 = tilesY - 1
		}
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				tx0 = -1
			}
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			if tx0 < 0 {
				tx0 = 0
			}
			if tx1 > tilesX-1 {
				tx1 = tilesX - 1
			}

			v := g.At(x, y)
			tl := float64(luts[ty0*tilesX+tx0][v])
			tr := float64(luts[ty0*tilesX+tx1][v])
			bl := float64(luts[ty1*tilesX+tx0][v])
			br := float64(luts[ty1*tilesX+tx1][v])
			top := tl + (tr-tl)*wx
			bot := bl + (br-bl)*wx
			out.Set(x, y, uint8(top+(bot-top)*wy+0.5))
		}
	}
	return out
}

// otsuThreshold picks the threshold maximizing between-class variance.
func otsuThreshold(g *pixmap.Gray) uint8 {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	sumB := 0.0
	wB := 0
	best := 0
	bestVar := -1.0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return uint8(best)
}

// erode5 keeps a pixel only when every in-bounds neighbor under the 5x5
// square element is foreground.
func erode5(m *pixmap.Mask) *pixmap.Mask {
	w, h := m.W, m.H
	out := pixmap.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			keep := true
			for dy := -2; dy <= 2 && keep; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -2; dx <= 2; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					if !m.At(xx, yy) {
						keep = false
						break
					}
				}
			}
			out.Set(x, y, keep)
		}
	}
	return out
}

// dilate5 marks a pixel when any in-bounds neighbor under the 5x5 square
// element is foreground.
func dilate5(m *pixmap.Mask) *pixmap.Mask {
	w, h := m.W, m.H
	out := pixmap.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hit := false
			for dy := -2; dy <= 2 && !hit; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -2; dx <= 2; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					if m.At(xx, yy) {
						hit = true
						break
					}
				}
			}
			out.Set(x, y, hit)
		}
	}
	return out
}
