package splitter

import "github.com/local/mangasplit/internal/pixmap"

// cropWithPadding crops bbox expanded by the padding amounts, clamped to
// the image bounds. Cropping never fails; arithmetic clamps instead.
func cropWithPadding(img *pixmap.Image, bbox pixmap.Rect, padX, padY int) *pixmap.Image {
	return img.Crop(pixmap.Rect{
		X0: bbox.X0 - padX,
		Y0: bbox.Y0 - padY,
		X1: bbox.X1 + padX,
		Y1: bbox.Y1 + padY,
	})
}

// regionBBox bounds the mask restricted to columns [xStart,xEnd). A side
// with no foreground degenerates to its full column span and the full
// vertical extent, so extraction still yields a usable page.
func regionBBox(mask *pixmap.Mask, xStart, xEnd int) pixmap.Rect {
	xMin, yMin := xEnd, mask.H
	xMax, yMax := -1, -1
	for y := 0; y < mask.H; y++ {
		row := mask.Bits[y*mask.W : (y+1)*mask.W]
		for x := xStart; x < xEnd; x++ {
			if !row[x] {
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
	if xMax < 0 {
		return pixmap.Rect{X0: xStart, Y0: 0, X1: xEnd, Y1: mask.H}
	}
	return pixmap.Rect{X0: xMin, Y0: yMin, X1: xMax + 1, Y1: yMax + 1}
}

// extractPages slices the spread at splitX and crops each side around its
// own content. Pages come back right side first for right-to-left reading
// order.
func extractPages(img *pixmap.Image, mask *pixmap.Mask, splitX, padX, padY int) []*pixmap.Image {
	width := mask.W
	if splitX < 1 {
		splitX = 1
	}
	if splitX > width-1 {
		splitX = width - 1
	}

	right := cropWithPadding(img, regionBBox(mask, splitX, width), padX, padY)
	left := cropWithPadding(img, regionBBox(mask, 0, splitX), padX, padY)
	return []*pixmap.Image{right, left}
}
