package pixmap

import (
	"image"
	"image/color"
)

// Image is an 8-bit pixel grid in row-major order. Channel order is BGR for
// three-channel images, matching the scan ingestion contract. The splitter
// never mutates an Image in place; crops always copy.
type Image struct {
	W, H, C int
	Pix     []uint8
}

// Gray is a single-channel 8-bit plane.
type Gray struct {
	W, H int
	Pix  []uint8
}

// Mask is a boolean grid marking foreground (ink) pixels.
type Mask struct {
	W, H int
	Bits []bool
}

// Rect is a half-open pixel rectangle: x in [X0,X1), y in [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

func (r Rect) Dx() int { return r.X1 - r.X0 }
func (r Rect) Dy() int { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

// Clamp constrains the rectangle to a w×h grid.
func (r Rect) Clamp(w, h int) Rect {
	if r.X0 < 0 {
		r.X0 = 0
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > w {
		r.X1 = w
	}
	if r.Y1 > h {
		r.Y1 = h
	}
	return r
}

// NewImage allocates a zeroed w×h image with c channels.
func NewImage(w, h, c int) *Image {
	return &Image{W: w, H: h, C: c, Pix: make([]uint8, w*h*c)}
}

// NewGray allocates a zeroed w×h gray plane.
func NewGray(w, h int) *Gray {
	return &Gray{W: w, H: h, Pix: make([]uint8, w*h)}
}

// NewMask allocates an all-background w×h mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

func (m *Image) offset(x, y int) int { return (y*m.W + x) * m.C }

// SetBGR writes one pixel. For single-channel images the blue value is used.
func (m *Image) SetBGR(x, y int, b, g, r uint8) {
	o := m.offset(x, y)
	if m.C == 1 {
		m.Pix[o] = b
		return
	}
	m.Pix[o], m.Pix[o+1], m.Pix[o+2] = b, g, r
}

// BGR reads one pixel; single-channel images replicate the value.
func (m *Image) BGR(x, y int) (b, g, r uint8) {
	o := m.offset(x, y)
	if m.C == 1 {
		v := m.Pix[o]
		return v, v, v
	}
	return m.Pix[o], m.Pix[o+1], m.Pix[o+2]
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{W: m.W, H: m.H, C: m.C, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Crop copies the pixels under r (clamped to the image) into a new Image.
func (m *Image) Crop(r Rect) *Image {
	r = r.Clamp(m.W, m.H)
	if r.Empty() {
		return NewImage(0, 0, m.C)
	}
	out := NewImage(r.Dx(), r.Dy(), m.C)
	rowLen := r.Dx() * m.C
	for y := r.Y0; y < r.Y1; y++ {
		src := m.offset(r.X0, y)
		dst := (y - r.Y0) * rowLen
		copy(out.Pix[dst:dst+rowLen], m.Pix[src:src+rowLen])
	}
	return out
}

func (g *Gray) At(x, y int) uint8     { return g.Pix[y*g.W+x] }
func (g *Gray) Set(x, y int, v uint8) { g.Pix[y*g.W+x] = v }

// Clone returns a deep copy of the plane.
func (g *Gray) Clone() *Gray {
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

func (m *Mask) At(x, y int) bool     { return m.Bits[y*m.W+x] }
func (m *Mask) Set(x, y int, v bool) { m.Bits[y*m.W+x] = v }

// Any reports whether at least one pixel is foreground.
func (m *Mask) Any() bool {
	for _, b := range m.Bits {
		if b {
			return true
		}
	}
	return false
}

// Mean returns the foreground fraction of the mask.
func (m *Mask) Mean() float64 {
	if len(m.Bits) == 0 {
		return 0
	}
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return float64(n) / float64(len(m.Bits))
}

// FromStdImage converts a decoded image.Image into a 3-channel BGR Image.
// Gray inputs become a single-channel plane.
func FromStdImage(src image.Image) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := src.(*image.Gray); ok {
		out := NewImage(w, h, 1)
		for y := 0; y < h; y++ {
			copy(out.Pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return out
	}

	out := NewImage(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetBGR(x, y, uint8(bl>>8), uint8(g>>8), uint8(r>>8))
		}
	}
	return out
}

// ToStdImage converts back to an image.Image for encoding.
func (m *Image) ToStdImage() image.Image {
	if m.C == 1 {
		out := image.NewGray(image.Rect(0, 0, m.W, m.H))
		for y := 0; y < m.H; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+m.W], m.Pix[y*m.W:(y+1)*m.W])
		}
		return out
	}
	out := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			b, g, r := m.BGR(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}

// Luminance converts the image to a single gray plane using the BT.601
// weights OpenCV applies for BGR input. Single-channel input is copied
// through unchanged.
func (m *Image) Luminance() *Gray {
	out := NewGray(m.W, m.H)
	if m.C == 1 {
		copy(out.Pix, m.Pix)
		return out
	}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			b, g, r := m.BGR(x, y)
			v := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			out.Set(x, y, uint8(v+0.5))
		}
	}
	return out
}
