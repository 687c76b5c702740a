package processing

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/geometry"
)

var (
	subjectColor = color.NRGBA{0, 255, 0, 255}
	cropColor    = color.NRGBA{255, 204, 0, 255}
	focusColor   = color.NRGBA{255, 0, 0, 255}
	centerColor  = color.NRGBA{0, 170, 255, 255}
)

// CreateDebugOverlay draws the crop region, the optional subject region
// and the focus point on a copy of img. Regions are normalized against
// the image before drawing.
func (p *Processor) CreateDebugOverlay(img image.Image, crop geometry.Crop, subject *geometry.Crop, focus cropper.Point) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	dims := geometry.NewDimensions(w, h)

	short := min(w, h)
	stroke := max(2, short/250)
	cross := max(4, short/100)

	if subject != nil && !subject.IsEmpty() {
		drawRect(nrgba, subject.Normalize(dims).Rect(), subjectColor, stroke)
	}
	if !crop.IsEmpty() {
		drawRect(nrgba, crop.Normalize(dims).Rect(), cropColor, stroke)
	}

	px := int(clamp(focus.X, 0, 1)*float64(w) + 0.5)
	py := int(clamp(focus.Y, 0, 1)*float64(h) + 0.5)
	drawHLine(nrgba, py, px-cross, px+cross, focusColor)
	drawVLine(nrgba, px, py-cross, py+cross, focusColor)

	ix, iy := w/2, h/2
	drawHLine(nrgba, iy, ix-6, ix+6, centerColor)
	drawVLine(nrgba, ix, iy-6, iy+6, centerColor)

	return nrgba
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Empty() {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	if x0 >= x1 {
		return
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	if y0 >= y1 {
		return
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
