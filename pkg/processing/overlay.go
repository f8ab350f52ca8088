package processing

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/image-ocr/pkg/types"
)

var (
	lineColor  = color.NRGBA{0, 255, 0, 255}   // recognized line
	labelColor = color.NRGBA{255, 0, 0, 255}   // line index
	emptyColor = color.NRGBA{255, 204, 0, 255} // frame when no geometry is known
)

// CreateDebugOverlay draws the bounds of every recognized line onto a copy of
// img, labelled with its position in the output. Fragments without geometry
// are skipped; when none have geometry the image gets a thin frame instead.
func (p *Processor) CreateDebugOverlay(img image.Image, fragments []types.Fragment) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	stroke := int(math.Max(1, 0.003*float64(minInt(w, h))))

	drawn := 0
	for i, f := range fragments {
		r := f.Bounds.Intersect(image.Rect(0, 0, w, h))
		if r.Empty() {
			continue
		}
		drawRect(nrgba, r, lineColor, stroke)
		drawLabel(nrgba, r.Min.X+2, r.Min.Y-2, strconv.Itoa(i+1))
		drawn++
	}

	if drawn == 0 {
		drawRect(nrgba, image.Rect(0, 0, w, h), emptyColor, stroke)
	}
	return nrgba
}

func drawLabel(img *image.NRGBA, x, y int, text string) {
	if y < 13 {
		y = 13
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
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
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
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
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
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
