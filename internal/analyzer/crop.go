package analyzer

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// CenterCrop returns the centered w×h region of img. Images smaller than the
// crop on either axis are first scaled up, preserving aspect ratio, until
// they cover it.
func CenterCrop(img image.Image, w, h int) image.Image {
	b := img.Bounds()

	if b.Dx() < w || b.Dy() < h {
		scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
		nw := uint(math.Ceil(float64(b.Dx()) * scale))
		nh := uint(math.Ceil(float64(b.Dy()) * scale))
		img = resize.Resize(nw, nh, img, resize.Bilinear)
		b = img.Bounds()
	}

	x0 := b.Min.X + (b.Dx()-w)/2
	y0 := b.Min.Y + (b.Dy()-h)/2
	rect := image.Rect(x0, y0, x0+w, y0+h)

	if s, ok := img.(subImager); ok && rect.In(b) {
		return s.SubImage(rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
