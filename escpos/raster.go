package escpos

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

const (
	// DefaultPrinterWidth is the dot width of an 80mm head
	DefaultPrinterWidth = 576

	// MinPreCutLines is the least paper fed before a cut so the last
	// printed row clears the blade
	MinPreCutLines = 8

	// RasterThreshold is the lightness at or below which a pixel prints black
	RasterThreshold = 0.5
)

// luma weights
const lumR, lumG, lumB = 55, 182, 18

// Raster returns a GS v 0 bit image of img. Images wider than width dots
// are scaled down keeping their aspect ratio; narrower images print as is.
func Raster(img image.Image, width int) Segment {
	if width <= 0 {
		width = DefaultPrinterWidth
	}
	if img.Bounds().Dx() > width {
		img = resize.Resize(uint(width), 0, img, resize.Lanczos3)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rowBytes := (w + 7) / 8

	// GS v 0 m xL xH yL yH d1...dk
	seg := make(Segment, 8, 8+rowBytes*h)
	copy(seg, []byte{
		GS, 'v', '0', 0x00,
		byte(rowBytes), byte(rowBytes >> 8),
		byte(h), byte(h >> 8),
	})

	data := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if lightness(img.At(bounds.Min.X+x, bounds.Min.Y+y)) <= RasterThreshold {
				data[y*rowBytes+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	return append(seg, data...)
}

// lightness maps a color to 0 (black) .. 1 (white). Transparent pixels are white.
func lightness(c color.Color) float64 {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return 1
	}
	return float64(lumR*r+lumG*g+lumB*b) / float64(0xffff*(lumR+lumG+lumB))
}

// FeedAndCut feeds at least MinPreCutLines lines and then cuts fully
func FeedAndCut(lines byte) Segment {
	lines = max(lines, MinPreCutLines)
	seg := Feed(lines)
	return append(seg, Cut(CutFull, 0)...)
}

// ImagePage returns the initialize, left align, bitmap, feed and cut job
func ImagePage(img image.Image, width int, feedLines byte) Buffer {
	return NewBuffer(
		Initialize(),
		Align(AlignLeft),
		Raster(img, width),
		FeedAndCut(feedLines),
	)
}
