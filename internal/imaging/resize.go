package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Square scales img to size x size with Catmull-Rom resampling.
// size <= 0 returns img unchanged.
func Square(img image.Image, size int) image.Image {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
