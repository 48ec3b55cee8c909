package imageio

import "github.com/opd-ai/djv/pixel"

// Stored converts img to the layout info for codecs that always store rows
// top to bottom and left to right. Mirror flags on img are applied and the
// result carries no mirror.
func Stored(img *pixel.Image, info pixel.Info) *pixel.Image {
	info.Size = img.Size
	info.Mirror = pixel.Mirror{}
	out := pixel.NewImage(info)
	out.ColorProfile = img.ColorProfile
	out.Tags = img.Tags

	if img.Mirror == (pixel.Mirror{}) {
		// Sizes match by construction.
		_ = pixel.Convert(img, out)
		return out
	}
	w, h := img.Size.W, img.Size.H
	for y := 0; y < h; y++ {
		sy := y
		if img.Mirror.Y {
			sy = h - 1 - y
		}
		for x := 0; x < w; x++ {
			sx := x
			if img.Mirror.X {
				sx = w - 1 - x
			}
			out.SetPixel(x, y, img.Pixel(sx, sy))
		}
	}
	return out
}
