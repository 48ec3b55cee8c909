package stdimage

import (
	"image"
	"image/color"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
)

// ToPixel converts a decoded image. Gray, 16 bit gray and non-premultiplied
// RGBA buffers are copied directly; anything else is converted per pixel
// to RGB or RGBA at 8 or 16 bits.
func ToPixel(src image.Image) *pixel.Image {
	b := src.Bounds()
	size := pixel.Size{W: b.Dx(), H: b.Dy()}
	switch m := src.(type) {
	case *image.Gray:
		return copyRows(size, pixel.LU8, m.Pix, m.Stride)
	case *image.Gray16:
		return copyRows(size, pixel.LU16, m.Pix, m.Stride)
	case *image.NRGBA:
		return copyRows(size, pixel.RGBAU8, m.Pix, m.Stride)
	case *image.NRGBA64:
		return copyRows(size, pixel.RGBAU16, m.Pix, m.Stride)
	}

	deep := is16Bit(src.ColorModel())
	opaque := isOpaque(src)
	var t pixel.Type
	switch {
	case deep && opaque:
		t = pixel.RGBU16
	case deep:
		t = pixel.RGBAU16
	case opaque:
		t = pixel.RGBU8
	default:
		t = pixel.RGBAU8
	}
	info := pixel.NewInfo(size, t)
	info.Endian = pixel.EndianMSB
	img := pixel.NewImage(info)
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			img.SetPixel(x, y, pixel.Color{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			})
		}
	}
	return img
}

func copyRows(size pixel.Size, t pixel.Type, pix []byte, stride int) *pixel.Image {
	info := pixel.NewInfo(size, t)
	info.Endian = pixel.EndianMSB
	img := pixel.NewImage(info)
	n := info.ScanlineByteCount()
	for y := 0; y < size.H; y++ {
		copy(img.Scanline(y), pix[y*stride:y*stride+n])
	}
	return img
}

func is16Bit(m color.Model) bool {
	switch m {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
		return true
	}
	return false
}

func isOpaque(src image.Image) bool {
	if o, ok := src.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// FromPixel converts img to a Go image holding the stored type t, which
// must be one of L U8, L U16, RGB U8, RGB U16, RGBA U8 or RGBA U16. Mirror
// flags are applied. Opaque types produce premultiplied images, which
// encoders treat as fully opaque.
func FromPixel(img *pixel.Image, t pixel.Type) image.Image {
	rect := image.Rect(0, 0, img.Size.W, img.Size.H)
	stored := func(t pixel.Type) *pixel.Image {
		info := pixel.NewInfo(img.Size, t)
		info.Endian = pixel.EndianMSB
		return imageio.Stored(img, info)
	}
	switch t {
	case pixel.LU8:
		s := stored(t)
		return &image.Gray{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	case pixel.LU16:
		s := stored(t)
		return &image.Gray16{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	case pixel.RGBU8:
		s := stored(pixel.RGBAU8)
		fillAlpha(s.Data, 1)
		return &image.RGBA{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	case pixel.RGBU16:
		s := stored(pixel.RGBAU16)
		fillAlpha(s.Data, 2)
		return &image.RGBA64{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	case pixel.RGBAU16:
		s := stored(t)
		return &image.NRGBA64{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	default:
		s := stored(pixel.RGBAU8)
		return &image.NRGBA{Pix: s.Data, Stride: s.ScanlineByteCount(), Rect: rect}
	}
}

// fillAlpha sets the fourth sample of every RGBA pixel to its maximum.
func fillAlpha(data []byte, sampleSize int) {
	step := 4 * sampleSize
	for i := 3 * sampleSize; i < len(data); i += step {
		for j := 0; j < sampleSize; j++ {
			data[i+j] = 0xff
		}
	}
}
