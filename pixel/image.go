package pixel

import (
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// ErrSizeMismatch indicates two images that must share a size do not
var ErrSizeMismatch = errors.New("image size mismatch")

// Color is a normalized RGBA sample.
type Color [4]float32

// Image is a pixel buffer with its description, colour profile and tags.
type Image struct {
	Info
	Data         []byte
	ColorProfile ColorProfile
	Tags         Tags
}

// NewImage allocates a zeroed buffer for info.
func NewImage(info Info) *Image {
	return &Image{
		Info: info,
		Data: make([]byte, info.DataByteCount()),
		Tags: Tags{},
	}
}

// Scanline returns the bytes of row y.
func (img *Image) Scanline(y int) []byte {
	n := img.ScanlineByteCount()
	return img.Data[y*n : (y+1)*n]
}

func (img *Image) offset(x, y int) int {
	return y*img.ScanlineByteCount() + x*img.Type.ByteCount()
}

// Pixel returns the sample at (x, y). Luminance expands to grey and missing
// alpha reads as one.
func (img *Image) Pixel(x, y int) Color {
	off := img.offset(x, y)
	order := img.Endian.ByteOrder()
	if img.Type == RGBU10 {
		word := order.Uint32(img.Data[off:])
		return Color{
			float32(word>>22&0x3ff) / 1023,
			float32(word>>12&0x3ff) / 1023,
			float32(word>>2&0x3ff) / 1023,
			1,
		}
	}
	f := img.Type.format()
	step := f.bits / 8
	var v [4]float32
	for c := 0; c < f.channels; c++ {
		v[c] = img.readChannel(off+c*step, f)
	}
	switch f.channels {
	case 1:
		return Color{v[0], v[0], v[0], 1}
	case 2:
		return Color{v[0], v[0], v[0], v[1]}
	case 3:
		return Color{v[0], v[1], v[2], 1}
	default:
		return Color(v)
	}
}

// SetPixel stores a sample at (x, y). Converting to luminance averages the
// colour channels; integer types clamp to their range.
func (img *Image) SetPixel(x, y int, c Color) {
	off := img.offset(x, y)
	order := img.Endian.ByteOrder()
	if img.Type == RGBU10 {
		word := toU10(c[0])<<22 | toU10(c[1])<<12 | toU10(c[2])<<2
		order.PutUint32(img.Data[off:], word)
		return
	}
	f := img.Type.format()
	step := f.bits / 8
	switch f.channels {
	case 1:
		img.writeChannel(off, f, (c[0]+c[1]+c[2])/3)
	case 2:
		img.writeChannel(off, f, (c[0]+c[1]+c[2])/3)
		img.writeChannel(off+step, f, c[3])
	default:
		for i := 0; i < f.channels; i++ {
			img.writeChannel(off+i*step, f, c[i])
		}
	}
}

func (img *Image) readChannel(off int, f format) float32 {
	order := img.Endian.ByteOrder()
	switch {
	case f.bits == 8:
		return float32(img.Data[off]) / 255
	case f.bits == 16 && f.float:
		return float16.Frombits(order.Uint16(img.Data[off:])).Float32()
	case f.bits == 16:
		return float32(order.Uint16(img.Data[off:])) / 65535
	default:
		return math.Float32frombits(order.Uint32(img.Data[off:]))
	}
}

func (img *Image) writeChannel(off int, f format, v float32) {
	order := img.Endian.ByteOrder()
	switch {
	case f.bits == 8:
		img.Data[off] = uint8(clampUnit(v)*255 + 0.5)
	case f.bits == 16 && f.float:
		order.PutUint16(img.Data[off:], float16.Fromfloat32(v).Bits())
	case f.bits == 16:
		order.PutUint16(img.Data[off:], uint16(clampUnit(v)*65535+0.5))
	default:
		order.PutUint32(img.Data[off:], math.Float32bits(v))
	}
}

func toU10(v float32) uint32 {
	return uint32(clampUnit(v)*1023+0.5) & 0x3ff
}

func clampUnit(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Convert copies src into dst converting pixel type, byte order and
// alignment. Both images must have the same size. Mirror flags are not
// applied; see the transform package for geometric copies.
func Convert(src, dst *Image) error {
	if src.Size != dst.Size {
		return fmt.Errorf("%w: %s to %s", ErrSizeMismatch, src.Size, dst.Size)
	}
	if src.Type == dst.Type && src.Endian == dst.Endian && src.align() == dst.align() {
		copy(dst.Data, src.Data)
		return nil
	}
	for y := 0; y < src.Size.H; y++ {
		for x := 0; x < src.Size.W; x++ {
			dst.SetPixel(x, y, src.Pixel(x, y))
		}
	}
	return nil
}
